package viewmodel

import (
	"context"
	"log"
	"strings"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
	"github.com/five82/lector/internal/session"
	"github.com/five82/lector/internal/state"
)

// Auth drives the login screen.
type Auth struct {
	api     biblio.API
	session *session.Store

	Profile *state.Slot[biblio.User]
}

// NewAuth builds the login view-model. The session is the token source the
// API client was built with; when the backend rejects its token the profile
// is reset as well.
func NewAuth(api biblio.API, sess *session.Store) *Auth {
	a := &Auth{api: api, session: sess, Profile: state.NewSlot[biblio.User]()}
	if sess != nil {
		sess.OnExpire(a.Profile.Reset)
	}
	return a
}

// Session returns the store holding the token.
func (a *Auth) Session() *session.Store { return a.session }

// Login authenticates and stores the token. On failure the session is left
// as it was.
func (a *Auth) Login(ctx context.Context, nick, password string) result.Result[biblio.User] {
	nick = strings.TrimSpace(nick)
	if nick == "" || password == "" {
		res := invalid[biblio.User](failure.OpLogin, "Cal indicar l'usuari i la contrasenya")
		a.Profile.Publish(res)
		return res
	}
	return load(a.Profile, failure.OpLogin, func() (biblio.User, error) {
		resp, err := a.api.Login(ctx, nick, password)
		if err != nil {
			return biblio.User{}, err
		}
		a.session.Set(resp.Token, resp.User)
		log.Printf("logged in as %s (admin=%t)", resp.Nick, resp.Admin)
		return resp.User, nil
	})
}

// Logout asks the backend to end the session and always clears the local
// token, even when the call fails.
func (a *Auth) Logout(ctx context.Context) result.Result[string] {
	res := call(failure.OpLogout, func() (string, error) {
		return a.api.Logout(ctx)
	})
	a.session.Clear()
	a.Profile.Reset()
	return res
}
