package viewmodel

import (
	"context"
	"strings"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
	"github.com/five82/lector/internal/state"
)

// Users drives user administration.
type Users struct {
	api biblio.API

	List     *state.Slot[[]biblio.User]
	Selected *state.Slot[biblio.User]
}

func NewUsers(api biblio.API) *Users {
	return &Users{
		api:      api,
		List:     state.NewListSlot[biblio.User](),
		Selected: state.NewSlot[biblio.User](),
	}
}

// Load fetches every user.
func (u *Users) Load(ctx context.Context) result.Result[[]biblio.User] {
	return load(u.List, failure.OpLoadUsers, func() ([]biblio.User, error) {
		return u.api.ListUsers(ctx)
	})
}

// Get fetches one user into Selected.
func (u *Users) Get(ctx context.Context, id int64) result.Result[biblio.User] {
	return load(u.Selected, failure.OpGetUser, func() (biblio.User, error) {
		return deref(u.api.GetUser(ctx, id))
	})
}

// FindByNif looks a user up by NIF into Selected.
func (u *Users) FindByNif(ctx context.Context, nif string) result.Result[biblio.User] {
	nif = strings.TrimSpace(nif)
	if nif == "" {
		return invalid[biblio.User](failure.OpGetUser, "Cal indicar el NIF")
	}
	return load(u.Selected, failure.OpGetUser, func() (biblio.User, error) {
		return deref(u.api.GetUserByNif(ctx, nif))
	})
}

// Create registers a user. A duplicate nick, NIF or email is reported with
// the clashing value.
func (u *Users) Create(ctx context.Context, req biblio.CreateUserRequest) result.Result[biblio.User] {
	req.Nick = strings.TrimSpace(req.Nick)
	if req.Nick == "" {
		return invalid[biblio.User](failure.OpCreateUser, "El nick és obligatori")
	}
	if req.Password == "" {
		return invalid[biblio.User](failure.OpCreateUser, "La contrasenya és obligatòria")
	}
	res := call(failure.OpCreateUser, func() (biblio.User, error) {
		return deref(u.api.CreateUser(ctx, req))
	})
	if res.IsFailed() {
		res.Failure = res.Failure.WithValue(failure.FieldNick, map[failure.Field]string{
			failure.FieldNick:  req.Nick,
			failure.FieldNif:   req.Nif,
			failure.FieldEmail: req.Email,
		})
		return res
	}
	u.Load(ctx)
	return res
}

// Update changes the fields set in req.
func (u *Users) Update(ctx context.Context, id int64, req biblio.UpdateUserRequest) result.Result[biblio.User] {
	if req.Nick != nil && strings.TrimSpace(*req.Nick) == "" {
		return invalid[biblio.User](failure.OpUpdateUser, "El nick no pot ser buit")
	}
	res := call(failure.OpUpdateUser, func() (biblio.User, error) {
		return deref(u.api.UpdateUser(ctx, id, req))
	})
	if res.IsFailed() {
		res.Failure = res.Failure.WithValue(failure.FieldNick, map[failure.Field]string{
			failure.FieldNick:  value(req.Nick),
			failure.FieldNif:   value(req.Nif),
			failure.FieldEmail: value(req.Email),
		})
		return res
	}
	u.Selected.Publish(res)
	u.Load(ctx)
	return res
}

// ResetPassword sets a new password for id.
func (u *Users) ResetPassword(ctx context.Context, id int64, password string) result.Result[biblio.User] {
	if password == "" {
		return invalid[biblio.User](failure.OpUpdateUser, "La contrasenya no pot ser buida")
	}
	return call(failure.OpUpdateUser, func() (biblio.User, error) {
		return deref(u.api.UpdateUser(ctx, id, biblio.UpdateUserRequest{Password: &password}))
	})
}

// Delete removes a user. Deleting yourself is refused by the backend.
func (u *Users) Delete(ctx context.Context, id int64) result.Result[none] {
	res := call(failure.OpDeleteUser, func() (none, error) {
		return discard(u.api.DeleteUser(ctx, id))
	})
	if res.IsSuccess() {
		u.Load(ctx)
	}
	return res
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
