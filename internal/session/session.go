// Package session holds the bearer token and profile of the logged-in user.
//
// A Store is an ordinary value owned by whoever builds the client; there is
// no package-level token, so tests can run isolated sessions in parallel.
// Nothing is persisted: a new process starts logged out.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/lector/internal/biblio"
)

var (
	_ biblio.TokenSource  = (*Store)(nil)
	_ biblio.TokenExpirer = (*Store)(nil)
)

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	token   string
	profile biblio.User
	claims  jwt.MapClaims
	onExp   []func()
}

// New returns an empty session.
func New() *Store { return &Store{} }

// Get returns the current token, or "" when logged out. It implements
// biblio.TokenSource.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set stores a token and the profile it belongs to.
func (s *Store) Set(token string, profile biblio.User) {
	claims := parseClaims(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = profile
	s.claims = claims
}

// Clear forgets the token and profile.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.profile = biblio.User{}
	s.claims = nil
}

// Expire clears the session if it still holds token, then runs the OnExpire
// hooks. A token replaced by a newer login is left alone. It implements
// biblio.TokenExpirer.
func (s *Store) Expire(token string) {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.profile = biblio.User{}
	s.claims = nil
	hooks := append([]func(){}, s.onExp...)
	s.mu.Unlock()

	log.Printf("session: token rejected by backend, logged out")
	for _, fn := range hooks {
		fn()
	}
}

// OnExpire registers fn to run after Expire drops the token.
func (s *Store) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExp = append(s.onExp, fn)
}

// LoggedIn reports whether a token is held.
func (s *Store) LoggedIn() bool { return s.Get() != "" }

// Profile returns the logged user and whether one is set.
func (s *Store) Profile() (biblio.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.token != ""
}

// IsAdmin reports whether the logged user has the administrator role.
func (s *Store) IsAdmin() bool {
	p, ok := s.Profile()
	return ok && p.Admin
}

// ExpiresAt returns the token's exp claim when the token is a JWT carrying one.
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return time.Time{}, false
	}
	exp, err := s.claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the token carries an exp claim that is past now.
// Opaque tokens never expire client-side; the backend decides.
func (s *Store) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}

// parseClaims reads JWT claims without verifying the signature: the client
// has no key and only uses them to show when the session ends.
func parseClaims(token string) jwt.MapClaims {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
