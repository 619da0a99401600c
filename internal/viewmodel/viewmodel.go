// Package viewmodel holds the screen-level operations of lector.
//
// Each type owns the state slots one family of screens renders and a
// biblio.API to talk to the backend. Operations are synchronous and take a
// context; the TUI wraps them in bubbletea commands and the CLI calls them
// directly. Expected failures come back inside result.Result values and are
// logged with the standard logger; only programming-contract violations are
// returned as plain errors.
package viewmodel

import (
	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
	"github.com/five82/lector/internal/session"
)

// Set bundles every view-model over one API client and session.
type Set struct {
	Auth    *Auth
	Users   *Users
	Catalog *Catalog
	Loans   *Loans
	Groups  *Groups
}

// New builds all view-models. coord may be nil, in which case one is
// created over api with the wall clock.
func New(api biblio.API, sess *session.Store, coord *circulation.Coordinator) *Set {
	if coord == nil {
		coord = circulation.New(api)
	}
	return &Set{
		Auth:    NewAuth(api, sess),
		Users:   NewUsers(api),
		Catalog: NewCatalog(api, coord),
		Loans:   NewLoans(api, coord),
		Groups:  NewGroups(api),
	}
}
