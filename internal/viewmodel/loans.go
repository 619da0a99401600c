package viewmodel

import (
	"context"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
	"github.com/five82/lector/internal/state"
)

// Loans drives the loans screen.
type Loans struct {
	api   biblio.API
	coord *circulation.Coordinator

	Active  *state.Slot[[]biblio.Loan]
	History *state.Slot[[]biblio.Loan]
	Last    *state.Slot[biblio.Loan]
}

func NewLoans(api biblio.API, coord *circulation.Coordinator) *Loans {
	return &Loans{
		api:     api,
		coord:   coord,
		Active:  state.NewListSlot[biblio.Loan](),
		History: state.NewListSlot[biblio.Loan](),
		Last:    state.NewSlot[biblio.Loan](),
	}
}

// LoadActive lists unreturned loans; userID <= 0 means every user.
func (l *Loans) LoadActive(ctx context.Context, userID int64) result.Result[[]biblio.Loan] {
	return load(l.Active, failure.OpLoadLoans, func() ([]biblio.Loan, error) {
		return l.api.ListActiveLoans(ctx, userID)
	})
}

// LoadAll lists the loan history; userID <= 0 means every user.
func (l *Loans) LoadAll(ctx context.Context, userID int64) result.Result[[]biblio.Loan] {
	return load(l.History, failure.OpLoadLoans, func() ([]biblio.Loan, error) {
		return l.api.ListAllLoans(ctx, userID)
	})
}

// Create lends exemplarID to userID on date, or today when date is empty.
func (l *Loans) Create(ctx context.Context, userID, exemplarID int64, date string) (result.Result[biblio.Loan], error) {
	l.Last.Begin()
	res, err := l.coord.CreateLoan(ctx, userID, exemplarID, date)
	if err != nil {
		l.Last.Reset()
		return res, err
	}
	l.Last.Publish(res)
	if res.IsSuccess() {
		l.LoadActive(ctx, 0)
	}
	return res, nil
}

// Return closes loanID and reloads the active list.
func (l *Loans) Return(ctx context.Context, loanID int64) (result.Result[string], error) {
	res, err := l.coord.ReturnLoan(ctx, loanID)
	if err != nil {
		return res, err
	}
	if res.IsSuccess() {
		l.LoadActive(ctx, 0)
	}
	return res, nil
}

// DaysOut is how long loan has been out, by the coordinator's clock.
func (l *Loans) DaysOut(loan biblio.Loan) int {
	return l.coord.LoanDays(loan)
}

// ActiveFor returns the loaded active loan of exemplarID, if any.
func (l *Loans) ActiveFor(exemplarID int64) *biblio.Loan {
	return circulation.ActiveLoanForExemplar(l.Active.Snapshot().Value, exemplarID)
}

// CountFor counts the loaded active loans of userID.
func (l *Loans) CountFor(userID int64) int {
	return circulation.CountActiveLoans(l.Active.Snapshot().Value, userID)
}
