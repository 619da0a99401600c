package circulation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
)

// ErrNoLoanID is returned when a loan return is requested without a loan id.
var ErrNoLoanID = errors.New("circulation: loan id is required")

// ErrNoExemplar is returned when an operation is given no exemplar id.
var ErrNoExemplar = errors.New("circulation: exemplar id is required")

// Step names the stage of a status change.
type Step string

const (
	StepValidate Step = "validate"
	StepFindLoan Step = "find-loan"
	StepReturn   Step = "return-loan"
	StepCreate   Step = "create-loan"
	StepUpdate   Step = "update-exemplar"
	StepReload   Step = "reload-exemplar"
	StepDone     Step = "done"
)

// Change is what a status change did. On failure, Step is the stage that
// failed and the other fields hold whatever completed before it.
type Change struct {
	Step     Step
	Exemplar biblio.Exemplar
	Created  *biblio.Loan
	Returned *biblio.Loan
	Message  string
}

// Coordinator runs loan and exemplar status operations against the backend.
type Coordinator struct {
	api biblio.API
	now func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the clock used for default loan dates.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a Coordinator for api.
func New(api biblio.API, opts ...Option) *Coordinator {
	c := &Coordinator{api: api, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the coordinator's current date in the backend layout.
func (c *Coordinator) Today() string {
	return biblio.FormatDate(c.now())
}

// LoanDays is LoanDays evaluated against the coordinator's clock.
func (c *Coordinator) LoanDays(loan biblio.Loan) int {
	return LoanDays(loan, c.now())
}

// CreateLoan lends exemplarID to userID. An empty date means today.
func (c *Coordinator) CreateLoan(ctx context.Context, userID, exemplarID int64, date string) (result.Result[biblio.Loan], error) {
	if exemplarID <= 0 {
		return result.Result[biblio.Loan]{}, ErrNoExemplar
	}
	if userID <= 0 {
		return result.Fail[biblio.Loan](failure.Invalid(failure.OpCreateLoan, "Cal seleccionar un usuari")), nil
	}
	if date == "" {
		date = c.Today()
	} else if _, err := biblio.ParseDate(date); err != nil {
		return result.Fail[biblio.Loan](failure.Invalid(failure.OpCreateLoan, "Data de préstec invàlida: %s", date)), nil
	}

	loan, err := c.api.CreateLoan(ctx, biblio.CreateLoanRequest{UserID: userID, ExemplarID: exemplarID, LoanDate: date})
	if err != nil {
		f := failure.Classify(failure.OpCreateLoan, err)
		log.Printf("create loan exemplar=%d user=%d failed: %v", exemplarID, userID, f)
		return result.Fail[biblio.Loan](f), nil
	}
	if loan == nil {
		loan = &biblio.Loan{LoanDate: date}
	}
	log.Printf("loan %d created exemplar=%d user=%d", loan.ID, exemplarID, userID)
	return result.Ok(*loan), nil
}

// ReturnLoan closes loanID and returns the backend's confirmation text.
func (c *Coordinator) ReturnLoan(ctx context.Context, loanID int64) (result.Result[string], error) {
	if loanID <= 0 {
		return result.Result[string]{}, ErrNoLoanID
	}
	msg, err := c.api.ReturnLoan(ctx, loanID)
	if err != nil {
		f := failure.Classify(failure.OpReturnLoan, err)
		log.Printf("return loan %d failed: %v", loanID, f)
		return result.Fail[string](f), nil
	}
	if msg == "" {
		msg = "Préstec retornat"
	}
	log.Printf("loan %d returned", loanID)
	return result.Ok(msg), nil
}

// ChangeStatus moves ex to target. Transitions into prestat create a loan for
// userID; prestat to lliure returns the active loan. The exemplar status is
// then updated and re-read. The first failing step stops the flow and is
// reported in the Change; completed steps are not undone.
func (c *Coordinator) ChangeStatus(ctx context.Context, ex biblio.Exemplar, target biblio.Status, userID int64) (result.Result[Change], error) {
	if ex.ID <= 0 {
		return result.Result[Change]{}, ErrNoExemplar
	}
	change := Change{Step: StepValidate, Exemplar: ex}

	plan, err := PlanTransition(ex.Status, target)
	if err != nil {
		return failed(change, failure.Invalid(failure.OpChangeStatus, "Canvi d'estat no permès: %s → %s", statusLabel(ex.Status), statusLabel(target))), nil
	}
	if plan.NeedsUser && userID <= 0 {
		return failed(change, failure.Invalid(failure.OpChangeStatus, "Cal seleccionar un usuari")), nil
	}

	if plan.ReturnLoan {
		change.Step = StepFindLoan
		loans, err := c.api.ListActiveLoans(ctx, 0)
		if err != nil {
			return failed(change, failure.Classify(failure.OpLoadLoans, err)), nil
		}
		if active := ActiveLoanForExemplar(loans, ex.ID); active != nil {
			change.Step = StepReturn
			res, err := c.ReturnLoan(ctx, active.ID)
			if err != nil {
				return result.Result[Change]{}, err
			}
			if res.IsFailed() {
				return failed(change, res.Failure), nil
			}
			change.Returned = active
			change.Message = res.Value
		} else {
			log.Printf("exemplar %d is prestat with no active loan; updating status only", ex.ID)
		}
	}

	if plan.CreateLoan {
		change.Step = StepCreate
		res, err := c.CreateLoan(ctx, userID, ex.ID, "")
		if err != nil {
			return result.Result[Change]{}, err
		}
		if res.IsFailed() {
			return failed(change, res.Failure), nil
		}
		loan := res.Value
		change.Created = &loan
	}
	if target == biblio.StatusReserved {
		log.Printf("exemplar %d reserved for user %d", ex.ID, userID)
	}

	change.Step = StepUpdate
	req := biblio.ExemplarRequest{Location: ex.Location, Status: target}
	if ex.Book != nil {
		req.BookID = ex.Book.ID
	}
	updated, err := c.api.UpdateExemplar(ctx, ex.ID, req)
	if err != nil {
		return failed(change, failure.Classify(failure.OpChangeStatus, err)), nil
	}
	if updated != nil {
		change.Exemplar = *updated
	} else {
		change.Exemplar.Status = target
	}

	change.Step = StepReload
	fresh, err := c.api.GetExemplar(ctx, ex.ID)
	if err != nil {
		// The change itself succeeded; keep the update response.
		log.Printf("reload exemplar %d after status change failed: %v", ex.ID, err)
	} else if fresh != nil {
		change.Exemplar = *fresh
	}

	change.Step = StepDone
	log.Printf("exemplar %d status %s -> %s", ex.ID, ex.Status, target)
	return result.Ok(change), nil
}

// CanDelete reports whether ex may be deleted: a lent copy may not.
func CanDelete(ex biblio.Exemplar) bool {
	return ex.Status != biblio.StatusLoaned
}

// DeleteExemplar removes ex unless it is currently lent.
func (c *Coordinator) DeleteExemplar(ctx context.Context, ex biblio.Exemplar) (result.Result[struct{}], error) {
	if ex.ID <= 0 {
		return result.Result[struct{}]{}, ErrNoExemplar
	}
	if !CanDelete(ex) {
		return result.Fail[struct{}](failure.Invalid(failure.OpDeleteExemplar, "No es pot esborrar un exemplar prestat")), nil
	}
	if err := c.api.DeleteExemplar(ctx, ex.ID); err != nil {
		return result.Fail[struct{}](failure.Classify(failure.OpDeleteExemplar, err)), nil
	}
	log.Printf("exemplar %d deleted", ex.ID)
	return result.Ok(struct{}{}), nil
}

func failed(change Change, f *failure.Failure) result.Result[Change] {
	log.Printf("status change exemplar=%d failed at %s: %v", change.Exemplar.ID, change.Step, f)
	r := result.Fail[Change](f)
	r.Value = change
	return r
}

func statusLabel(s biblio.Status) string {
	if s == "" {
		return "(cap)"
	}
	return string(s)
}
