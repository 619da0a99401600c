package circulation

import (
	"fmt"

	"github.com/five82/lector/internal/biblio"
)

// transitions lists, per current status, the statuses an exemplar may move to.
var transitions = map[biblio.Status][]biblio.Status{
	biblio.StatusFree:     {biblio.StatusLoaned, biblio.StatusReserved},
	biblio.StatusLoaned:   {biblio.StatusFree},
	biblio.StatusReserved: {biblio.StatusFree, biblio.StatusLoaned},
}

// IsValidTransition reports whether an exemplar may go from one status to
// another. Same-status pairs and unknown statuses are not transitions.
func IsValidTransition(from, to biblio.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from from, in table order.
func AllowedTargets(from biblio.Status) []biblio.Status {
	targets := transitions[from]
	out := make([]biblio.Status, len(targets))
	copy(out, targets)
	return out
}

// NeedsUserSelection reports whether the transition must name a user: the
// copy is being lent or reserved to someone.
func NeedsUserSelection(from, to biblio.Status) bool {
	switch {
	case from == biblio.StatusFree && (to == biblio.StatusLoaned || to == biblio.StatusReserved):
		return true
	case from == biblio.StatusReserved && to == biblio.StatusLoaned:
		return true
	}
	return false
}

// NeedsLoanReturn reports whether the exemplar's active loan must be closed
// as part of the transition.
func NeedsLoanReturn(from, to biblio.Status) bool {
	return from == biblio.StatusLoaned && to == biblio.StatusFree
}

// Plan is what a status change requires from the caller and the coordinator.
type Plan struct {
	From, To   biblio.Status
	NeedsUser  bool
	ReturnLoan bool
	CreateLoan bool
}

// ErrIllegalTransition is returned by PlanTransition for pairs outside the table.
type ErrIllegalTransition struct {
	From, To biblio.Status
}

func (e ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal exemplar transition %q -> %q", e.From, e.To)
}

// PlanTransition validates from -> to and describes the work it implies.
func PlanTransition(from, to biblio.Status) (Plan, error) {
	if !IsValidTransition(from, to) {
		return Plan{}, ErrIllegalTransition{From: from, To: to}
	}
	return Plan{
		From:       from,
		To:         to,
		NeedsUser:  NeedsUserSelection(from, to),
		ReturnLoan: NeedsLoanReturn(from, to),
		CreateLoan: to == biblio.StatusLoaned,
	}, nil
}
