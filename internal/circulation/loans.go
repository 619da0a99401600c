package circulation

import (
	"time"

	"github.com/five82/lector/internal/biblio"
)

// ActiveLoanForExemplar returns the loan of exemplarID that has no return
// date, or nil. The backend keeps at most one; the first found is returned.
func ActiveLoanForExemplar(loans []biblio.Loan, exemplarID int64) *biblio.Loan {
	for i := range loans {
		if loans[i].ExemplarID() == exemplarID && loans[i].Active() {
			loan := loans[i]
			return &loan
		}
	}
	return nil
}

// HasActiveLoan reports whether userID has any unreturned loan.
func HasActiveLoan(loans []biblio.Loan, userID int64) bool {
	return CountActiveLoans(loans, userID) > 0
}

// CountActiveLoans counts the unreturned loans of userID.
func CountActiveLoans(loans []biblio.Loan, userID int64) int {
	n := 0
	for _, l := range loans {
		if l.UserID() == userID && l.Active() {
			n++
		}
	}
	return n
}

// LoanDays is the number of calendar days between the loan date and now.
// An unparsable loan date yields 0.
func LoanDays(loan biblio.Loan, now time.Time) int {
	start, err := loan.ParsedLoanDate()
	if err != nil {
		return 0
	}
	return daysBetween(start, now)
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
