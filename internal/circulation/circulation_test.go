package circulation

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
)

// fakeAPI implements the calls the coordinator makes; anything else panics
// through the nil embedded interface.
type fakeAPI struct {
	biblio.API

	calls []string

	loans      []biblio.Loan
	listErr    error
	createErr  error
	returnErr  error
	updateErr  error
	getErr     error
	deleteErr  error
	lastCreate biblio.CreateLoanRequest
	lastUpdate biblio.ExemplarRequest
}

func (f *fakeAPI) ListActiveLoans(_ context.Context, _ int64) ([]biblio.Loan, error) {
	f.calls = append(f.calls, "list")
	return f.loans, f.listErr
}

func (f *fakeAPI) CreateLoan(_ context.Context, req biblio.CreateLoanRequest) (*biblio.Loan, error) {
	f.calls = append(f.calls, "create")
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &biblio.Loan{ID: 77, LoanDate: req.LoanDate, User: &biblio.User{ID: req.UserID}, Exemplar: &biblio.Exemplar{ID: req.ExemplarID}}, nil
}

func (f *fakeAPI) ReturnLoan(_ context.Context, id int64) (string, error) {
	f.calls = append(f.calls, "return")
	if f.returnErr != nil {
		return "", f.returnErr
	}
	return "Préstec retornat correctament", nil
}

func (f *fakeAPI) UpdateExemplar(_ context.Context, id int64, req biblio.ExemplarRequest) (*biblio.Exemplar, error) {
	f.calls = append(f.calls, "update")
	f.lastUpdate = req
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &biblio.Exemplar{ID: id, Location: req.Location, Status: req.Status}, nil
}

func (f *fakeAPI) GetExemplar(_ context.Context, id int64) (*biblio.Exemplar, error) {
	f.calls = append(f.calls, "get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &biblio.Exemplar{ID: id, Location: "fresh", Status: f.lastUpdate.Status}, nil
}

func (f *fakeAPI) DeleteExemplar(_ context.Context, id int64) error {
	f.calls = append(f.calls, "delete")
	return f.deleteErr
}

func apiErr(status int, msg string) error {
	return &biblio.APIError{Method: "POST", Path: "/x", StatusCode: status, Message: msg}
}

func fixedClock() time.Time {
	return time.Date(2024, time.March, 15, 10, 30, 0, 0, time.Local)
}

func TestIsValidTransition_Table(t *testing.T) {
	statuses := append(append([]biblio.Status{}, biblio.Statuses...), "perdut", "")
	valid := map[[2]biblio.Status]bool{
		{biblio.StatusFree, biblio.StatusLoaned}:     true,
		{biblio.StatusFree, biblio.StatusReserved}:   true,
		{biblio.StatusLoaned, biblio.StatusFree}:     true,
		{biblio.StatusReserved, biblio.StatusFree}:   true,
		{biblio.StatusReserved, biblio.StatusLoaned}: true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := valid[[2]biblio.Status{from, to}]
			if got := IsValidTransition(from, to); got != want {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionPredicates(t *testing.T) {
	tests := []struct {
		from, to   biblio.Status
		needsUser  bool
		needsRet   bool
		createLoan bool
	}{
		{biblio.StatusFree, biblio.StatusLoaned, true, false, true},
		{biblio.StatusFree, biblio.StatusReserved, true, false, false},
		{biblio.StatusReserved, biblio.StatusLoaned, true, false, true},
		{biblio.StatusReserved, biblio.StatusFree, false, false, false},
		{biblio.StatusLoaned, biblio.StatusFree, false, true, false},
	}
	for _, tc := range tests {
		if got := NeedsUserSelection(tc.from, tc.to); got != tc.needsUser {
			t.Errorf("NeedsUserSelection(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.needsUser)
		}
		if got := NeedsLoanReturn(tc.from, tc.to); got != tc.needsRet {
			t.Errorf("NeedsLoanReturn(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.needsRet)
		}
		plan, err := PlanTransition(tc.from, tc.to)
		if err != nil {
			t.Fatalf("PlanTransition(%s, %s): %v", tc.from, tc.to, err)
		}
		if plan.NeedsUser != tc.needsUser || plan.ReturnLoan != tc.needsRet || plan.CreateLoan != tc.createLoan {
			t.Errorf("PlanTransition(%s, %s) = %+v", tc.from, tc.to, plan)
		}
	}

	if _, err := PlanTransition(biblio.StatusLoaned, biblio.StatusReserved); !errors.As(err, new(ErrIllegalTransition)) {
		t.Fatalf("PlanTransition(prestat, reservat) err = %v, want ErrIllegalTransition", err)
	}
	if NeedsLoanReturn(biblio.StatusReserved, biblio.StatusFree) {
		t.Fatalf("reservat -> lliure should not return a loan")
	}
}

func TestTransitionPredicates_AllPairs(t *testing.T) {
	statuses := append(append([]biblio.Status{}, biblio.Statuses...), "perdut", "")
	needsUser := map[[2]biblio.Status]bool{
		{biblio.StatusFree, biblio.StatusLoaned}:     true,
		{biblio.StatusFree, biblio.StatusReserved}:   true,
		{biblio.StatusReserved, biblio.StatusLoaned}: true,
	}
	needsReturn := map[[2]biblio.Status]bool{
		{biblio.StatusLoaned, biblio.StatusFree}: true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			pair := [2]biblio.Status{from, to}
			if got := NeedsUserSelection(from, to); got != needsUser[pair] {
				t.Errorf("NeedsUserSelection(%q, %q) = %v, want %v", from, to, got, needsUser[pair])
			}
			if got := NeedsLoanReturn(from, to); got != needsReturn[pair] {
				t.Errorf("NeedsLoanReturn(%q, %q) = %v, want %v", from, to, got, needsReturn[pair])
			}
			_, err := PlanTransition(from, to)
			if legal := IsValidTransition(from, to); legal != (err == nil) {
				t.Errorf("PlanTransition(%q, %q) err = %v, legal %v", from, to, err, legal)
			}
		}
	}
}

func TestAllowedTargets_ReturnsCopy(t *testing.T) {
	got := AllowedTargets(biblio.StatusFree)
	if len(got) != 2 {
		t.Fatalf("AllowedTargets(lliure) = %v", got)
	}
	got[0] = "x"
	if AllowedTargets(biblio.StatusFree)[0] != biblio.StatusLoaned {
		t.Fatalf("AllowedTargets should not expose the table")
	}
	if len(AllowedTargets("perdut")) != 0 {
		t.Fatalf("unknown status should have no targets")
	}
}

func loan(id, user, exemplar int64, date string, returned bool) biblio.Loan {
	l := biblio.Loan{ID: id, LoanDate: date, User: &biblio.User{ID: user}, Exemplar: &biblio.Exemplar{ID: exemplar}}
	if returned {
		d := "2024-01-10"
		l.ReturnDate = &d
	}
	return l
}

func TestDerivedLoanQueries(t *testing.T) {
	loans := []biblio.Loan{
		loan(1, 10, 100, "2024-01-01", true),
		loan(2, 10, 101, "2024-01-02", false),
		loan(3, 11, 100, "2024-01-03", false),
		loan(4, 10, 102, "2024-01-04", false),
	}

	if got := ActiveLoanForExemplar(loans, 100); got == nil || got.ID != 3 {
		t.Fatalf("ActiveLoanForExemplar(100) = %#v, want loan 3", got)
	}
	if got := ActiveLoanForExemplar(loans, 999); got != nil {
		t.Fatalf("ActiveLoanForExemplar(999) = %#v, want nil", got)
	}
	if got := CountActiveLoans(loans, 10); got != 2 {
		t.Fatalf("CountActiveLoans(10) = %d, want 2", got)
	}
	if !HasActiveLoan(loans, 11) || HasActiveLoan(loans, 12) {
		t.Fatalf("HasActiveLoan mismatch")
	}
	if HasActiveLoan(nil, 10) || CountActiveLoans(nil, 10) != 0 {
		t.Fatalf("empty list should have no active loans")
	}
}

func TestLoanDays(t *testing.T) {
	now := fixedClock()
	tests := []struct {
		date string
		want int
	}{
		{"2024-03-10", 5},
		{"2024-03-15", 0},
		{"2024-02-28", 16},
		{"2024-03-10T08:00:00Z", 5},
		{"not-a-date", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := LoanDays(biblio.Loan{LoanDate: tc.date}, now); got != tc.want {
			t.Errorf("LoanDays(%q) = %d, want %d", tc.date, got, tc.want)
		}
	}
}

func TestCreateLoan_DefaultsDateToToday(t *testing.T) {
	api := &fakeAPI{}
	c := New(api, WithClock(fixedClock))

	res, err := c.CreateLoan(context.Background(), 3, 9, "")
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if !res.IsSuccess() || res.Value.ID != 77 {
		t.Fatalf("result = %#v, want success with loan 77", res)
	}
	if api.lastCreate.LoanDate != "2024-03-15" || api.lastCreate.UserID != 3 || api.lastCreate.ExemplarID != 9 {
		t.Fatalf("request = %#v", api.lastCreate)
	}
}

func TestCreateLoan_Validation(t *testing.T) {
	api := &fakeAPI{}
	c := New(api)

	if _, err := c.CreateLoan(context.Background(), 1, 0, ""); !errors.Is(err, ErrNoExemplar) {
		t.Fatalf("zero exemplar err = %v, want ErrNoExemplar", err)
	}
	res, err := c.CreateLoan(context.Background(), 0, 5, "")
	if err != nil || res.Kind() != failure.Validation {
		t.Fatalf("zero user = %#v, %v; want validation failure", res, err)
	}
	res, _ = c.CreateLoan(context.Background(), 1, 5, "15/03/2024")
	if res.Kind() != failure.Validation {
		t.Fatalf("bad date kind = %v, want validation", res.Kind())
	}
	if len(api.calls) != 0 {
		t.Fatalf("validation failures should not reach the backend: %v", api.calls)
	}
}

func TestCreateLoan_ClassifiesBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind failure.Kind
	}{
		{"already loaned 409", apiErr(409, ""), failure.Conflict},
		{"already loaned 400", apiErr(400, "Exemplar already loaned"), failure.Conflict},
		{"missing", apiErr(404, ""), failure.NotFound},
		{"not admin", apiErr(403, ""), failure.Forbidden},
		{"server", apiErr(500, "boom"), failure.Unknown},
		{"offline", syscall.ECONNREFUSED, failure.Network},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(&fakeAPI{createErr: tc.err})
			res, err := c.CreateLoan(context.Background(), 1, 2, "2024-03-01")
			if err != nil {
				t.Fatalf("unexpected hard error: %v", err)
			}
			if !res.IsFailed() || res.Kind() != tc.kind {
				t.Fatalf("kind = %v, want %v (%#v)", res.Kind(), tc.kind, res.Failure)
			}
		})
	}
}

func TestReturnLoan(t *testing.T) {
	c := New(&fakeAPI{})
	if _, err := c.ReturnLoan(context.Background(), 0); !errors.Is(err, ErrNoLoanID) {
		t.Fatalf("ReturnLoan(0) err = %v, want ErrNoLoanID", err)
	}
	res, err := c.ReturnLoan(context.Background(), 4)
	if err != nil || !res.IsSuccess() || !strings.Contains(res.Value, "retornat") {
		t.Fatalf("ReturnLoan(4) = %#v, %v", res, err)
	}

	c = New(&fakeAPI{returnErr: apiErr(404, "")})
	res, _ = c.ReturnLoan(context.Background(), 4)
	if res.Kind() != failure.NotFound {
		t.Fatalf("kind = %v, want not-found", res.Kind())
	}
}

func TestChangeStatus_RejectsIllegalTransitionBeforeIO(t *testing.T) {
	api := &fakeAPI{}
	c := New(api)
	ex := biblio.Exemplar{ID: 5, Status: biblio.StatusLoaned}

	res, err := c.ChangeStatus(context.Background(), ex, biblio.StatusReserved, 1)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if res.Kind() != failure.Validation || res.Value.Step != StepValidate {
		t.Fatalf("result = %#v, want validation failure at validate", res)
	}
	if len(api.calls) != 0 {
		t.Fatalf("calls = %v, want none", api.calls)
	}
}

func TestChangeStatus_RequiresUser(t *testing.T) {
	api := &fakeAPI{}
	res, _ := New(api).ChangeStatus(context.Background(), biblio.Exemplar{ID: 5, Status: biblio.StatusFree}, biblio.StatusReserved, 0)
	if res.Kind() != failure.Validation || len(api.calls) != 0 {
		t.Fatalf("result = %#v calls = %v", res, api.calls)
	}
}

func TestChangeStatus_LendCreatesLoanThenUpdates(t *testing.T) {
	api := &fakeAPI{}
	c := New(api, WithClock(fixedClock))
	ex := biblio.Exemplar{ID: 5, Location: "A1", Status: biblio.StatusFree, Book: &biblio.Book{ID: 8}}

	res, err := c.ChangeStatus(context.Background(), ex, biblio.StatusLoaned, 3)
	if err != nil || !res.IsSuccess() {
		t.Fatalf("ChangeStatus = %#v, %v", res, err)
	}
	if got := strings.Join(api.calls, ","); got != "create,update,get" {
		t.Fatalf("calls = %s, want create,update,get", got)
	}
	if api.lastUpdate.Status != biblio.StatusLoaned || api.lastUpdate.BookID != 8 || api.lastUpdate.Location != "A1" {
		t.Fatalf("update request = %#v", api.lastUpdate)
	}
	if res.Value.Created == nil || res.Value.Created.ID != 77 || res.Value.Exemplar.Location != "fresh" {
		t.Fatalf("change = %#v", res.Value)
	}
	if res.Value.Step != StepDone {
		t.Fatalf("Step = %s, want done", res.Value.Step)
	}
}

func TestChangeStatus_ReturnFindsActiveLoan(t *testing.T) {
	api := &fakeAPI{loans: []biblio.Loan{
		loan(1, 3, 5, "2024-01-01", true),
		loan(2, 3, 5, "2024-03-01", false),
	}}
	res, err := New(api).ChangeStatus(context.Background(), biblio.Exemplar{ID: 5, Status: biblio.StatusLoaned}, biblio.StatusFree, 0)
	if err != nil || !res.IsSuccess() {
		t.Fatalf("ChangeStatus = %#v, %v", res, err)
	}
	if got := strings.Join(api.calls, ","); got != "list,return,update,get" {
		t.Fatalf("calls = %s", got)
	}
	if res.Value.Returned == nil || res.Value.Returned.ID != 2 {
		t.Fatalf("returned = %#v, want loan 2", res.Value.Returned)
	}
	if res.Value.Exemplar.Status != biblio.StatusFree {
		t.Fatalf("status = %s, want lliure", res.Value.Exemplar.Status)
	}
}

func TestChangeStatus_StopsAtFailingStep(t *testing.T) {
	tests := []struct {
		name  string
		api   *fakeAPI
		from  biblio.Status
		to    biblio.Status
		step  Step
		kind  failure.Kind
		calls string
	}{
		{"create conflict", &fakeAPI{createErr: apiErr(409, "")}, biblio.StatusReserved, biblio.StatusLoaned, StepCreate, failure.Conflict, "create"},
		{"list offline", &fakeAPI{listErr: syscall.ECONNREFUSED}, biblio.StatusLoaned, biblio.StatusFree, StepFindLoan, failure.Network, "list"},
		{"return forbidden", &fakeAPI{loans: []biblio.Loan{loan(2, 3, 5, "2024-03-01", false)}, returnErr: apiErr(403, "")}, biblio.StatusLoaned, biblio.StatusFree, StepReturn, failure.Forbidden, "list,return"},
		{"update missing", &fakeAPI{updateErr: apiErr(404, "")}, biblio.StatusFree, biblio.StatusReserved, StepUpdate, failure.NotFound, "update"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := New(tc.api).ChangeStatus(context.Background(), biblio.Exemplar{ID: 5, Status: tc.from}, tc.to, 3)
			if err != nil {
				t.Fatalf("unexpected hard error: %v", err)
			}
			if !res.IsFailed() || res.Kind() != tc.kind || res.Value.Step != tc.step {
				t.Fatalf("result = kind %v step %s, want %v at %s", res.Kind(), res.Value.Step, tc.kind, tc.step)
			}
			if got := strings.Join(tc.api.calls, ","); got != tc.calls {
				t.Fatalf("calls = %s, want %s", got, tc.calls)
			}
		})
	}
}

func TestChangeStatus_ReloadFailureKeepsUpdate(t *testing.T) {
	api := &fakeAPI{getErr: apiErr(500, "")}
	res, _ := New(api).ChangeStatus(context.Background(), biblio.Exemplar{ID: 5, Location: "B2", Status: biblio.StatusReserved}, biblio.StatusFree, 0)
	if !res.IsSuccess() || res.Value.Exemplar.Status != biblio.StatusFree || res.Value.Exemplar.Location != "B2" {
		t.Fatalf("result = %#v", res)
	}
}

func TestDeleteExemplar_RefusesLoaned(t *testing.T) {
	api := &fakeAPI{}
	c := New(api)
	res, err := c.DeleteExemplar(context.Background(), biblio.Exemplar{ID: 5, Status: biblio.StatusLoaned})
	if err != nil || res.Kind() != failure.Validation || len(api.calls) != 0 {
		t.Fatalf("delete loaned = %#v, %v, calls %v", res, err, api.calls)
	}
	res, _ = c.DeleteExemplar(context.Background(), biblio.Exemplar{ID: 5, Status: biblio.StatusFree})
	if !res.IsSuccess() || len(api.calls) != 1 {
		t.Fatalf("delete free = %#v, calls %v", res, api.calls)
	}
}
