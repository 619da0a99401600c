// Package failure turns transport and backend errors into user-facing
// categories with a Catalan message.
//
// Classification is advisory: it chooses the text a screen shows. Nothing in
// lector retries on the basis of a Kind.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/five82/lector/internal/biblio"
)

// Kind is the category of a failed operation.
type Kind int

const (
	Unknown Kind = iota
	InvalidCredentials
	Forbidden
	NotFound
	Conflict
	BadRequest
	Network
	// Validation marks requests rejected locally before any network call.
	Validation
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	InvalidCredentials: "invalid-credentials",
	Forbidden:          "forbidden",
	NotFound:           "not-found",
	Conflict:           "conflict",
	BadRequest:         "bad-request",
	Network:            "network-unreachable",
	Validation:         "validation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Op names the operation that failed; some classifications depend on it.
type Op string

const (
	OpLogin          Op = "login"
	OpLogout         Op = "logout"
	OpLoadUsers      Op = "load-users"
	OpGetUser        Op = "get-user"
	OpCreateUser     Op = "create-user"
	OpUpdateUser     Op = "update-user"
	OpDeleteUser     Op = "delete-user"
	OpLoadBooks      Op = "load-books"
	OpSaveBook       Op = "save-book"
	OpDeleteBook     Op = "delete-book"
	OpLoadAuthors    Op = "load-authors"
	OpSaveAuthor     Op = "save-author"
	OpDeleteAuthor   Op = "delete-author"
	OpLoadExemplars  Op = "load-exemplars"
	OpSaveExemplar   Op = "save-exemplar"
	OpDeleteExemplar Op = "delete-exemplar"
	OpChangeStatus   Op = "change-status"
	OpLoadLoans      Op = "load-loans"
	OpCreateLoan     Op = "create-loan"
	OpReturnLoan     Op = "return-loan"
	OpLoadGroups     Op = "load-groups"
	OpSaveGroup      Op = "save-group"
	OpDeleteGroup    Op = "delete-group"
	OpMembers        Op = "members"
	OpLoadSchedules  Op = "load-schedules"
	OpSaveSchedule   Op = "save-schedule"
)

// Field identifies which unique attribute a conflict concerns.
type Field string

const (
	FieldNone  Field = ""
	FieldNick  Field = "nick"
	FieldNif   Field = "nif"
	FieldEmail Field = "email"
	FieldLoan  Field = "loan"
)

// Failure is the classified outcome of a failed operation. It implements
// error so it can travel through ordinary error returns.
type Failure struct {
	Kind    Kind
	Op      Op
	Status  int
	Field   Field
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Message)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Message, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches another *Failure by Kind, so errors.Is(err, &Failure{Kind: NotFound}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Op == "" || t.Op == f.Op)
}

// Raw returns the underlying error text for diagnostics.
func (f *Failure) Raw() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// KindOf returns the Kind of err, or Unknown when err is not a *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}

// Invalid builds a Validation failure for a request rejected locally.
func Invalid(op Op, format string, args ...any) *Failure {
	return &Failure{Kind: Validation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Classify maps err, produced while running op, to a Failure. A nil err yields nil.
func Classify(op Op, err error) *Failure {
	if err == nil {
		return nil
	}
	var already *Failure
	if errors.As(err, &already) {
		return already
	}

	f := &Failure{Op: op, Err: err}
	f.Status = biblio.StatusCode(err)
	detail := apiMessage(err)
	if f.Status == 0 {
		if isNetwork(err) {
			f.Kind = Network
			f.Message = messageFor(op, Network, FieldNone, detail)
			return f
		}
		f.Status = statusFromText(err.Error())
		if f.Status == 0 {
			detail = err.Error()
		}
	}

	f.Kind = kindForStatus(op, f.Status)
	if isLoanConflict(op, f.Status, detail) {
		f.Kind = Conflict
		f.Field = FieldLoan
	}
	if f.Kind == Conflict && f.Field == FieldNone {
		f.Field = duplicateField(detail)
	}
	f.Message = messageFor(op, f.Kind, f.Field, detail)
	return f
}

func kindForStatus(op Op, status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		if op == OpLogin {
			return InvalidCredentials
		}
		return Forbidden
	case http.StatusForbidden:
		return Forbidden
	case http.StatusNotFound:
		return NotFound
	case http.StatusConflict:
		return Conflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return BadRequest
	}
	return Unknown
}

// isLoanConflict reports a 400/409 from loan creation that concerns an
// exemplar that already has an active loan.
func isLoanConflict(op Op, status int, detail string) bool {
	if op != OpCreateLoan && op != OpChangeStatus {
		return false
	}
	if status == http.StatusConflict {
		return op == OpCreateLoan || mentionsLoan(detail)
	}
	return status == http.StatusBadRequest && mentionsLoan(detail)
}

var loanMarkers = []string{"prestat", "already loaned", "already on loan", "ja està", "préstec actiu", "prestec actiu", "active loan"}

func mentionsLoan(detail string) bool {
	lower := strings.ToLower(detail)
	for _, marker := range loanMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var duplicateMarkers = []struct {
	marker string
	field  Field
}{
	{"nick", FieldNick},
	{"nif", FieldNif},
	{"email", FieldEmail},
	{"correu", FieldEmail},
}

// duplicateField names the field a conflict message is about. Messages name
// the offending field first and may quote others as context, so the earliest
// mention wins.
func duplicateField(detail string) Field {
	lower := strings.ToLower(detail)
	field, at := FieldNone, len(lower)
	for _, m := range duplicateMarkers {
		if i := strings.Index(lower, m.marker); i >= 0 && i < at {
			field, at = m.field, i
		}
	}
	return field
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "no such host", "timeout", "network is unreachable", "connection reset"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var statusPattern = regexp.MustCompile(`(?i)(?:status|http)[ :]*([1-5]\d\d)\b`)

// statusFromText recovers a status code from errors that lost their type,
// e.g. "HTTP 404 Not Found" or "returned status 403".
func statusFromText(text string) int {
	m := statusPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

func apiMessage(err error) string {
	var apiErr *biblio.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
