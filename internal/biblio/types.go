package biblio

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date the backend uses for loan dates.
const DateLayout = "2006-01-02"

// Status is the availability state of an exemplar.
type Status string

const (
	StatusFree     Status = "lliure"
	StatusReserved Status = "reservat"
	StatusLoaned   Status = "prestat"
)

// Statuses lists every known exemplar status in display order.
var Statuses = []Status{StatusFree, StatusLoaned, StatusReserved}

// ParseStatus normalizes user input into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown exemplar status %q", value)
	}
	return s, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusFree, StatusReserved, StatusLoaned:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Author mirrors an entry of /autors.
type Author struct {
	ID          int64  `json:"id"`
	Name        string `json:"nom"`
	Nationality string `json:"nacionalitat,omitempty"`
}

// Book mirrors an entry of /llibres.
type Book struct {
	ID        int64   `json:"id"`
	Title     string  `json:"titol"`
	ISBN      string  `json:"isbn,omitempty"`
	Publisher string  `json:"editorial,omitempty"`
	Pages     int     `json:"pagines,omitempty"`
	Edition   string  `json:"edicio,omitempty"`
	Author    *Author `json:"autor,omitempty"`
}

// AuthorName returns the author's name or an empty string.
func (b Book) AuthorName() string {
	if b.Author == nil {
		return ""
	}
	return b.Author.Name
}

// Exemplar is a physical copy of a book.
type Exemplar struct {
	ID       int64  `json:"id"`
	Location string `json:"lloc"`
	Status   Status `json:"reservat"`
	Book     *Book  `json:"llibre,omitempty"`
}

// Title returns the title of the owning book, if loaded.
func (e Exemplar) Title() string {
	if e.Book == nil {
		return ""
	}
	return e.Book.Title
}

// User is a library member or administrator.
type User struct {
	ID         int64  `json:"id"`
	Nick       string `json:"nick"`
	Name       string `json:"nom"`
	Surname1   string `json:"cognom1,omitempty"`
	Surname2   string `json:"cognom2,omitempty"`
	Nif        string `json:"nif,omitempty"`
	Street     string `json:"carrer,omitempty"`
	PostalCode string `json:"cp,omitempty"`
	Town       string `json:"localitat,omitempty"`
	Province   string `json:"provincia,omitempty"`
	Phone      string `json:"tlf,omitempty"`
	Email      string `json:"email,omitempty"`
	Admin      bool   `json:"admin"`
}

// FullName joins the name and surnames, skipping blanks.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.Name, u.Surname1, u.Surname2} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Loan (prestec) links a user to an exemplar. It is active while ReturnDate is nil.
type Loan struct {
	ID         int64     `json:"id"`
	LoanDate   string    `json:"dataPrestec"`
	ReturnDate *string   `json:"dataDevolucio"`
	User       *User     `json:"usuari,omitempty"`
	Exemplar   *Exemplar `json:"exemplar,omitempty"`
}

// Active reports whether the loan has not been returned.
func (l Loan) Active() bool { return l.ReturnDate == nil }

// UserID returns the borrower id, or zero when the user is not embedded.
func (l Loan) UserID() int64 {
	if l.User == nil {
		return 0
	}
	return l.User.ID
}

// ExemplarID returns the borrowed exemplar id, or zero when not embedded.
func (l Loan) ExemplarID() int64 {
	if l.Exemplar == nil {
		return 0
	}
	return l.Exemplar.ID
}

// ParsedLoanDate returns the loan date as time.Time when possible.
func (l Loan) ParsedLoanDate() (time.Time, error) {
	return ParseDate(l.LoanDate)
}

// Schedule (horari) is a room booking slot for reading groups.
type Schedule struct {
	ID    int64  `json:"id"`
	Room  string `json:"sala"`
	Day   string `json:"dia"`
	Hour  string `json:"hora"`
	State string `json:"estat,omitempty"`
}

// Group (grup) is a reading group.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nom"`
	Topic     string    `json:"tematica,omitempty"`
	Moderator *User     `json:"moderador,omitempty"`
	Schedule  *Schedule `json:"horari,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Nick     string `json:"nick"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token and the logged user's profile.
type LoginResponse struct {
	Token string `json:"token"`
	User
}

// CreateUserRequest is the body of POST /usuaris.
type CreateUserRequest struct {
	User
	Password string `json:"password"`
}

// UpdateUserRequest is the body of PUT /usuaris/{id}. Nil fields are left untouched.
type UpdateUserRequest struct {
	Nick       *string `json:"nick,omitempty"`
	Name       *string `json:"nom,omitempty"`
	Surname1   *string `json:"cognom1,omitempty"`
	Surname2   *string `json:"cognom2,omitempty"`
	Nif        *string `json:"nif,omitempty"`
	Street     *string `json:"carrer,omitempty"`
	PostalCode *string `json:"cp,omitempty"`
	Town       *string `json:"localitat,omitempty"`
	Province   *string `json:"provincia,omitempty"`
	Phone      *string `json:"tlf,omitempty"`
	Email      *string `json:"email,omitempty"`
	Admin      *bool   `json:"admin,omitempty"`
	Password   *string `json:"password,omitempty"`
}

// BookRequest is the body of POST/PUT /llibres.
type BookRequest struct {
	Title     string `json:"titol"`
	ISBN      string `json:"isbn,omitempty"`
	Publisher string `json:"editorial,omitempty"`
	Pages     int    `json:"pagines,omitempty"`
	Edition   string `json:"edicio,omitempty"`
	AuthorID  int64  `json:"autorId,omitempty"`
}

// AuthorRequest is the body of POST/PUT /autors.
type AuthorRequest struct {
	Name        string `json:"nom"`
	Nationality string `json:"nacionalitat,omitempty"`
}

// ExemplarRequest is the body of POST/PUT /exemplars.
type ExemplarRequest struct {
	Location string `json:"lloc"`
	Status   Status `json:"reservat"`
	BookID   int64  `json:"llibreId"`
}

// CreateLoanRequest is the body of POST /prestecs.
type CreateLoanRequest struct {
	UserID     int64  `json:"usuariId"`
	ExemplarID int64  `json:"exemplarId"`
	LoanDate   string `json:"dataPrestec"`
}

// GroupRequest is the body of POST /grups.
type GroupRequest struct {
	Name        string `json:"nom"`
	Topic       string `json:"tematica,omitempty"`
	ModeratorID int64  `json:"moderadorId,omitempty"`
	ScheduleID  int64  `json:"horariId,omitempty"`
}

// ScheduleRequest is the body of POST /horaris.
type ScheduleRequest struct {
	Room  string `json:"sala"`
	Day   string `json:"dia"`
	Hour  string `json:"hora"`
	State string `json:"estat,omitempty"`
}

// MessageResponse is the confirmation payload of logout, deletes and returns.
type MessageResponse struct {
	Message string `json:"message"`
}

// ParseDate accepts the backend date layout and RFC 3339 timestamps.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.ParseInLocation(DateLayout, trimmed, time.Local); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", value)
}

// FormatDate renders t in the backend date layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
