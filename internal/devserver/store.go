package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/five82/lector/internal/biblio"
)

var (
	errNotFound     = errors.New("not found")
	errBadPassword  = errors.New("invalid credentials")
	errAlreadyLent  = errors.New("L'exemplar ja està prestat")
	errLoanReturned = errors.New("El préstec ja s'ha retornat")
	errNotOwner     = errors.New("Només pots retornar els teus préstecs")
)

// conflictError names the unique field that collided.
type conflictError struct{ msg string }

func (e conflictError) Error() string { return e.msg }

type userRecord struct {
	biblio.User
	hash []byte
}

type groupRecord struct {
	biblio.Group
	moderatorID int64
	scheduleID  int64
	members     map[int64]bool
}

// store is the in-memory library. All methods take the lock; values returned
// are copies with relations resolved.
type store struct {
	mu   sync.Mutex
	cost int
	now  func() time.Time
	seq  int64

	users     map[int64]*userRecord
	authors   map[int64]biblio.Author
	books     map[int64]bookRecord
	exemplars map[int64]exemplarRecord
	loans     map[int64]loanRecord
	groups    map[int64]*groupRecord
	schedules map[int64]biblio.Schedule
}

type bookRecord struct {
	biblio.Book
	authorID int64
}

type exemplarRecord struct {
	ID       int64
	Location string
	Status   biblio.Status
	BookID   int64
}

type loanRecord struct {
	ID         int64
	UserID     int64
	ExemplarID int64
	LoanDate   string
	ReturnDate *string
}

func newStore(cost int, now func() time.Time) *store {
	return &store{
		cost:      cost,
		now:       now,
		users:     map[int64]*userRecord{},
		authors:   map[int64]biblio.Author{},
		books:     map[int64]bookRecord{},
		exemplars: map[int64]exemplarRecord{},
		loans:     map[int64]loanRecord{},
		groups:    map[int64]*groupRecord{},
		schedules: map[int64]biblio.Schedule{},
	}
}

func (s *store) nextID() int64 {
	s.seq++
	return s.seq
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ---- users ----

func (s *store) authenticate(nick, password string) (biblio.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Nick != nick {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
			return biblio.User{}, errBadPassword
		}
		return u.User, nil
	}
	return biblio.User{}, errBadPassword
}

func (s *store) user(id int64) (biblio.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return biblio.User{}, errNotFound
	}
	return u.User, nil
}

func (s *store) userByNif(nif string) (biblio.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Nif, nif) {
			return u.User, nil
		}
	}
	return biblio.User{}, errNotFound
}

func (s *store) listUsers() []biblio.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.User, 0, len(s.users))
	for _, id := range sortedKeys(s.users) {
		out = append(out, s.users[id].User)
	}
	return out
}

// uniqueLocked checks nick, nif and email against every user except skip.
func (s *store) uniqueLocked(u biblio.User, skip int64) error {
	for id, other := range s.users {
		if id == skip {
			continue
		}
		switch {
		case u.Nick != "" && strings.EqualFold(other.Nick, u.Nick):
			return conflictError{msg: fmt.Sprintf("El nick %s ja existeix", u.Nick)}
		case u.Nif != "" && strings.EqualFold(other.Nif, u.Nif):
			return conflictError{msg: fmt.Sprintf("El NIF %s ja existeix", u.Nif)}
		case u.Email != "" && strings.EqualFold(other.Email, u.Email):
			return conflictError{msg: fmt.Sprintf("L'email %s ja existeix", u.Email)}
		}
	}
	return nil
}

func (s *store) createUser(u biblio.User, password string) (biblio.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return biblio.User{}, fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uniqueLocked(u, 0); err != nil {
		return biblio.User{}, err
	}
	u.ID = s.nextID()
	s.users[u.ID] = &userRecord{User: u, hash: hash}
	return u, nil
}

func (s *store) updateUser(id int64, req biblio.UpdateUserRequest) (biblio.User, error) {
	var hash []byte
	if req.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cost)
		if err != nil {
			return biblio.User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return biblio.User{}, errNotFound
	}
	next := rec.User
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&next.Nick, req.Nick)
	set(&next.Name, req.Name)
	set(&next.Surname1, req.Surname1)
	set(&next.Surname2, req.Surname2)
	set(&next.Nif, req.Nif)
	set(&next.Street, req.Street)
	set(&next.PostalCode, req.PostalCode)
	set(&next.Town, req.Town)
	set(&next.Province, req.Province)
	set(&next.Phone, req.Phone)
	set(&next.Email, req.Email)
	if req.Admin != nil {
		next.Admin = *req.Admin
	}
	if err := s.uniqueLocked(next, id); err != nil {
		return biblio.User{}, err
	}
	rec.User = next
	if hash != nil {
		rec.hash = hash
	}
	return next, nil
}

func (s *store) deleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errNotFound
	}
	for _, l := range s.loans {
		if l.UserID == id && l.ReturnDate == nil {
			return conflictError{msg: "L'usuari té préstecs actius"}
		}
	}
	delete(s.users, id)
	for _, g := range s.groups {
		delete(g.members, id)
	}
	return nil
}

// ---- authors and books ----

func (s *store) listAuthors() []biblio.Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.Author, 0, len(s.authors))
	for _, id := range sortedKeys(s.authors) {
		out = append(out, s.authors[id])
	}
	return out
}

func (s *store) saveAuthor(id int64, req biblio.AuthorRequest) (biblio.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == 0 {
		id = s.nextID()
	} else if _, ok := s.authors[id]; !ok {
		return biblio.Author{}, errNotFound
	}
	a := biblio.Author{ID: id, Name: req.Name, Nationality: req.Nationality}
	s.authors[id] = a
	return a, nil
}

func (s *store) deleteAuthor(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[id]; !ok {
		return errNotFound
	}
	for _, b := range s.books {
		if b.authorID == id {
			return conflictError{msg: "L'autor té llibres associats"}
		}
	}
	delete(s.authors, id)
	return nil
}

func (s *store) bookLocked(id int64) *biblio.Book {
	rec, ok := s.books[id]
	if !ok {
		return nil
	}
	b := rec.Book
	if a, ok := s.authors[rec.authorID]; ok {
		b.Author = &a
	}
	return &b
}

func (s *store) listBooks() []biblio.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.Book, 0, len(s.books))
	for _, id := range sortedKeys(s.books) {
		out = append(out, *s.bookLocked(id))
	}
	return out
}

func (s *store) saveBook(id int64, req biblio.BookRequest) (biblio.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == 0 {
		id = s.nextID()
	} else if _, ok := s.books[id]; !ok {
		return biblio.Book{}, errNotFound
	}
	if req.AuthorID != 0 {
		if _, ok := s.authors[req.AuthorID]; !ok {
			return biblio.Book{}, errNotFound
		}
	}
	s.books[id] = bookRecord{
		Book: biblio.Book{
			ID:        id,
			Title:     req.Title,
			ISBN:      req.ISBN,
			Publisher: req.Publisher,
			Pages:     req.Pages,
			Edition:   req.Edition,
		},
		authorID: req.AuthorID,
	}
	return *s.bookLocked(id), nil
}

func (s *store) deleteBook(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return errNotFound
	}
	for _, e := range s.exemplars {
		if e.BookID == id {
			return conflictError{msg: "El llibre té exemplars associats"}
		}
	}
	delete(s.books, id)
	return nil
}

// ---- exemplars ----

func (s *store) exemplarLocked(id int64) (biblio.Exemplar, bool) {
	rec, ok := s.exemplars[id]
	if !ok {
		return biblio.Exemplar{}, false
	}
	return biblio.Exemplar{ID: rec.ID, Location: rec.Location, Status: rec.Status, Book: s.bookLocked(rec.BookID)}, true
}

func (s *store) exemplar(id int64) (biblio.Exemplar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.exemplarLocked(id)
	if !ok {
		return biblio.Exemplar{}, errNotFound
	}
	return ex, nil
}

func (s *store) listExemplars(keep func(biblio.Exemplar) bool) []biblio.Exemplar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.Exemplar, 0, len(s.exemplars))
	for _, id := range sortedKeys(s.exemplars) {
		ex, _ := s.exemplarLocked(id)
		if keep == nil || keep(ex) {
			out = append(out, ex)
		}
	}
	return out
}

func (s *store) saveExemplar(id int64, req biblio.ExemplarRequest) (biblio.Exemplar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == 0 {
		id = s.nextID()
	} else if _, ok := s.exemplars[id]; !ok {
		return biblio.Exemplar{}, errNotFound
	}
	if _, ok := s.books[req.BookID]; !ok && req.BookID != 0 {
		return biblio.Exemplar{}, errNotFound
	}
	rec := exemplarRecord{ID: id, Location: req.Location, Status: req.Status, BookID: req.BookID}
	if old, ok := s.exemplars[id]; ok && req.BookID == 0 {
		rec.BookID = old.BookID
	}
	if rec.Status == "" {
		rec.Status = biblio.StatusFree
	}
	s.exemplars[id] = rec
	ex, _ := s.exemplarLocked(id)
	return ex, nil
}

func (s *store) deleteExemplar(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.exemplars[id]
	if !ok {
		return errNotFound
	}
	if rec.Status == biblio.StatusLoaned {
		return conflictError{msg: "L'exemplar està prestat"}
	}
	delete(s.exemplars, id)
	return nil
}

// ---- loans ----

func (s *store) loanLocked(rec loanRecord) biblio.Loan {
	l := biblio.Loan{ID: rec.ID, LoanDate: rec.LoanDate, ReturnDate: rec.ReturnDate}
	if u, ok := s.users[rec.UserID]; ok {
		user := u.User
		l.User = &user
	}
	if ex, ok := s.exemplarLocked(rec.ExemplarID); ok {
		l.Exemplar = &ex
	}
	return l
}

func (s *store) listLoans(userID int64, activeOnly bool) []biblio.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.Loan, 0, len(s.loans))
	for _, id := range sortedKeys(s.loans) {
		rec := s.loans[id]
		if userID > 0 && rec.UserID != userID {
			continue
		}
		if activeOnly && rec.ReturnDate != nil {
			continue
		}
		out = append(out, s.loanLocked(rec))
	}
	return out
}

func (s *store) createLoan(req biblio.CreateLoanRequest) (biblio.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.UserID]; !ok {
		return biblio.Loan{}, errNotFound
	}
	ex, ok := s.exemplars[req.ExemplarID]
	if !ok {
		return biblio.Loan{}, errNotFound
	}
	for _, l := range s.loans {
		if l.ExemplarID == req.ExemplarID && l.ReturnDate == nil {
			return biblio.Loan{}, errAlreadyLent
		}
	}
	if ex.Status == biblio.StatusLoaned {
		return biblio.Loan{}, errAlreadyLent
	}
	rec := loanRecord{ID: s.nextID(), UserID: req.UserID, ExemplarID: req.ExemplarID, LoanDate: req.LoanDate}
	if rec.LoanDate == "" {
		rec.LoanDate = biblio.FormatDate(s.now())
	}
	s.loans[rec.ID] = rec
	ex.Status = biblio.StatusLoaned
	s.exemplars[ex.ID] = ex
	return s.loanLocked(rec), nil
}

// returnLoan closes loan id on behalf of callerID. Only the borrower or an
// administrator may return a loan.
func (s *store) returnLoan(id, callerID int64, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.loans[id]
	if !ok {
		return errNotFound
	}
	if !admin && rec.UserID != callerID {
		return errNotOwner
	}
	if rec.ReturnDate != nil {
		return errLoanReturned
	}
	today := biblio.FormatDate(s.now())
	rec.ReturnDate = &today
	s.loans[id] = rec
	if ex, ok := s.exemplars[rec.ExemplarID]; ok {
		ex.Status = biblio.StatusFree
		s.exemplars[ex.ID] = ex
	}
	return nil
}

// ---- groups and schedules ----

func (s *store) groupLocked(g *groupRecord) biblio.Group {
	out := g.Group
	if u, ok := s.users[g.moderatorID]; ok {
		mod := u.User
		out.Moderator = &mod
	}
	if h, ok := s.schedules[g.scheduleID]; ok {
		out.Schedule = &h
	}
	return out
}

func (s *store) listGroups() []biblio.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.Group, 0, len(s.groups))
	for _, id := range sortedKeys(s.groups) {
		out = append(out, s.groupLocked(s.groups[id]))
	}
	return out
}

func (s *store) createGroup(req biblio.GroupRequest) (biblio.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ModeratorID != 0 {
		if _, ok := s.users[req.ModeratorID]; !ok {
			return biblio.Group{}, errNotFound
		}
	}
	if req.ScheduleID != 0 {
		if _, ok := s.schedules[req.ScheduleID]; !ok {
			return biblio.Group{}, errNotFound
		}
	}
	g := &groupRecord{
		Group:       biblio.Group{ID: s.nextID(), Name: req.Name, Topic: req.Topic},
		moderatorID: req.ModeratorID,
		scheduleID:  req.ScheduleID,
		members:     map[int64]bool{},
	}
	s.groups[g.ID] = g
	return s.groupLocked(g), nil
}

func (s *store) deleteGroup(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return errNotFound
	}
	delete(s.groups, id)
	return nil
}

func (s *store) setMember(groupID, userID int64, member bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return errNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return errNotFound
	}
	if member {
		if g.members[userID] {
			return conflictError{msg: "L'usuari ja és membre del grup"}
		}
		g.members[userID] = true
		return nil
	}
	if !g.members[userID] {
		return errNotFound
	}
	delete(g.members, userID)
	return nil
}

func (s *store) members(groupID int64) ([]biblio.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, errNotFound
	}
	out := make([]biblio.User, 0, len(g.members))
	for _, id := range sortedKeys(g.members) {
		if u, ok := s.users[id]; ok {
			out = append(out, u.User)
		}
	}
	return out, nil
}

func (s *store) listSchedules() []biblio.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]biblio.Schedule, 0, len(s.schedules))
	for _, id := range sortedKeys(s.schedules) {
		out = append(out, s.schedules[id])
	}
	return out
}

func (s *store) createSchedule(req biblio.ScheduleRequest) (biblio.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.schedules {
		if strings.EqualFold(h.Room, req.Room) && strings.EqualFold(h.Day, req.Day) && h.Hour == req.Hour {
			return biblio.Schedule{}, conflictError{msg: "La sala ja està reservada en aquest horari"}
		}
	}
	h := biblio.Schedule{ID: s.nextID(), Room: req.Room, Day: req.Day, Hour: req.Hour, State: req.State}
	if h.State == "" {
		h.State = "lliure"
	}
	s.schedules[h.ID] = h
	return h, nil
}
