package devserver

import (
	"fmt"

	"github.com/five82/lector/internal/biblio"
)

// SeedAdmin creates the administrator account and returns it.
func (s *Server) SeedAdmin(nick, password string) (biblio.User, error) {
	return s.AddUser(biblio.User{Nick: nick, Name: "Administrador", Admin: true}, password)
}

// AddUser creates an account directly, bypassing the HTTP layer.
func (s *Server) AddUser(u biblio.User, password string) (biblio.User, error) {
	user, err := s.store.createUser(u, password)
	if err != nil {
		return biblio.User{}, fmt.Errorf("seed user %s: %w", u.Nick, err)
	}
	return user, nil
}

// AddExemplar creates an author, book and one free copy of it.
func (s *Server) AddExemplar(title, author, location string) (biblio.Exemplar, error) {
	var a biblio.Author
	for _, existing := range s.store.listAuthors() {
		if existing.Name == author {
			a = existing
			break
		}
	}
	if a.ID == 0 {
		var err error
		if a, err = s.store.saveAuthor(0, biblio.AuthorRequest{Name: author}); err != nil {
			return biblio.Exemplar{}, fmt.Errorf("seed author: %w", err)
		}
	}
	b, err := s.store.saveBook(0, biblio.BookRequest{Title: title, AuthorID: a.ID})
	if err != nil {
		return biblio.Exemplar{}, fmt.Errorf("seed book: %w", err)
	}
	ex, err := s.store.saveExemplar(0, biblio.ExemplarRequest{Location: location, Status: biblio.StatusFree, BookID: b.ID})
	if err != nil {
		return biblio.Exemplar{}, fmt.Errorf("seed exemplar: %w", err)
	}
	return ex, nil
}

// SeedSamples adds a few readers, books and a reading group for manual testing.
func (s *Server) SeedSamples() error {
	readers := []biblio.User{
		{Nick: "marta", Name: "Marta", Surname1: "Puig", Nif: "12345678Z", Email: "marta@example.org", Town: "Girona"},
		{Nick: "joan", Name: "Joan", Surname1: "Serra", Surname2: "Vila", Nif: "87654321X", Email: "joan@example.org", Town: "Lleida"},
	}
	var moderator int64
	for _, r := range readers {
		u, err := s.AddUser(r, r.Nick)
		if err != nil {
			return err
		}
		if moderator == 0 {
			moderator = u.ID
		}
	}

	books := []struct{ title, author, location string }{
		{"Mirall trencat", "Mercè Rodoreda", "A1"},
		{"La plaça del Diamant", "Mercè Rodoreda", "A2"},
		{"Tirant lo Blanc", "Joanot Martorell", "B1"},
		{"Solitud", "Víctor Català", "B2"},
		{"Incerta glòria", "Joan Sales", "C1"},
	}
	for _, b := range books {
		if _, err := s.AddExemplar(b.title, b.author, b.location); err != nil {
			return err
		}
	}

	h, err := s.store.createSchedule(biblio.ScheduleRequest{Room: "Sala 1", Day: "dimarts", Hour: "18:00"})
	if err != nil {
		return fmt.Errorf("seed schedule: %w", err)
	}
	g, err := s.store.createGroup(biblio.GroupRequest{Name: "Club de lectura", Topic: "Clàssics catalans", ModeratorID: moderator, ScheduleID: h.ID})
	if err != nil {
		return fmt.Errorf("seed group: %w", err)
	}
	return s.store.setMember(g.ID, moderator, true)
}
