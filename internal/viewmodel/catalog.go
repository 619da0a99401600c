package viewmodel

import (
	"context"
	"strings"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
	"github.com/five82/lector/internal/state"
)

// Catalog drives the books, authors and exemplars screens.
type Catalog struct {
	api   biblio.API
	coord *circulation.Coordinator

	Books     *state.Slot[[]biblio.Book]
	Authors   *state.Slot[[]biblio.Author]
	Exemplars *state.Slot[[]biblio.Exemplar]
	Free      *state.Slot[[]biblio.Exemplar]
	Change    *state.Slot[circulation.Change]
}

func NewCatalog(api biblio.API, coord *circulation.Coordinator) *Catalog {
	return &Catalog{
		api:       api,
		coord:     coord,
		Books:     state.NewListSlot[biblio.Book](),
		Authors:   state.NewListSlot[biblio.Author](),
		Exemplars: state.NewListSlot[biblio.Exemplar](),
		Free:      state.NewListSlot[biblio.Exemplar](),
		Change:    state.NewSlot[circulation.Change](),
	}
}

// ---- books ----

func (c *Catalog) LoadBooks(ctx context.Context) result.Result[[]biblio.Book] {
	return load(c.Books, failure.OpLoadBooks, func() ([]biblio.Book, error) {
		return c.api.ListBooks(ctx)
	})
}

// SaveBook creates the book when id is zero and updates it otherwise.
func (c *Catalog) SaveBook(ctx context.Context, id int64, req biblio.BookRequest) result.Result[biblio.Book] {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return invalid[biblio.Book](failure.OpSaveBook, "El títol és obligatori")
	}
	if req.Pages < 0 {
		return invalid[biblio.Book](failure.OpSaveBook, "El nombre de pàgines no pot ser negatiu")
	}
	res := call(failure.OpSaveBook, func() (biblio.Book, error) {
		if id == 0 {
			return deref(c.api.CreateBook(ctx, req))
		}
		return deref(c.api.UpdateBook(ctx, id, req))
	})
	if res.IsSuccess() {
		c.LoadBooks(ctx)
	}
	return res
}

func (c *Catalog) DeleteBook(ctx context.Context, id int64) result.Result[none] {
	res := call(failure.OpDeleteBook, func() (none, error) {
		return discard(c.api.DeleteBook(ctx, id))
	})
	if res.IsSuccess() {
		c.LoadBooks(ctx)
	}
	return res
}

// ---- authors ----

func (c *Catalog) LoadAuthors(ctx context.Context) result.Result[[]biblio.Author] {
	return load(c.Authors, failure.OpLoadAuthors, func() ([]biblio.Author, error) {
		return c.api.ListAuthors(ctx)
	})
}

// SaveAuthor creates the author when id is zero and updates it otherwise.
func (c *Catalog) SaveAuthor(ctx context.Context, id int64, req biblio.AuthorRequest) result.Result[biblio.Author] {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid[biblio.Author](failure.OpSaveAuthor, "El nom és obligatori")
	}
	res := call(failure.OpSaveAuthor, func() (biblio.Author, error) {
		if id == 0 {
			return deref(c.api.CreateAuthor(ctx, req))
		}
		return deref(c.api.UpdateAuthor(ctx, id, req))
	})
	if res.IsSuccess() {
		c.LoadAuthors(ctx)
	}
	return res
}

func (c *Catalog) DeleteAuthor(ctx context.Context, id int64) result.Result[none] {
	res := call(failure.OpDeleteAuthor, func() (none, error) {
		return discard(c.api.DeleteAuthor(ctx, id))
	})
	if res.IsSuccess() {
		c.LoadAuthors(ctx)
	}
	return res
}

// ---- exemplars ----

func (c *Catalog) LoadExemplars(ctx context.Context) result.Result[[]biblio.Exemplar] {
	return load(c.Exemplars, failure.OpLoadExemplars, func() ([]biblio.Exemplar, error) {
		return c.api.ListExemplars(ctx)
	})
}

func (c *Catalog) GetExemplar(ctx context.Context, id int64) result.Result[biblio.Exemplar] {
	return call(failure.OpLoadExemplars, func() (biblio.Exemplar, error) {
		return deref(c.api.GetExemplar(ctx, id))
	})
}

// SearchFree lists free exemplars whose title and author contain the
// given fragments. Blank fragments match everything.
func (c *Catalog) SearchFree(ctx context.Context, title, author string) result.Result[[]biblio.Exemplar] {
	return load(c.Free, failure.OpLoadExemplars, func() ([]biblio.Exemplar, error) {
		return c.api.SearchFreeExemplars(ctx, strings.TrimSpace(title), strings.TrimSpace(author))
	})
}

// SaveExemplar creates an exemplar when id is zero and edits its location or
// book otherwise. New exemplars start lliure; status changes on existing
// exemplars go through ChangeStatus.
func (c *Catalog) SaveExemplar(ctx context.Context, id int64, req biblio.ExemplarRequest) result.Result[biblio.Exemplar] {
	req.Location = strings.TrimSpace(req.Location)
	if id == 0 {
		if req.BookID <= 0 {
			return invalid[biblio.Exemplar](failure.OpSaveExemplar, "Cal indicar el llibre")
		}
		if req.Status == "" {
			req.Status = biblio.StatusFree
		}
	}
	if req.Status != "" && !req.Status.Valid() {
		return invalid[biblio.Exemplar](failure.OpSaveExemplar, "Estat desconegut: %s", req.Status)
	}
	res := call(failure.OpSaveExemplar, func() (biblio.Exemplar, error) {
		if id == 0 {
			return deref(c.api.CreateExemplar(ctx, req))
		}
		if req.Status == "" {
			current, err := c.api.GetExemplar(ctx, id)
			if err != nil {
				return biblio.Exemplar{}, err
			}
			req.Status = current.Status
		}
		return deref(c.api.UpdateExemplar(ctx, id, req))
	})
	if res.IsSuccess() {
		c.LoadExemplars(ctx)
	}
	return res
}

// DeleteExemplar removes ex unless it is lent.
func (c *Catalog) DeleteExemplar(ctx context.Context, ex biblio.Exemplar) (result.Result[none], error) {
	res, err := c.coord.DeleteExemplar(ctx, ex)
	if err != nil {
		return res, err
	}
	if res.IsSuccess() {
		c.LoadExemplars(ctx)
	} else {
		logFailure(res.Failure)
	}
	return res, nil
}

// ChangeStatus moves ex to target through the circulation coordinator and
// reloads the exemplar list when it succeeds. userID is required when the
// transition lends or reserves the copy.
func (c *Catalog) ChangeStatus(ctx context.Context, ex biblio.Exemplar, target biblio.Status, userID int64) (result.Result[circulation.Change], error) {
	c.Change.Begin()
	res, err := c.coord.ChangeStatus(ctx, ex, target, userID)
	if err != nil {
		c.Change.Reset()
		return res, err
	}
	c.Change.Publish(res)
	if res.IsSuccess() {
		c.LoadExemplars(ctx)
	}
	return res, nil
}
