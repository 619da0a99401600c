package viewmodel

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
	"github.com/five82/lector/internal/devserver"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/session"
)

var today = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.Local)

type fixture struct {
	srv  *devserver.Server
	url  string
	sess *session.Store
	vm   *Set
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := func() time.Time { return today }
	srv := devserver.New(devserver.WithBcryptCost(bcrypt.MinCost), devserver.WithClock(clock))
	if _, err := srv.SeedAdmin("admin", "admin"); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	sess := session.New()
	client, err := biblio.NewClient(ts.URL, biblio.WithTokenSource(sess))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	coord := circulation.New(client, circulation.WithClock(clock))
	return &fixture{srv: srv, url: ts.URL, sess: sess, vm: New(client, sess, coord)}
}

func (f *fixture) loginAdmin(t *testing.T) biblio.User {
	t.Helper()
	res := f.vm.Auth.Login(context.Background(), "admin", "admin")
	if !res.IsSuccess() {
		t.Fatalf("Login(admin) failed: %s", res.Message())
	}
	return res.Value
}

func TestLogin_WrongPasswordLeavesTokenUnset(t *testing.T) {
	f := newFixture(t)
	res := f.vm.Auth.Login(context.Background(), "admin", "wrong")
	if res.Kind() != failure.InvalidCredentials {
		t.Fatalf("kind = %v, want invalid-credentials", res.Kind())
	}
	if res.Message() != "Usuari o contrasenya incorrectes" {
		t.Fatalf("message = %q", res.Message())
	}
	if f.sess.LoggedIn() {
		t.Fatalf("token should stay unset after a failed login")
	}
	if snap := f.vm.Auth.Profile.Snapshot(); !snap.Result.IsFailed() || snap.HasValue {
		t.Fatalf("profile slot = %#v", snap)
	}
}

func TestLogin_BlankFieldsAreRejectedLocally(t *testing.T) {
	f := newFixture(t)
	if res := f.vm.Auth.Login(context.Background(), "  ", "x"); res.Kind() != failure.Validation {
		t.Fatalf("kind = %v, want validation", res.Kind())
	}
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)
	if !f.sess.IsAdmin() || f.sess.Get() == "" || admin.Nick != "admin" {
		t.Fatalf("session after login = %q admin=%v", f.sess.Get(), f.sess.IsAdmin())
	}
	if _, ok := f.sess.ExpiresAt(); !ok {
		t.Fatalf("devserver tokens should carry exp")
	}

	res := f.vm.Auth.Logout(context.Background())
	if !res.IsSuccess() || f.sess.LoggedIn() {
		t.Fatalf("Logout = %#v, logged in = %v", res, f.sess.LoggedIn())
	}

	// A second logout fails on the backend but still leaves the session clear.
	res = f.vm.Auth.Logout(context.Background())
	if !res.IsFailed() || f.sess.LoggedIn() {
		t.Fatalf("second Logout = %#v", res)
	}
}

func TestUsers_CreateDuplicateNickNamesValue(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	res := f.vm.Users.Create(context.Background(), biblio.CreateUserRequest{User: biblio.User{Nick: "admin", Name: "Altre"}, Password: "pw"})
	if res.Kind() != failure.Conflict {
		t.Fatalf("kind = %v, want conflict", res.Kind())
	}
	if !strings.Contains(res.Message(), "admin") {
		t.Fatalf("message %q should mention the duplicate nick", res.Message())
	}
	if res.Failure.Field != failure.FieldNick {
		t.Fatalf("field = %q, want nick", res.Failure.Field)
	}
}

func TestUsers_CreateDuplicateNif(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)
	ctx := context.Background()

	first := f.vm.Users.Create(ctx, biblio.CreateUserRequest{User: biblio.User{Nick: "anna", Nif: "12345678Z"}, Password: "pw"})
	if !first.IsSuccess() {
		t.Fatalf("Create(anna) = %s", first.Message())
	}
	if n := len(f.vm.Users.List.Snapshot().Value); n != 2 {
		t.Fatalf("user list after create = %d, want 2", n)
	}

	res := f.vm.Users.Create(ctx, biblio.CreateUserRequest{User: biblio.User{Nick: "berta", Nif: "12345678Z"}, Password: "pw"})
	if res.Kind() != failure.Conflict || res.Failure.Field != failure.FieldNif || !strings.Contains(res.Message(), "12345678Z") {
		t.Fatalf("duplicate NIF = %#v", res.Failure)
	}

	found := f.vm.Users.FindByNif(ctx, "12345678Z")
	if !found.IsSuccess() || found.Value.Nick != "anna" {
		t.Fatalf("FindByNif = %#v", found)
	}
	missing := f.vm.Users.FindByNif(ctx, "00000000T")
	if missing.Kind() != failure.NotFound {
		t.Fatalf("FindByNif(missing) kind = %v, want not-found", missing.Kind())
	}
}

func TestUsers_DeleteSelfIsForbidden(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)

	res := f.vm.Users.Delete(context.Background(), admin.ID)
	if res.Kind() != failure.Forbidden {
		t.Fatalf("kind = %v, want forbidden", res.Kind())
	}
	if res.Message() == "" {
		t.Fatalf("forbidden failure should carry a message")
	}
}

func TestUsers_UpdateAndResetPassword(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)
	ctx := context.Background()

	created := f.vm.Users.Create(ctx, biblio.CreateUserRequest{User: biblio.User{Nick: "pau"}, Password: "old"})
	if !created.IsSuccess() {
		t.Fatalf("Create = %s", created.Message())
	}
	town := "Reus"
	updated := f.vm.Users.Update(ctx, created.Value.ID, biblio.UpdateUserRequest{Town: &town})
	if !updated.IsSuccess() || updated.Value.Town != "Reus" {
		t.Fatalf("Update = %#v", updated)
	}
	if got := f.vm.Users.Selected.Snapshot().Value.Town; got != "Reus" {
		t.Fatalf("Selected.Town = %q, want Reus", got)
	}

	nick := "admin"
	dup := f.vm.Users.Update(ctx, created.Value.ID, biblio.UpdateUserRequest{Nick: &nick})
	if dup.Kind() != failure.Conflict || !strings.Contains(dup.Message(), "admin") {
		t.Fatalf("Update duplicate = %#v", dup.Failure)
	}

	if res := f.vm.Users.ResetPassword(ctx, created.Value.ID, ""); res.Kind() != failure.Validation {
		t.Fatalf("empty password kind = %v", res.Kind())
	}
	if res := f.vm.Users.ResetPassword(ctx, created.Value.ID, "new"); !res.IsSuccess() {
		t.Fatalf("ResetPassword = %s", res.Message())
	}
	other := New(f.anonClient(t), session.New(), nil)
	if res := other.Auth.Login(ctx, "pau", "new"); !res.IsSuccess() {
		t.Fatalf("login with new password failed: %s", res.Message())
	}
}

// anonClient returns an unauthenticated client against the same server.
func (f *fixture) anonClient(t *testing.T) biblio.API {
	t.Helper()
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)
	client, err := biblio.NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestLoans_CreateThenReturnRoundTrip(t *testing.T) {
	f := newFixture(t)
	reader, _ := f.srv.AddUser(biblio.User{Nick: "marta"}, "pw")
	ex, _ := f.srv.AddExemplar("Solitud", "Víctor Català", "B2")
	f.loginAdmin(t)
	ctx := context.Background()

	created, err := f.vm.Loans.Create(ctx, reader.ID, ex.ID, "")
	if err != nil || !created.IsSuccess() {
		t.Fatalf("Create = %#v, %v", created, err)
	}
	if created.Value.LoanDate != "2024-03-15" {
		t.Fatalf("LoanDate = %q, want today", created.Value.LoanDate)
	}
	if got := f.vm.Catalog.GetExemplar(ctx, ex.ID); got.Value.Status != biblio.StatusLoaned {
		t.Fatalf("status after loan = %s, want prestat", got.Value.Status)
	}
	if f.vm.Loans.CountFor(reader.ID) != 1 || f.vm.Loans.ActiveFor(ex.ID) == nil {
		t.Fatalf("active slot not refreshed after create")
	}
	if d := f.vm.Loans.DaysOut(created.Value); d != 0 {
		t.Fatalf("DaysOut = %d, want 0", d)
	}

	again, err := f.vm.Loans.Create(ctx, reader.ID, ex.ID, "")
	if err != nil || again.Kind() != failure.Conflict || again.Message() != "L'exemplar ja està prestat" {
		t.Fatalf("second loan = %#v, %v", again.Failure, err)
	}

	returned, err := f.vm.Loans.Return(ctx, created.Value.ID)
	if err != nil || !returned.IsSuccess() || returned.Value == "" {
		t.Fatalf("Return = %#v, %v", returned, err)
	}
	if got := f.vm.Catalog.GetExemplar(ctx, ex.ID); got.Value.Status != biblio.StatusFree {
		t.Fatalf("status after return = %s, want lliure", got.Value.Status)
	}
	if f.vm.Loans.CountFor(reader.ID) != 0 {
		t.Fatalf("active loans should be empty after return")
	}

	history := f.vm.Loans.LoadAll(ctx, reader.ID)
	if !history.IsSuccess() || len(history.Value) != 1 || history.Value[0].Active() {
		t.Fatalf("history = %#v", history)
	}

	if _, err := f.vm.Loans.Return(ctx, 0); !errors.Is(err, circulation.ErrNoLoanID) {
		t.Fatalf("Return(0) err = %v, want ErrNoLoanID", err)
	}
	missing, _ := f.vm.Loans.Return(ctx, 4242)
	if missing.Kind() != failure.NotFound {
		t.Fatalf("Return(missing) kind = %v", missing.Kind())
	}
}

func TestLoans_NonAdminIsForbidden(t *testing.T) {
	f := newFixture(t)
	reader, _ := f.srv.AddUser(biblio.User{Nick: "joan"}, "pw")
	ex, _ := f.srv.AddExemplar("Mirall trencat", "Mercè Rodoreda", "A1")
	if res := f.vm.Auth.Login(context.Background(), "joan", "pw"); !res.IsSuccess() {
		t.Fatalf("Login(joan) = %s", res.Message())
	}
	res, _ := f.vm.Loans.Create(context.Background(), reader.ID, ex.ID, "")
	if res.Kind() != failure.Forbidden {
		t.Fatalf("kind = %v, want forbidden", res.Kind())
	}
}

func TestCatalog_ChangeStatusFlow(t *testing.T) {
	f := newFixture(t)
	reader, _ := f.srv.AddUser(biblio.User{Nick: "núria"}, "pw")
	ex, _ := f.srv.AddExemplar("Incerta glòria", "Joan Sales", "C1")
	f.loginAdmin(t)
	ctx := context.Background()

	reserved, err := f.vm.Catalog.ChangeStatus(ctx, ex, biblio.StatusReserved, reader.ID)
	if err != nil || !reserved.IsSuccess() || reserved.Value.Exemplar.Status != biblio.StatusReserved {
		t.Fatalf("reserve = %#v, %v", reserved, err)
	}

	lent, _ := f.vm.Catalog.ChangeStatus(ctx, reserved.Value.Exemplar, biblio.StatusLoaned, reader.ID)
	if !lent.IsSuccess() || lent.Value.Created == nil || lent.Value.Exemplar.Status != biblio.StatusLoaned {
		t.Fatalf("lend = %#v", lent)
	}
	snap := f.vm.Catalog.Exemplars.Snapshot()
	if len(snap.Value) != 1 || snap.Value[0].Status != biblio.StatusLoaned {
		t.Fatalf("exemplar list not reloaded: %#v", snap.Value)
	}

	illegal, _ := f.vm.Catalog.ChangeStatus(ctx, lent.Value.Exemplar, biblio.StatusReserved, reader.ID)
	if illegal.Kind() != failure.Validation {
		t.Fatalf("prestat -> reservat kind = %v, want validation", illegal.Kind())
	}

	del, err := f.vm.Catalog.DeleteExemplar(ctx, lent.Value.Exemplar)
	if err != nil || del.Kind() != failure.Validation {
		t.Fatalf("delete lent = %#v, %v", del, err)
	}

	freed, _ := f.vm.Catalog.ChangeStatus(ctx, lent.Value.Exemplar, biblio.StatusFree, 0)
	if !freed.IsSuccess() || freed.Value.Returned == nil || freed.Value.Exemplar.Status != biblio.StatusFree {
		t.Fatalf("return = %#v", freed)
	}
	if change := f.vm.Catalog.Change.Snapshot(); change.Value.Step != circulation.StepDone {
		t.Fatalf("Change slot step = %s", change.Value.Step)
	}

	del, _ = f.vm.Catalog.DeleteExemplar(ctx, freed.Value.Exemplar)
	if !del.IsSuccess() {
		t.Fatalf("delete free = %s", del.Message())
	}
}

func TestCatalog_BooksAuthorsAndSearch(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)
	ctx := context.Background()

	if res := f.vm.Catalog.SaveBook(ctx, 0, biblio.BookRequest{Title: "  "}); res.Kind() != failure.Validation {
		t.Fatalf("blank title kind = %v", res.Kind())
	}
	author := f.vm.Catalog.SaveAuthor(ctx, 0, biblio.AuthorRequest{Name: "Joan Fuster"})
	if !author.IsSuccess() {
		t.Fatalf("SaveAuthor = %s", author.Message())
	}
	book := f.vm.Catalog.SaveBook(ctx, 0, biblio.BookRequest{Title: "Nosaltres, els valencians", AuthorID: author.Value.ID})
	if !book.IsSuccess() || book.Value.AuthorName() != "Joan Fuster" {
		t.Fatalf("SaveBook = %#v", book)
	}
	if n := len(f.vm.Catalog.Books.Snapshot().Value); n != 1 {
		t.Fatalf("books slot = %d, want 1", n)
	}

	ex := f.vm.Catalog.SaveExemplar(ctx, 0, biblio.ExemplarRequest{Location: "D4", BookID: book.Value.ID})
	if !ex.IsSuccess() || ex.Value.Status != biblio.StatusFree {
		t.Fatalf("SaveExemplar = %#v", ex)
	}
	moved := f.vm.Catalog.SaveExemplar(ctx, ex.Value.ID, biblio.ExemplarRequest{Location: "D5", BookID: book.Value.ID})
	if !moved.IsSuccess() || moved.Value.Location != "D5" || moved.Value.Status != biblio.StatusFree {
		t.Fatalf("move exemplar = %#v", moved)
	}

	free := f.vm.Catalog.SearchFree(ctx, "valencians", "fuster")
	if !free.IsSuccess() || len(free.Value) != 1 {
		t.Fatalf("SearchFree = %#v", free)
	}

	if res := f.vm.Catalog.DeleteAuthor(ctx, author.Value.ID); res.Kind() != failure.Conflict {
		t.Fatalf("delete author with books kind = %v, want conflict", res.Kind())
	}
}

func TestGroups_MembersAndSchedules(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)
	ctx := context.Background()

	h := f.vm.Groups.CreateSchedule(ctx, biblio.ScheduleRequest{Room: "Sala 3", Day: "dilluns", Hour: "17:00"})
	if !h.IsSuccess() {
		t.Fatalf("CreateSchedule = %s", h.Message())
	}
	g := f.vm.Groups.Create(ctx, biblio.GroupRequest{Name: "Novel·la negra", ModeratorID: admin.ID, ScheduleID: h.Value.ID})
	if !g.IsSuccess() {
		t.Fatalf("Create group = %s", g.Message())
	}
	if res := f.vm.Groups.AddMember(ctx, g.Value.ID, admin.ID); !res.IsSuccess() {
		t.Fatalf("AddMember = %s", res.Message())
	}
	if n := len(f.vm.Groups.Members.Snapshot().Value); n != 1 {
		t.Fatalf("members = %d, want 1", n)
	}
	if res := f.vm.Groups.AddMember(ctx, g.Value.ID, admin.ID); res.Kind() != failure.Conflict {
		t.Fatalf("duplicate member kind = %v", res.Kind())
	}
	if res := f.vm.Groups.RemoveMember(ctx, g.Value.ID, admin.ID); !res.IsSuccess() {
		t.Fatalf("RemoveMember = %s", res.Message())
	}
	if res := f.vm.Groups.Delete(ctx, g.Value.ID); !res.IsSuccess() {
		t.Fatalf("Delete = %s", res.Message())
	}
	if n := len(f.vm.Groups.List.Snapshot().Value); n != 0 {
		t.Fatalf("groups = %d, want 0", n)
	}
}

func TestNetworkFailureIsClassified(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	client, err := biblio.NewClient(url, biblio.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	vm := New(client, session.New(), nil)
	res := vm.Catalog.LoadExemplars(context.Background())
	if res.Kind() != failure.Network {
		t.Fatalf("kind = %v, want network (%v)", res.Kind(), res.Failure)
	}
}

// revoke ends token on the backend from a separate client, as another
// terminal logging out would.
func (f *fixture) revoke(t *testing.T, token string) {
	t.Helper()
	other := session.New()
	other.Set(token, biblio.User{})
	client, err := biblio.NewClient(f.url, biblio.WithTokenSource(other))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
}

func TestAuth_RejectedTokenClearsSession(t *testing.T) {
	f := newFixture(t)
	ex, _ := f.srv.AddExemplar("Solitud", "Víctor Català", "B2")
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() failure.Kind
	}{
		{"load", func() failure.Kind {
			return f.vm.Catalog.LoadExemplars(ctx).Kind()
		}},
		{"status change", func() failure.Kind {
			res, _ := f.vm.Catalog.ChangeStatus(ctx, ex, biblio.StatusReserved, 1)
			return res.Kind()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.loginAdmin(t)
			f.revoke(t, f.sess.Get())

			if kind := tt.run(); kind != failure.Forbidden {
				t.Fatalf("kind = %v, want forbidden", kind)
			}
			if f.sess.LoggedIn() || f.sess.Get() != "" {
				t.Fatalf("token still set after 401")
			}
			if snap := f.vm.Auth.Profile.Snapshot(); snap.HasValue || snap.Result.IsSuccess() {
				t.Fatalf("profile slot = %#v, want reset", snap)
			}
		})
	}
}

func TestAuth_NewerLoginSurvivesStaleRejection(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)
	stale := f.sess.Get()
	f.revoke(t, stale)
	f.loginAdmin(t)

	f.sess.Expire(stale)
	if !f.sess.LoggedIn() {
		t.Fatalf("expiring a replaced token logged the new session out")
	}
}

func TestLoans_BorrowerReturnsOwnLoan(t *testing.T) {
	f := newFixture(t)
	reader, _ := f.srv.AddUser(biblio.User{Nick: "marta"}, "pw")
	ex, _ := f.srv.AddExemplar("Solitud", "Víctor Català", "B2")
	f.loginAdmin(t)
	ctx := context.Background()

	created, err := f.vm.Loans.Create(ctx, reader.ID, ex.ID, "")
	if err != nil || !created.IsSuccess() {
		t.Fatalf("Create = %#v, %v", created, err)
	}
	f.vm.Auth.Logout(ctx)
	if res := f.vm.Auth.Login(ctx, "marta", "pw"); !res.IsSuccess() {
		t.Fatalf("Login(marta) failed: %s", res.Message())
	}

	returned, err := f.vm.Loans.Return(ctx, created.Value.ID)
	if err != nil || !returned.IsSuccess() {
		t.Fatalf("Return = %#v, %v", returned.Failure, err)
	}
	if got := f.vm.Catalog.GetExemplar(ctx, ex.ID); got.Value.Status != biblio.StatusFree {
		t.Fatalf("status after return = %s, want lliure", got.Value.Status)
	}
}
