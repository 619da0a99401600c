package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/logtail"
	"github.com/five82/lector/internal/result"
)

// Messages

type loginMsg struct {
	res result.Result[biblio.User]
}

type logoutMsg struct {
	message string
	failure *failure.Failure
}

// loadedMsg reports that a view's slots were refreshed.
type loadedMsg struct {
	view    View
	failure *failure.Failure
}

// actionMsg reports the outcome of a mutation. reload names the view to
// refresh on success, or viewNone.
type actionMsg struct {
	text    string
	failure *failure.Failure
	err     error
	reload  View
}

type pickerUsersMsg struct {
	users   []biblio.User
	failure *failure.Failure
}

type pickedMsg struct {
	exemplar biblio.Exemplar
	target   biblio.Status
	user     biblio.User
}

type logLinesMsg struct {
	lines []string
	err   error
}

// logLineLimit bounds how much of the log file the log view reads.
const logLineLimit = 500

// Commands

func (m Model) loginCmd(nick, password string) tea.Cmd {
	ctx, auth := m.ctx, m.vm.Auth
	return func() tea.Msg {
		return loginMsg{res: auth.Login(ctx, nick, password)}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	ctx, auth := m.ctx, m.vm.Auth
	return func() tea.Msg {
		res := auth.Logout(ctx)
		return logoutMsg{message: res.Value, failure: res.Failure}
	}
}

// reloadCmd refreshes the data behind view v.
func (m Model) reloadCmd(v View) tea.Cmd {
	ctx, vm := m.ctx, m.vm
	switch v {
	case ViewExemplars:
		userID := m.loanScopeUser()
		return func() tea.Msg {
			res := vm.Catalog.LoadExemplars(ctx)
			if res.IsSuccess() {
				// Active loans name the borrower of the selected copy.
				vm.Loans.LoadActive(ctx, userID)
			}
			return loadedMsg{view: v, failure: res.Failure}
		}
	case ViewLoans:
		userID := m.loanScopeUser()
		history := m.loanHistory
		return func() tea.Msg {
			if history {
				res := vm.Loans.LoadAll(ctx, userID)
				return loadedMsg{view: v, failure: res.Failure}
			}
			res := vm.Loans.LoadActive(ctx, userID)
			return loadedMsg{view: v, failure: res.Failure}
		}
	case ViewUsers:
		return func() tea.Msg {
			res := vm.Users.Load(ctx)
			if res.IsSuccess() {
				vm.Loans.LoadActive(ctx, 0)
			}
			return loadedMsg{view: v, failure: res.Failure}
		}
	case ViewLogs:
		return readLogsCmd(m.config.LogFile)
	}
	return nil
}

// loanScopeUser is zero for administrators, who see every loan, and the
// reader's own id otherwise.
func (m Model) loanScopeUser() int64 {
	if m.isAdmin() {
		return 0
	}
	if user, ok := m.profile(); ok {
		return user.ID
	}
	return 0
}

func (m Model) changeStatusCmd(ex biblio.Exemplar, target biblio.Status, userID int64) tea.Cmd {
	ctx, catalog := m.ctx, m.vm.Catalog
	return func() tea.Msg {
		res, err := catalog.ChangeStatus(ctx, ex, target, userID)
		text := res.Value.Message
		if text == "" {
			text = fmt.Sprintf("Exemplar #%d: %s", ex.ID, target)
		}
		return actionMsg{text: text, failure: res.Failure, err: err, reload: viewNone}
	}
}

func (m Model) deleteExemplarCmd(ex biblio.Exemplar) tea.Cmd {
	ctx, catalog := m.ctx, m.vm.Catalog
	return func() tea.Msg {
		res, err := catalog.DeleteExemplar(ctx, ex)
		return actionMsg{
			text:    fmt.Sprintf("Exemplar #%d esborrat", ex.ID),
			failure: res.Failure,
			err:     err,
			reload:  viewNone,
		}
	}
}

func (m Model) returnLoanCmd(loanID int64) tea.Cmd {
	ctx, loans := m.ctx, m.vm.Loans
	return func() tea.Msg {
		res, err := loans.Return(ctx, loanID)
		return actionMsg{text: res.Value, failure: res.Failure, err: err, reload: ViewLoans}
	}
}

func (m Model) deleteUserCmd(user biblio.User) tea.Cmd {
	ctx, users := m.ctx, m.vm.Users
	return func() tea.Msg {
		res := users.Delete(ctx, user.ID)
		return actionMsg{
			text:    fmt.Sprintf("Usuari %s esborrat", user.Nick),
			failure: res.Failure,
			reload:  viewNone,
		}
	}
}

func (m Model) pickerUsersCmd() tea.Cmd {
	ctx, users := m.ctx, m.vm.Users
	return func() tea.Msg {
		res := users.Load(ctx)
		return pickerUsersMsg{users: res.Value, failure: res.Failure}
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, logLineLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

// Flash messages

type flashKind int

const (
	flashInfo flashKind = iota
	flashSuccess
	flashError
)

// flash is the one-line outcome shown in the footer.
type flash struct {
	text string
	kind flashKind
}

func infoFlash(text string) flash    { return flash{text: text, kind: flashInfo} }
func successFlash(text string) flash { return flash{text: text, kind: flashSuccess} }
func errorFlash(text string) flash   { return flash{text: text, kind: flashError} }

// flashFrom reports f when set, and text (or fallback) otherwise.
func flashFrom(text string, f *failure.Failure, fallback string) flash {
	if f != nil {
		return errorFlash(f.Message)
	}
	if text == "" {
		text = fallback
	}
	return successFlash(text)
}

// requestStatus starts moving the selected exemplar to target. Transitions
// that lend or reserve open the user picker first.
func (m Model) requestStatus(target biblio.Status) (tea.Model, tea.Cmd) {
	ex, ok := m.selectedExemplar()
	if !ok {
		return m, nil
	}
	if ex.Status == target {
		m.flash = infoFlash(fmt.Sprintf("L'exemplar #%d ja és %s", ex.ID, target))
		return m, nil
	}
	if circulation.NeedsUserSelection(ex.Status, target) {
		m.modal = newUserPicker(ex, target)
		return m, m.pickerUsersCmd()
	}
	return m, m.changeStatusCmd(ex, target, 0)
}
