package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
)

// chromeHeight is the rows taken by the header, command bar and footer.
const chromeHeight = 3

// ---- login ----

type loginForm struct {
	nick       textinput.Model
	password   textinput.Model
	focus      int // 0 = nick, 1 = password
	submitting bool
}

func newLoginForm(lastNick string) loginForm {
	nick := textinput.New()
	nick.Prompt = "Usuari:      "
	nick.Placeholder = "nick"
	nick.CharLimit = 64
	nick.SetValue(lastNick)

	password := textinput.New()
	password.Prompt = "Contrasenya: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	f := loginForm{nick: nick, password: password}
	if lastNick != "" {
		f.focus = 1
	}
	f.applyFocus()
	return f
}

func (f *loginForm) applyFocus() {
	if f.focus == 0 {
		f.nick.Focus()
		f.password.Blur()
		return
	}
	f.nick.Blur()
	f.password.Focus()
}

func (f *loginForm) blur() {
	f.nick.Blur()
	f.password.Blur()
	f.password.SetValue("")
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.submitting {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.login.focus = 1 - m.login.focus
		m.login.applyFocus()
		return m, nil
	case tea.KeyEnter:
		if m.login.focus == 0 {
			m.login.focus = 1
			m.login.applyFocus()
			return m, nil
		}
		m.login.submitting = true
		m.flash = infoFlash("Iniciant la sessió...")
		return m, m.loginCmd(m.login.nick.Value(), m.login.password.Value())
	}

	var cmd tea.Cmd
	if m.login.focus == 0 {
		m.login.nick, cmd = m.login.nick.Update(msg)
	} else {
		m.login.password, cmd = m.login.password.Update(msg)
	}
	return m, cmd
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Logo.Render("lector"))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(m.config.BaseURL))
	b.WriteString("\n\n")
	b.WriteString(m.login.nick.View())
	b.WriteString("\n")
	b.WriteString(m.login.password.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("tab canvia de camp · enter entra · ctrl+c surt"))

	box := styles.Panel.Padding(1, 3).Render(b.String())
	return lipgloss.Place(m.width, max(m.height-chromeHeight, 1), lipgloss.Center, lipgloss.Center, box)
}

// ---- exemplars ----

func exemplarColumns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Títol", Width: 0},
		{Title: "Autor", Width: 22},
		{Title: "Lloc", Width: 14},
		{Title: "Estat", Width: 10},
	}
	return fitColumns(fixed, 1, width)
}

func exemplarRows(items []biblio.Exemplar) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, ex := range items {
		author := ""
		if ex.Book != nil {
			author = ex.Book.AuthorName()
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(ex.ID, 10),
			ex.Title(),
			author,
			ex.Location,
			string(ex.Status),
		})
	}
	return rows
}

// statusCounts tallies exemplars per status.
func statusCounts(items []biblio.Exemplar) map[biblio.Status]int {
	counts := make(map[biblio.Status]int, len(biblio.Statuses))
	for _, ex := range items {
		counts[ex.Status]++
	}
	return counts
}

func (m Model) selectedExemplar() (biblio.Exemplar, bool) {
	idx := m.exemplars.Cursor()
	if idx < 0 || idx >= len(m.exemplarItems) {
		return biblio.Exemplar{}, false
	}
	return m.exemplarItems[idx], true
}

func (m Model) handleExemplarsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.MarkFree):
		return m.requestStatus(biblio.StatusFree)
	case key.Matches(msg, m.keys.MarkLoaned):
		return m.requestStatus(biblio.StatusLoaned)
	case key.Matches(msg, m.keys.MarkReserved):
		return m.requestStatus(biblio.StatusReserved)
	case key.Matches(msg, m.keys.Delete):
		ex, ok := m.selectedExemplar()
		if !ok {
			return m, nil
		}
		m.modal = confirmModal{
			prompt: fmt.Sprintf("Esborrar l'exemplar #%d (%s)?", ex.ID, ex.Title()),
			onYes:  m.deleteExemplarCmd(ex),
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.exemplars, cmd = m.exemplars.Update(msg)
	return m, cmd
}

func (m Model) renderExemplars() string {
	styles := m.theme.Styles()
	counts := statusCounts(m.exemplarItems)
	parts := make([]string, 0, len(biblio.Statuses))
	for _, s := range biblio.Statuses {
		parts = append(parts, styles.StatusStyle(s).Render(fmt.Sprintf("%s %d", s, counts[s])))
	}
	summary := strings.Join(parts, " ")
	if ex, ok := m.selectedExemplar(); ok && m.vm != nil {
		summary += styles.FaintText.Render("   │ " + exemplarDetail(ex, m.vm.Loans.ActiveFor(ex.ID)))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(summary) + "\n" + m.exemplars.View()
}

// exemplarDetail describes the selected copy: where it may move next and,
// when lent, to whom.
func exemplarDetail(ex biblio.Exemplar, active *biblio.Loan) string {
	targets := circulation.AllowedTargets(ex.Status)
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	detail := fmt.Sprintf("#%d %s → %s", ex.ID, ex.Status, strings.Join(names, ", "))
	if active != nil && active.User != nil {
		detail += fmt.Sprintf(" · %s des del %s", active.User.Nick, active.LoanDate)
	}
	return detail
}

// ---- loans ----

func loanColumns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Exemplar", Width: 0},
		{Title: "Usuari", Width: 14},
		{Title: "Préstec", Width: 10},
		{Title: "Retorn", Width: 10},
		{Title: "Dies", Width: 5},
	}
	return fitColumns(fixed, 1, width)
}

// loanRows renders loans; days reports how long an active loan has been out.
func loanRows(items []biblio.Loan, days func(biblio.Loan) int) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, loan := range items {
		exemplar := ""
		if loan.Exemplar != nil {
			exemplar = fmt.Sprintf("#%d %s", loan.Exemplar.ID, loan.Exemplar.Title())
		}
		user := ""
		if loan.User != nil {
			user = loan.User.Nick
		}
		returned, out := "-", ""
		if loan.ReturnDate != nil {
			returned = *loan.ReturnDate
		} else if days != nil {
			out = strconv.Itoa(days(loan))
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(loan.ID, 10),
			exemplar,
			user,
			loan.LoanDate,
			returned,
			out,
		})
	}
	return rows
}

func (m Model) selectedLoan() (biblio.Loan, bool) {
	idx := m.loans.Cursor()
	if idx < 0 || idx >= len(m.loanItems) {
		return biblio.Loan{}, false
	}
	return m.loanItems[idx], true
}

func (m Model) handleLoansKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ReturnLoan):
		loan, ok := m.selectedLoan()
		if !ok {
			return m, nil
		}
		if !loan.Active() {
			m.flash = infoFlash(fmt.Sprintf("El préstec #%d ja està retornat", loan.ID))
			return m, nil
		}
		m.flash = infoFlash(fmt.Sprintf("Retornant el préstec #%d...", loan.ID))
		return m, m.returnLoanCmd(loan.ID)
	case key.Matches(msg, m.keys.ToggleScope):
		m.loanHistory = !m.loanHistory
		m.syncTables()
		return m, m.reloadCmd(ViewLoans)
	}
	var cmd tea.Cmd
	m.loans, cmd = m.loans.Update(msg)
	return m, cmd
}

// ---- users ----

func userColumns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Nick", Width: 14},
		{Title: "Nom", Width: 0},
		{Title: "NIF", Width: 10},
		{Title: "Email", Width: 24},
		{Title: "Préstecs", Width: 8},
		{Title: "Admin", Width: 5},
	}
	return fitColumns(fixed, 2, width)
}

// userRows renders users; loans counts each user's active loans.
func userRows(items []biblio.User, loans func(int64) int) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, u := range items {
		admin := ""
		if u.Admin {
			admin = "sí"
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(u.ID, 10),
			u.Nick,
			u.FullName(),
			u.Nif,
			u.Email,
			strconv.Itoa(loans(u.ID)),
			admin,
		})
	}
	return rows
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Delete) {
		idx := m.users.Cursor()
		if idx < 0 || idx >= len(m.userItems) {
			return m, nil
		}
		user := m.userItems[idx]
		m.modal = confirmModal{
			prompt: fmt.Sprintf("Esborrar l'usuari %s?", user.Nick),
			onYes:  m.deleteUserCmd(user),
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.users, cmd = m.users.Update(msg)
	return m, cmd
}

// ---- shared ----

// fitColumns gives the column at flex whatever width the others leave,
// with a floor of ten cells.
func fitColumns(cols []table.Column, flex, width int) []table.Column {
	used := 0
	for i, c := range cols {
		if i != flex {
			used += c.Width
		}
	}
	// bubbles tables pad each cell by one on both sides
	used += 2 * len(cols)
	cols[flex].Width = max(width-used, 10)
	return cols
}

// syncTables rebuilds every table from the latest slot snapshots.
func (m *Model) syncTables() {
	if m.vm == nil {
		return
	}
	m.exemplarItems = m.vm.Catalog.Exemplars.Snapshot().Value
	m.exemplars.SetRows(exemplarRows(m.exemplarItems))
	clampCursor(&m.exemplars, len(m.exemplarItems))

	if m.loanHistory {
		m.loanItems = m.vm.Loans.History.Snapshot().Value
	} else {
		m.loanItems = m.vm.Loans.Active.Snapshot().Value
	}
	m.loans.SetRows(loanRows(m.loanItems, m.vm.Loans.DaysOut))
	clampCursor(&m.loans, len(m.loanItems))

	m.userItems = m.vm.Users.List.Snapshot().Value
	m.users.SetRows(userRows(m.userItems, m.vm.Loans.CountFor))
	clampCursor(&m.users, len(m.userItems))
}

// clearData drops the previous session's rows.
func (m *Model) clearData() {
	if m.vm != nil {
		m.vm.Catalog.Exemplars.Reset()
		m.vm.Loans.Active.Reset()
		m.vm.Loans.History.Reset()
		m.vm.Users.List.Reset()
	}
	m.syncTables()
}

func clampCursor(t *table.Model, n int) {
	if t.Cursor() >= n {
		t.SetCursor(max(n-1, 0))
	}
}
