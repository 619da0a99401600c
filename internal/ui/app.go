package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/config"
	"github.com/five82/lector/internal/prefs"
	"github.com/five82/lector/internal/viewmodel"
)

// View represents the current active view.
type View int

const (
	ViewLogin View = iota
	ViewExemplars
	ViewLoans
	ViewUsers
	ViewLogs
)

// viewNone marks actions whose slots are already current and need no reload.
const viewNone View = -1

// views lists the screens reachable with tab once logged in.
var views = []View{ViewExemplars, ViewLoans, ViewUsers, ViewLogs}

// Title returns the label shown in the header tabs.
func (v View) Title() string {
	switch v {
	case ViewExemplars:
		return "Exemplars"
	case ViewLoans:
		return "Préstecs"
	case ViewUsers:
		return "Usuaris"
	case ViewLogs:
		return "Registre"
	default:
		return "Accés"
	}
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Models    *viewmodel.Set
	Config    *config.Config
	ThemeName string
	PrefsPath string
	LastNick  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	vm        *viewmodel.Set
	config    *config.Config
	prefsPath string

	// UI state
	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	login loginForm

	// Tables and the rows they were built from
	exemplars     table.Model
	exemplarItems []biblio.Exemplar
	loans         table.Model
	loanItems     []biblio.Loan
	loanHistory   bool
	users         table.Model
	userItems     []biblio.User

	// Log state
	logViewport viewport.Model
	logState    logState

	modal    Modal
	showHelp bool
	flash    flash
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themes[0].Name
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}

	theme := GetTheme(themeName)
	m := Model{
		ctx:         ctx,
		vm:          opts.Models,
		config:      cfg,
		prefsPath:   prefsPath,
		keys:        DefaultKeyMap(),
		theme:       theme,
		currentView: ViewLogin,
		login:       newLoginForm(opts.LastNick),
		exemplars:   newTable(theme, exemplarColumns(80)),
		loans:       newTable(theme, loanColumns(80)),
		users:       newTable(theme, userColumns(80)),
		logViewport: viewport.New(0, 0),
		logState:    newLogState(),
	}
	return m
}

func newTable(theme Theme, cols []table.Column) table.Model {
	t := table.New(table.WithColumns(cols), table.WithFocused(true))
	t.SetStyles(theme.TableStyles())
	return t
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case loginMsg:
		return m.handleLogin(msg)

	case logoutMsg:
		m.currentView = ViewLogin
		m.login = newLoginForm(m.login.nick.Value())
		m.clearData()
		m.flash = flashFrom(msg.message, msg.failure, "Sessió tancada")
		return m, textinput.Blink

	case loadedMsg:
		if m.sessionLost() {
			return m.Update(logoutMsg{failure: msg.failure})
		}
		m.syncTables()
		if msg.failure != nil {
			m.flash = errorFlash(msg.failure.Message)
		}
		return m, nil

	case actionMsg:
		if m.sessionLost() {
			return m.Update(logoutMsg{failure: msg.failure})
		}
		m.syncTables()
		if msg.err != nil {
			m.flash = errorFlash(msg.err.Error())
			return m, nil
		}
		m.flash = flashFrom(msg.text, msg.failure, "")
		if msg.failure == nil && msg.reload != viewNone {
			return m, m.reloadCmd(msg.reload)
		}
		return m, nil

	case pickerUsersMsg:
		if p, ok := m.modal.(userPicker); ok {
			m.modal = p.withUsers(msg.users, msg.failure)
		}
		return m, nil

	case pickedMsg:
		m.flash = infoFlash(fmt.Sprintf("Canviant l'exemplar #%d a %s...", msg.exemplar.ID, msg.target))
		return m, m.changeStatusCmd(msg.exemplar, msg.target, msg.user.ID)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Carregant..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	// Text inputs swallow the global keys
	if m.currentView == ViewLogin {
		return m.handleLoginKey(msg)
	}
	if m.currentView == ViewLogs && m.logState.searching {
		return m.handleLogSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.setTheme(GetTheme(NextTheme(m.theme.Name)))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.nextView(1))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.nextView(-1))

	case key.Matches(msg, m.keys.ViewExemplars), key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewExemplars)

	case key.Matches(msg, m.keys.ViewLoans):
		return m.switchView(ViewLoans)

	case key.Matches(msg, m.keys.ViewUsers):
		return m.switchView(ViewUsers)

	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.reloadCmd(m.currentView)

	case key.Matches(msg, m.keys.Logout):
		m.flash = infoFlash("Tancant la sessió...")
		return m, m.logoutCmd()
	}

	switch m.currentView {
	case ViewExemplars:
		return m.handleExemplarsKey(msg)
	case ViewLoans:
		return m.handleLoansKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// nextView returns the view step positions away from the current one,
// skipping screens the session may not open.
func (m Model) nextView(step int) View {
	idx := 0
	for i, v := range views {
		if v == m.currentView {
			idx = i
		}
	}
	for range views {
		idx = (idx + step + len(views)) % len(views)
		if m.canOpen(views[idx]) {
			return views[idx]
		}
	}
	return ViewExemplars
}

func (m Model) canOpen(v View) bool {
	if v == ViewUsers {
		return m.isAdmin()
	}
	return true
}

// switchView moves to v and reloads its data.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if !m.canOpen(v) {
		m.flash = errorFlash("Només els administradors poden veure els usuaris")
		return m, nil
	}
	m.currentView = v
	return m, m.reloadCmd(v)
}

func (m *Model) setTheme(theme Theme) {
	m.theme = theme
	styles := theme.TableStyles()
	m.exemplars.SetStyles(styles)
	m.loans.SetStyles(styles)
	m.users.SetStyles(styles)
	m.renderLogContent()
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:    m.theme.Name,
		LastNick: strings.TrimSpace(m.login.nick.Value()),
	})
}

func (m Model) isAdmin() bool {
	return m.vm != nil && m.vm.Auth.Session().IsAdmin()
}

// profile returns the logged-in user, if any.
func (m Model) profile() (biblio.User, bool) {
	if m.vm == nil {
		return biblio.User{}, false
	}
	return m.vm.Auth.Session().Profile()
}

// handleLogin reacts to the outcome of a login attempt.
func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.login.submitting = false
	if msg.res.IsFailed() {
		m.flash = errorFlash(msg.res.Message())
		m.login.password.SetValue("")
		return m, nil
	}
	user := msg.res.Value
	m.savePrefs()
	m.flash = successFlash(fmt.Sprintf("Benvingut/da, %s", user.Nick))
	m.currentView = ViewExemplars
	m.login.blur()
	return m, m.reloadCmd(ViewExemplars)
}

// resize lays the tables and the log viewport out for the window size.
func (m *Model) resize() {
	contentHeight := m.height - chromeHeight
	if contentHeight < 3 {
		contentHeight = 3
	}
	m.exemplars.SetColumns(exemplarColumns(m.width))
	m.exemplars.SetHeight(contentHeight - 1)
	m.exemplars.SetWidth(m.width)
	m.loans.SetColumns(loanColumns(m.width))
	m.loans.SetHeight(contentHeight)
	m.loans.SetWidth(m.width)
	m.users.SetColumns(userColumns(m.width))
	m.users.SetHeight(contentHeight)
	m.users.SetWidth(m.width)

	m.logViewport.Width = m.width
	m.logViewport.Height = contentHeight - 1
	m.renderLogContent()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())
	b.WriteString("\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.renderLogin()
	case ViewExemplars:
		return m.renderExemplars()
	case ViewLoans:
		return m.loans.View()
	case ViewUsers:
		return m.users.View()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}

// sessionLost reports whether the backend dropped the token while a data
// view was showing.
func (m Model) sessionLost() bool {
	return m.vm != nil && m.currentView != ViewLogin && !m.vm.Auth.Session().LoggedIn()
}
