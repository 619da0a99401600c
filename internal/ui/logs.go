package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lector/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	rawLines  []string
	filter    string
	searching bool
	input     textinput.Model
	err       error
}

func newLogState() logState {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filtra el registre..."
	ti.CharLimit = 100
	return logState{input: ti}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.rawLines = msg.lines
	}
	m.renderLogContent()
	m.logViewport.GotoBottom()
}

// renderLogContent pushes the filtered, colored lines into the viewport.
func (m *Model) renderLogContent() {
	styles := m.theme.Styles()
	lines := logtail.Filter(m.logState.rawLines, m.logState.filter)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, logLineStyle(styles, logtail.Classify(line)).Render(line))
	}
	if len(out) == 0 {
		out = append(out, styles.FaintText.Render("(sense entrades)"))
	}
	m.logViewport.SetContent(strings.Join(out, "\n"))
}

func logLineStyle(styles Styles, level logtail.Level) lipgloss.Style {
	switch level {
	case logtail.LevelError:
		return styles.DangerText.Bold(false)
	case logtail.LevelWarn:
		return styles.WarningText
	default:
		return styles.Text
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Search) {
		m.logState.searching = true
		m.logState.input.SetValue(m.logState.filter)
		return m, m.logState.input.Focus()
	}
	switch {
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m Model) handleLogSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.logState.filter = strings.TrimSpace(m.logState.input.Value())
		m.logState.searching = false
		m.logState.input.Blur()
		m.renderLogContent()
		m.logViewport.GotoBottom()
		return m, nil
	case tea.KeyEsc:
		m.logState.searching = false
		m.logState.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.logState.input, cmd = m.logState.input.Update(msg)
	return m, cmd
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	var status string
	switch {
	case m.logState.searching:
		status = m.logState.input.View()
	case m.logState.err != nil:
		status = styles.DangerText.Render(m.logState.err.Error())
	default:
		status = styles.MutedText.Render(m.config.LogFile)
		if m.logState.filter != "" {
			status += styles.AccentText.Render(fmt.Sprintf("  filtre: %q", m.logState.filter))
		}
	}
	return status + "\n" + m.logViewport.View()
}
