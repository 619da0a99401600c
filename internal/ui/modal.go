package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// pickerRows is how many users the picker lists at once.
const pickerRows = 10

// userPicker asks which user an exemplar is lent or reserved to.
type userPicker struct {
	exemplar biblio.Exemplar
	target   biblio.Status
	users    []biblio.User
	filter   textinput.Model
	cursor   int
	loading  bool
	message  string
}

func newUserPicker(ex biblio.Exemplar, target biblio.Status) userPicker {
	ti := textinput.New()
	ti.Placeholder = "nick, nom o NIF"
	ti.CharLimit = 40
	ti.Focus()
	return userPicker{exemplar: ex, target: target, filter: ti, loading: true}
}

// withUsers fills the picker once the user list has loaded.
func (p userPicker) withUsers(users []biblio.User, f *failure.Failure) userPicker {
	p.loading = false
	p.users = users
	p.cursor = 0
	if f != nil {
		p.message = f.Message
	}
	return p
}

// visible returns the users matching the filter text.
func (p userPicker) visible() []biblio.User {
	query := strings.ToLower(strings.TrimSpace(p.filter.Value()))
	if query == "" {
		return p.users
	}
	out := make([]biblio.User, 0, len(p.users))
	for _, u := range p.users {
		haystack := strings.ToLower(u.Nick + " " + u.FullName() + " " + u.Nif)
		if strings.Contains(haystack, query) {
			out = append(out, u)
		}
	}
	return out
}

// Update implements Modal. Arrow keys move; every other key edits the filter.
func (p userPicker) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil, false
	}
	visible := p.visible()
	switch keyMsg.Type {
	case tea.KeyEsc:
		return p, nil, true
	case tea.KeyUp:
		if p.cursor > 0 {
			p.cursor--
		}
		return p, nil, false
	case tea.KeyDown:
		if p.cursor < len(visible)-1 {
			p.cursor++
		}
		return p, nil, false
	case tea.KeyEnter:
		if p.cursor >= len(visible) {
			return p, nil, false
		}
		picked := pickedMsg{exemplar: p.exemplar, target: p.target, user: visible[p.cursor]}
		return p, func() tea.Msg { return picked }, true
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(keyMsg)
	p.cursor = 0
	return p, cmd, false
}

// View implements Modal.
func (p userPicker) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder

	verb := "Prestar"
	if p.target == biblio.StatusReserved {
		verb = "Reservar"
	}
	title := fmt.Sprintf("%s l'exemplar #%d", verb, p.exemplar.ID)
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	if t := p.exemplar.Title(); t != "" {
		b.WriteString(styles.MutedText.Render(t))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(p.filter.View())
	b.WriteString("\n\n")

	visible := p.visible()
	switch {
	case p.loading:
		b.WriteString(styles.FaintText.Render("Carregant usuaris..."))
	case p.message != "":
		b.WriteString(styles.DangerText.Render(p.message))
	case len(visible) == 0:
		b.WriteString(styles.FaintText.Render("Cap usuari coincideix"))
	default:
		start := 0
		if p.cursor >= pickerRows {
			start = p.cursor - pickerRows + 1
		}
		end := min(start+pickerRows, len(visible))
		for i := start; i < end; i++ {
			u := visible[i]
			line := fmt.Sprintf("%-12s %s", u.Nick, u.FullName())
			if i == p.cursor {
				b.WriteString(styles.AccentText.Bold(true).Render("> " + line))
			} else {
				b.WriteString(styles.Text.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter tria · esc cancel·la"))

	return placeModal(theme, width, height, 50, b.String())
}

// confirmModal asks a yes/no question and runs onYes when accepted.
type confirmModal struct {
	prompt string
	onYes  tea.Cmd
}

// Update implements Modal.
func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch keyMsg.String() {
	case "s", "S", "y", "Y", "enter":
		return c, c.onYes, true
	case "n", "N", "esc":
		return c, nil, true
	}
	return c, nil, false
}

// View implements Modal.
func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	content := styles.Text.Bold(true).Render(c.prompt) + "\n\n" +
		styles.FaintText.Render("s confirma · n cancel·la")
	return placeModal(theme, width, height, 44, content)
}

// placeModal centers content in a bordered box over the screen.
func placeModal(theme Theme, width, height, modalWidth int, content string) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
