package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the title bar: logo, connection state and session.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("lector", styles.Logo)}

	switch {
	case m.offline():
		parts = append(parts, bg.Render("● SENSE CONNEXIÓ", styles.DangerText))
	case m.loading():
		parts = append(parts, bg.Render("● carregant", styles.WarningText))
	case m.currentView != ViewLogin:
		parts = append(parts, bg.Render("● connectat", styles.SuccessText))
	}

	if user, ok := m.profile(); ok {
		who := bg.Render(user.Nick, styles.Text)
		if user.Admin {
			who += bg.Space() + bg.Render("admin", styles.AccentText)
		}
		if m.vm.Auth.Session().Expired(time.Now()) {
			who += bg.Space() + bg.Render("(sessió caducada)", styles.WarningText)
		}
		parts = append(parts, who)
	}

	if m.width >= 80 {
		parts = append(parts, bg.Render(truncateMiddle(m.config.BaseURL, 40), styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the view tabs and the keys of the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	if m.currentView == ViewLogin {
		return styles.FaintText.Width(m.width).Render(" Inicia la sessió per continuar")
	}

	tabs := make([]string, 0, len(views))
	for i, v := range views {
		if !m.canOpen(v) {
			continue
		}
		label := string(rune('1'+i)) + " " + v.Title()
		if v == m.currentView {
			tabs = append(tabs, styles.AccentText.Bold(true).Underline(true).Render(label))
		} else {
			tabs = append(tabs, styles.MutedText.Render(label))
		}
	}

	hints := viewHints(m.currentView, m.loanHistory)
	bar := " " + strings.Join(tabs, "  ")
	if hints != "" {
		bar += styles.FaintText.Render("   │ " + hints)
	}
	return lipgloss.NewStyle().Width(m.width).MaxHeight(1).Render(bar)
}

// viewHints lists the action keys of a view.
func viewHints(v View, loanHistory bool) string {
	switch v {
	case ViewExemplars:
		return "f lliure  p presta  v reserva  d esborra  r recarrega"
	case ViewLoans:
		scope := "a historial"
		if loanHistory {
			scope = "a actius"
		}
		return "x retorna  " + scope + "  r recarrega"
	case ViewUsers:
		return "d esborra  r recarrega"
	case ViewLogs:
		return "/ filtra  r recarrega"
	}
	return ""
}

// renderFooter renders the latest flash message and the help hint.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var text string
	switch m.flash.kind {
	case flashSuccess:
		text = bg.Render(m.flash.text, styles.SuccessText)
	case flashError:
		text = bg.Render(m.flash.text, styles.DangerText)
	default:
		text = bg.Render(m.flash.text, styles.Text)
	}
	hint := bg.Render("h ajuda · q surt", styles.FaintText)
	if m.currentView == ViewLogin {
		hint = bg.Render("ctrl+c surt", styles.FaintText)
	}

	gap := m.width - lipgloss.Width(text) - lipgloss.Width(hint) - 2
	if gap < 1 {
		gap = 1
	}
	return styles.Footer.Width(m.width).Render(text + bg.Spaces(gap) + hint)
}

// loading reports whether the current view's data is being fetched.
func (m Model) loading() bool {
	if m.vm == nil {
		return false
	}
	switch m.currentView {
	case ViewExemplars:
		return m.vm.Catalog.Exemplars.Snapshot().Loading()
	case ViewLoans:
		if m.loanHistory {
			return m.vm.Loans.History.Snapshot().Loading()
		}
		return m.vm.Loans.Active.Snapshot().Loading()
	case ViewUsers:
		return m.vm.Users.List.Snapshot().Loading()
	}
	return false
}

// offline reports whether the exemplar list has repeatedly failed to reach
// the backend.
func (m Model) offline() bool {
	return m.vm != nil && m.vm.Catalog.Exemplars.Snapshot().IsOffline()
}

// truncateMiddle shortens s to limit runes with an ellipsis in the middle.
func truncateMiddle(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit || limit < 5 {
		return s
	}
	half := (limit - 1) / 2
	return string(runes[:half]) + "…" + string(runes[len(runes)-(limit-1-half):])
}
