package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lector/internal/biblio"
)

// Theme is a named palette. Colors are hex strings.
type Theme struct {
	Name string

	Background string
	Surface    string // header and footer bars

	SelectionBg   string
	SelectionText string
	Border        string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string

	// Badge colors per exemplar status.
	StatusColors map[biblio.Status]string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style
	Panel  lipgloss.Style

	theme Theme
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bar(t Theme, color string) lipgloss.Style {
	return fg(color).Background(lipgloss.Color(t.Surface)).Padding(0, 1)
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),

		Header: bar(t, t.Text),
		Footer: bar(t, t.Muted),
		Logo:   fg(t.Warning).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)),

		theme: t,
	}
}

// StatusStyle returns the badge style for an exemplar status; unknown
// statuses get the muted color.
func (s Styles) StatusStyle(status biblio.Status) lipgloss.Style {
	color, ok := s.theme.StatusColors[status]
	if !ok {
		color = s.theme.Muted
	}
	return fg(s.theme.Background).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// TableStyles returns bubbles table styles matching the theme.
func (t Theme) TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(t.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(t.Accent)).
		Bold(true)
	s.Cell = s.Cell.Foreground(lipgloss.Color(t.Text))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(t.SelectionText)).
		Background(lipgloss.Color(t.SelectionBg)).
		Bold(false)
	return s
}

// themes is the cycle order; the first entry is the default.
var themes = []Theme{
	{
		// https://www.nordtheme.com/docs/colors-and-palettes
		Name:          "Nord",
		Background:    "#2E3440",
		Surface:       "#3B4252",
		SelectionBg:   "#4C566A",
		SelectionText: "#ECEFF4",
		Border:        "#4C566A",
		Text:          "#E5E9F0",
		Muted:         "#D8DEE9",
		Faint:         "#7B88A1",
		Accent:        "#88C0D0",
		Success:       "#A3BE8C",
		Warning:       "#EBCB8B",
		Danger:        "#BF616A",
		StatusColors: map[biblio.Status]string{
			biblio.StatusFree:     "#A3BE8C",
			biblio.StatusLoaned:   "#D08770",
			biblio.StatusReserved: "#EBCB8B",
		},
	},
	{
		// https://github.com/rebelot/kanagawa.nvim
		Name:          "Kanagawa",
		Background:    "#16161D",
		Surface:       "#1F1F28",
		SelectionBg:   "#2D4F67",
		SelectionText: "#DCD7BA",
		Border:        "#54546D",
		Text:          "#DCD7BA",
		Muted:         "#C8C093",
		Faint:         "#727169",
		Accent:        "#7E9CD8",
		Success:       "#98BB6C",
		Warning:       "#E6C384",
		Danger:        "#E46876",
		StatusColors: map[biblio.Status]string{
			biblio.StatusFree:     "#98BB6C",
			biblio.StatusLoaned:   "#FFA066",
			biblio.StatusReserved: "#E6C384",
		},
	},
	{
		// Tailwind slate and sky
		Name:          "Slate",
		Background:    "#020617",
		Surface:       "#0f172a",
		SelectionBg:   "#0284c7",
		SelectionText: "#f8fafc",
		Border:        "#334155",
		Text:          "#f1f5f9",
		Muted:         "#94a3b8",
		Faint:         "#64748b",
		Accent:        "#38bdf8",
		Success:       "#22c55e",
		Warning:       "#f59e0b",
		Danger:        "#ef4444",
		StatusColors: map[biblio.Status]string{
			biblio.StatusFree:     "#22c55e",
			biblio.StatusLoaned:   "#f97316",
			biblio.StatusReserved: "#f59e0b",
		},
	},
}

// GetTheme returns a theme by name, or the default one.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the theme name after current in the cycle.
func NextTheme(current string) string {
	for i, t := range themes {
		if t.Name == current {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}

// ThemeNames returns available theme names in cycle order.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
