package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	Logout     key.Binding

	// View switching
	ViewExemplars key.Binding
	ViewLoans     key.Binding
	ViewUsers     key.Binding
	ViewLogs      key.Binding

	// Exemplar actions
	MarkFree     key.Binding
	MarkLoaned   key.Binding
	MarkReserved key.Binding
	Delete       key.Binding

	// Loan actions
	ReturnLoan  key.Binding
	ToggleScope key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Logs
	Search key.Binding

	// Input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Surt"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Ajuda"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Canvia el tema"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Vista següent"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Vista anterior"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Tanca / torna als exemplars"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Recarrega"),
		),
		Logout: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Tanca la sessió"),
		),

		// View switching
		ViewExemplars: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Exemplars"),
		),
		ViewLoans: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Préstecs"),
		),
		ViewUsers: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Usuaris"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("4", "l"),
			key.WithHelp("4/l", "Registre"),
		),

		// Exemplar actions
		MarkFree: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Marca lliure"),
		),
		MarkLoaned: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Presta"),
		),
		MarkReserved: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Reserva"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Esborra"),
		),

		// Loan actions
		ReturnLoan: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Retorna el préstec"),
		),
		ToggleScope: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Actius / historial"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Amunt"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Avall"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Inici"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Final"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Pàgina amunt"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Pàgina avall"),
		),

		// Logs
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Filtra el registre"),
		),

		// Input
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirma"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewExemplars, k.ViewLoans, k.ViewUsers, k.ViewLogs, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.MarkFree, k.MarkLoaned, k.MarkReserved, k.Delete},
		{k.ReturnLoan, k.ToggleScope},
		{k.Search},
		{k.Refresh, k.Logout, k.CycleTheme, k.Help, k.Quit},
	}
}
