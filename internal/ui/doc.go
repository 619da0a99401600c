// Package ui provides the Bubble Tea terminal interface of lector.
//
// # Structure
//
//   - app.go: Model, Options, Update/View and Run
//   - commands.go: messages, tea.Cmd wrappers around the view-models, flash line
//   - views.go: login form, exemplar/loan/user tables and their keys
//   - modal.go: Modal interface, user picker and confirm dialog
//   - logs.go: log pane over internal/logtail with a filter prompt
//   - header.go, help.go, keys.go, theme.go, style_helpers.go: chrome
//
// # Data flow
//
// Every backend call runs inside a tea.Cmd and goes through a view-model from
// internal/viewmodel. The view-model publishes to its state slots; the command
// then returns a small message and Update rebuilds the tables from the slot
// snapshots. The model never holds data the slots do not.
//
// # Status changes
//
// On the exemplars view, f, p and v ask for lliure, prestat and reservat.
// When the transition lends or reserves the copy, a user picker opens first
// and its choice is passed to the circulation coordinator. Illegal pairs are
// still sent to the coordinator, which rejects them locally with a
// validation message shown in the footer.
//
// # Logging
//
// The standard logger is redirected to the configured log file while the
// program runs (see internal/app); the log view tails that file.
package ui
