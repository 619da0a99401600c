// Package app is the composition root of lector.
//
// Setup loads the TOML configuration and the user preferences, then builds
// one stack over them:
//
//	config.Load ──> biblio.NewClient(base_url, timeout, user agent, session)
//	                 │
//	                 ├──> circulation.New(client)
//	                 └──> viewmodel.New(client, session, coordinator)
//
// Run wires that stack into the Bubble Tea UI. Before the UI starts, the
// standard logger is redirected to the configured log file with
// tea.LogToFile so log lines do not corrupt the terminal; the UI's log view
// tails the same file. When the UI exits with a session still open, Run
// makes a best-effort logout.
//
// The one-shot commands in cmd/lector call Setup and Env.Login directly; they
// log to stderr only with --verbose.
//
// Fatal errors (returned): unreadable or invalid configuration, an invalid
// base URL, and a log file that cannot be opened. Everything the backend
// rejects is reported inside the UI instead.
package app
