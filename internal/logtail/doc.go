// Package logtail reads the tail of lector's log file for the TUI log pane.
//
// While the TUI runs, the standard logger writes to the file configured as
// log_file. Read returns its last N lines using a ring buffer of N entries,
// so memory stays O(N) whatever the file size. A missing file yields an
// empty result rather than an error.
//
// Classify assigns each line a display level from markers the rest of lector
// writes ("failed", "no active loan", ...), and Filter narrows the lines to
// those containing a search term. Both are pure functions.
package logtail
