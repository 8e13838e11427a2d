// Package progress provides terminal-aware feedback for long-running
// operations (clone, configure, build): an animated spinner in an
// interactive terminal, one printed line per message otherwise.
package progress

import (
	"os"

	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check if a file descriptor is
// a terminal. It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// ShouldShowProgress returns true if progress should be displayed.
// Progress is shown when stdout is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}
