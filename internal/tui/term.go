package tui

import (
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
