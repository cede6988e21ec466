package logger

import (
	"io"
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether f is attached to a terminal.
// The check runs on the descriptor f already owns.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorFor reports whether output written to w should carry ANSI colors.
func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
