package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

// terminalInfo reports whether w is a terminal and, if so, its width in columns (0 if unknown or not a terminal).
func terminalInfo(w io.Writer) (isTerminal bool, width int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 0
	}
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
		return true, cols
	}
	return true, 0
}
