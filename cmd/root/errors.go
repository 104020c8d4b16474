package root

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// PrintError writes err as a one-line diagnostic, in colour when w is a
// terminal.
func PrintError(w io.Writer, err error) {
	prefix := "error:"
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		prefix = color.New(color.FgRed, color.Bold).Sprint(prefix)
	}
	fmt.Fprintf(w, "%s %v\n", prefix, err)
}
