package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"golang.org/x/term"
)

var (
	colorOk      = color.Style{color.FgGreen, color.OpBold}
	colorFailed  = color.Style{color.FgRed, color.OpBold}
	colorPending = color.Style{color.FgYellow}
	colorName    = color.Style{color.FgCyan}
	colorSubtle  = color.Style{color.FgGray}
)

type printer struct {
	w       io.Writer
	colored bool
}

// Colours output only when w is a terminal.
func newPrinter(w io.Writer) printer {
	colored := false
	if f, ok := w.(*os.File); ok {
		colored = term.IsTerminal(int(f.Fd()))
	}
	return printer{w: w, colored: colored}
}

func (p printer) style(s color.Style, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if !p.colored {
		return msg
	}
	return s.Sprint(msg)
}

func (p printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p printer) Println(args ...interface{}) {
	fmt.Fprintln(p.w, args...)
}
