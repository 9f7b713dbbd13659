package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// ParseColorMode converts a string to a ColorMode, defaulting to auto.
func ParseColorMode(s string) ColorMode {
	switch strings.ToLower(s) {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// Reporter prints diagnostics prefixed with the program name.
type Reporter struct {
	w       io.Writer
	prog    string
	errTag  *color.Color
	warnTag *color.Color
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, prog string, mode ColorMode) *Reporter {
	r := &Reporter{
		w:       w,
		prog:    prog,
		errTag:  color.New(color.FgRed, color.Bold),
		warnTag: color.New(color.FgYellow),
	}

	if shouldColorize(mode, w) {
		r.errTag.EnableColor()
		r.warnTag.EnableColor()
	} else {
		r.errTag.DisableColor()
		r.warnTag.DisableColor()
	}
	return r
}

// Error reports a failure.
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.w, "%s: %s %v\n", r.prog, r.errTag.Sprint("error:"), err)
}

// Warn reports a condition that did not stop the run.
func (r *Reporter) Warn(format string, args ...interface{}) {
	fmt.Fprintf(r.w, "%s: %s %s\n", r.prog, r.warnTag.Sprint("warning:"), fmt.Sprintf(format, args...))
}
