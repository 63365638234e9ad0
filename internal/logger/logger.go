// Package logger reports the bundler's fatal error kinds to a writer: a
// single line, the offending file path prepended, colorized when writing
// to a terminal. Every error kind here is fatal and none produce warnings,
// so there is no message batching, deduplication, or error-count limiting
// to do.
package logger

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

// Msg is a single diagnostic: the file, an optional 1-based source line,
// and the message text.
type Msg struct {
	Kind MsgKind
	File string
	Line int // 0 if not applicable
	Text string
}

func (m Msg) String() string {
	if m.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", m.File, m.Line, m.Text)
	}
	if m.File != "" {
		return fmt.Sprintf("%s: %s", m.File, m.Text)
	}
	return m.Text
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
)

// Print writes msg to w with a colorized "error"/"warning" prefix as a
// single-line diagnostic.
func Print(w io.Writer, msg Msg) {
	label := errorColor.Sprint("error")
	if msg.Kind == Warning {
		label = warnColor.Sprint("warning")
	}
	fmt.Fprintf(w, "%s: %s\n", label, msg.String())
}
