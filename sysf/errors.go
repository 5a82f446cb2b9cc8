package sysf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// SyntaxError is a parse failure at a source position.
type SyntaxError struct {
	Pos    Pos
	Msg    string
	Source string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

// Diagnostic renders the error with the offending source line and a caret
// under the failing column.
func (e *SyntaxError) Diagnostic() string {
	var b strings.Builder
	b.WriteString(e.Error())

	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line < 1 || e.Pos.Line > len(lines) {
		return b.String()
	}
	line := strings.TrimRight(lines[e.Pos.Line-1], "\r")
	gutter := fmt.Sprintf("%d", e.Pos.Line)
	pad := strings.Repeat(" ", len(gutter))

	// Column in display cells, so the caret lines up under wide runes.
	runes := []rune(line)
	upto := e.Pos.Col - 1
	if upto > len(runes) {
		upto = len(runes)
	}
	if upto < 0 {
		upto = 0
	}
	caretCol := runewidth.StringWidth(string(runes[:upto]))

	fmt.Fprintf(&b, "\n\n %s | %s\n %s | %s^", gutter, line, pad, strings.Repeat(" ", caretCol))
	return b.String()
}

// TypeError describes why inference failed. It is used for logging; callers
// of Infer only see success or failure.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return "type error: " + e.Msg }

func typeErrorf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// IsSyntaxError reports whether err is, or wraps, a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}
