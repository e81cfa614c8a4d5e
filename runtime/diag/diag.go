// Package diag renders parse and evaluation errors against the source text
// they came from: a location header, the offending line and a caret under
// the column.
package diag

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/runtime/parser"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
)

// Colorize wraps text in ANSI color codes if color is enabled
func Colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + ColorReset
}

// ShouldUseColor resolves a color mode ("auto", "always" or "never") for f.
// In auto mode color is used only when NO_COLOR is unset and f is a terminal.
func ShouldUseColor(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Formatter renders errors with a source snippet.
type Formatter struct {
	Source   string
	Filename string // optional; omitted from locations when empty
	Compact  bool   // one header line instead of the framed layout
	Color    bool
}

// report is the renderer's view of any error
type report struct {
	title      string
	message    string
	pos        ast.Position
	suggestion string
}

func classify(err error) report {
	if evalErr, ok := errors.As(err); ok {
		r := report{title: string(evalErr.Kind), message: evalErr.Message, pos: evalErr.Pos}
		if s := evalErr.Suggestion(); s != "" {
			r.suggestion = fmt.Sprintf("did you mean '%s'?", s)
		}
		return r
	}
	var parseErr *parser.ParseError
	if stderrors.As(err, &parseErr) {
		return report{title: "syntax error", message: parseErr.Message, pos: parseErr.Pos}
	}
	return report{title: "error", message: err.Error()}
}

// Format renders err. Errors without a usable position render as a single line.
func (f Formatter) Format(err error) string {
	r := classify(err)
	line, ok := f.sourceLine(r.pos)

	var b strings.Builder
	if f.Compact {
		fmt.Fprintf(&b, "%s%s: %s\n", f.location(r.pos, ok), r.title, r.message)
		if ok {
			f.writeSnippet(&b, r.pos, line)
		}
		if r.suggestion != "" {
			fmt.Fprintf(&b, "%s%s\n", strings.Repeat(" ", f.gutterWidth(r.pos)+1), r.suggestion)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "%s: %s\n", Colorize(r.title, ColorRed, f.Color), r.message)
	if !ok {
		return b.String()
	}
	gutter := strings.Repeat(" ", f.gutterWidth(r.pos)+1)
	fmt.Fprintf(&b, "%s%s %s\n", gutter[1:], Colorize("-->", ColorCyan, f.Color), strings.TrimSuffix(f.location(r.pos, true), ": "))
	fmt.Fprintf(&b, "%s%s\n", gutter, Colorize("|", ColorCyan, f.Color))
	f.writeSnippet(&b, r.pos, line)
	if r.suggestion != "" {
		fmt.Fprintf(&b, "%s%s\n", gutter, Colorize("|", ColorCyan, f.Color))
		fmt.Fprintf(&b, "%s= Suggestion: %s\n", gutter, r.suggestion)
	}
	return b.String()
}

func (f Formatter) location(pos ast.Position, valid bool) string {
	switch {
	case valid && f.Filename != "":
		return fmt.Sprintf("%s:%d:%d: ", f.Filename, pos.Line, pos.Column)
	case valid:
		return fmt.Sprintf("%d:%d: ", pos.Line, pos.Column)
	case f.Filename != "":
		return f.Filename + ": "
	}
	return ""
}

func (f Formatter) sourceLine(pos ast.Position) (string, bool) {
	if !pos.IsValid() || f.Source == "" {
		return "", false
	}
	lines := strings.Split(f.Source, "\n")
	if pos.Line > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[pos.Line-1], "\r"), true
}

// gutterWidth is the width of the line-number column, at least two.
func (f Formatter) gutterWidth(pos ast.Position) int {
	return max(2, len(fmt.Sprint(pos.Line)))
}

func (f Formatter) writeSnippet(b *strings.Builder, pos ast.Position, line string) {
	width := f.gutterWidth(pos)
	bar := Colorize("|", ColorCyan, f.Color)
	fmt.Fprintf(b, "%*d %s %s\n", width, pos.Line, bar, line)

	col := min(max(pos.Column, 1), len(line)+1)
	caret := Colorize("^", ColorYellow, f.Color)
	fmt.Fprintf(b, "%s %s %s%s\n", strings.Repeat(" ", width), bar, caretPadding(line, col), caret)
}

// caretPadding reproduces the line's leading whitespace, tabs included, so
// the caret lines up with the token however the terminal expands tabs.
func caretPadding(line string, col int) string {
	indent := len(line) - len(strings.TrimLeft(line, " \t"))
	indent = min(indent, col-1)
	return line[:indent] + strings.Repeat(" ", col-1-indent)
}
