package parser

import (
	"fmt"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/runtime/lexer"
)

// ParseError represents a parsing error with location and context information
type ParseError struct {
	Message string
	Pos     ast.Position
	Got     lexer.Token
	// Incomplete is set when the input ended before the statement did;
	// interactive callers use it to keep reading lines.
	Incomplete bool
}

// Error returns the message prefixed with line:column
func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

// Position returns the location of the offending token
func (e *ParseError) Position() ast.Position {
	return e.Pos
}

// errorAt creates a syntax error at tok
func errorAt(tok lexer.Token, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Message:    fmt.Sprintf(format, args...),
		Pos:        position(tok),
		Got:        tok,
		Incomplete: tok.Type == lexer.EOF || (tok.Type == lexer.ILLEGAL && tok.Text == "unterminated string"),
	}
}

// unexpected creates an "expected X, got Y" error
func unexpected(expected string, got lexer.Token) *ParseError {
	return errorAt(got, "expected %s, got %s", expected, describe(got))
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.ILLEGAL:
		return fmt.Sprintf("illegal token %q", tok.Text)
	case lexer.IDENTIFIER, lexer.INTEGER, lexer.FLOAT:
		return fmt.Sprintf("%s '%s'", tok.Type, tok.Text)
	case lexer.STRING:
		return fmt.Sprintf("string %q", tok.Text)
	case lexer.TYPE:
		return fmt.Sprintf("type '%s'", tok.Text)
	}
	return tok.Type.String()
}

func position(tok lexer.Token) ast.Position {
	return ast.Position{Line: tok.Position.Line, Column: tok.Position.Column}
}
