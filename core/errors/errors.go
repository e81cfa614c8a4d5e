package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/abyss-lang/abyss/core/ast"
)

// Kind categorizes evaluation failures.
type Kind string

const (
	// UndefinedVariable: name not found in any active scope or function table.
	UndefinedVariable Kind = "UndefinedVariable"
	// InvalidOperation: operand mismatch, failed cast, immutable reassignment,
	// unsupported compound operator.
	InvalidOperation Kind = "InvalidOperation"
	// NegativeExponent: integer power with a negative exponent.
	NegativeExponent Kind = "NegativeExponent"
	// TypeError: declared type does not match the runtime value.
	TypeError Kind = "TypeError"
)

// EvalError is a structured evaluation failure with optional source position.
type EvalError struct {
	Kind    Kind
	Message string
	Pos     ast.Position
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows error unwrapping
func (e *EvalError) Unwrap() error {
	return e.Cause
}

// New creates a new EvalError
func New(kind Kind, format string, args ...interface{}) *EvalError {
	return &EvalError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a new EvalError wrapping an existing error
func Wrap(kind Kind, cause error, format string, args ...interface{}) *EvalError {
	e := New(kind, format, args...)
	e.Cause = cause
	return e
}

// WithPos attaches a position unless one is already set, so the innermost
// node that failed keeps ownership of the location.
func (e *EvalError) WithPos(pos ast.Position) *EvalError {
	if !e.Pos.IsValid() {
		e.Pos = pos
	}
	return e
}

// WithContext adds context information to the error
func (e *EvalError) WithContext(key string, value interface{}) *EvalError {
	e.Context[key] = value
	return e
}

// GetContext returns context value by key
func (e *EvalError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// Suggestion returns the "did you mean" candidate attached to the error, if any.
func (e *EvalError) Suggestion() string {
	if s, ok := e.Context["suggestion"].(string); ok {
		return s
	}
	return ""
}

// Helper functions for common error scenarios

// NewUndefinedVariable reports a missing variable or function.
func NewUndefinedVariable(name string) *EvalError {
	return New(UndefinedVariable, "undefined variable '%s'", name).
		WithContext("name", name)
}

// NewUndefinedFunction reports a call to a function that is not declared.
func NewUndefinedFunction(name string) *EvalError {
	return New(UndefinedVariable, "undefined function '%s'", name).
		WithContext("name", name)
}

// NewInvalidOperation reports an operation the operands do not support.
func NewInvalidOperation(format string, args ...interface{}) *EvalError {
	return New(InvalidOperation, format, args...)
}

// NewNegativeExponent reports an arcana power with exponent < 0.
func NewNegativeExponent(exponent int64) *EvalError {
	return New(NegativeExponent, "arcana exponent must not be negative, got %d", exponent).
		WithContext("exponent", exponent)
}

// NewTypeError reports a declared-versus-actual type mismatch.
func NewTypeError(what string, want, got ast.Type) *EvalError {
	return New(TypeError, "%s expects %s, got %s", what, want, got).
		WithContext("expected", want.String()).
		WithContext("actual", got.String())
}

// As extracts an *EvalError from err's chain.
func As(err error) (*EvalError, bool) {
	var evalErr *EvalError
	if stderrors.As(err, &evalErr) {
		return evalErr, true
	}
	return nil, false
}

// IsKind checks if an error is an EvalError of a specific kind
func IsKind(err error, kind Kind) bool {
	if evalErr, ok := As(err); ok {
		return evalErr.Kind == kind
	}
	return false
}
