// Package value defines the runtime values produced by evaluation.
package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/abyss-lang/abyss/core/ast"
)

// Value is a runtime value tagged by one of the built-in types.
type Value interface {
	Type() ast.Type
	// String returns the textual form used by unveil and trans.
	String() string
}

// Arcana is a 64-bit signed integer.
type Arcana int64

// Aether is a 64-bit float.
type Aether float64

// Rune is a string.
type Rune string

// Omen is a boolean.
type Omen bool

// Abyss is the unit value.
type Abyss struct{}

func (Arcana) Type() ast.Type { return ast.Arcana }
func (Aether) Type() ast.Type { return ast.Aether }
func (Rune) Type() ast.Type   { return ast.Rune }
func (Omen) Type() ast.Type   { return ast.Omen }
func (Abyss) Type() ast.Type  { return ast.Abyss }

func (v Arcana) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// String renders the shortest decimal that round-trips, without exponent.
func (v Aether) String() string {
	f := float64(v)
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v Rune) String() string {
	return string(v)
}

func (v Omen) String() string {
	if v {
		return "boon"
	}
	return "hex"
}

func (Abyss) String() string {
	return ""
}

// Unveiled returns the text unveil prints for v: literal \n sequences in
// runes become real newlines.
func Unveiled(v Value) string {
	if r, ok := v.(Rune); ok {
		return strings.ReplaceAll(string(r), `\n`, "\n")
	}
	return v.String()
}

// Zero returns the zero value of t.
func Zero(t ast.Type) Value {
	switch t {
	case ast.Arcana:
		return Arcana(0)
	case ast.Aether:
		return Aether(0)
	case ast.Rune:
		return Rune("")
	case ast.Omen:
		return Omen(false)
	}
	return Abyss{}
}
