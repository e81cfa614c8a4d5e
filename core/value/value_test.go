package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abyss-lang/abyss/core/ast"
)

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Arcana(-42), "-42"},
		{Aether(3), "3"},
		{Aether(0.1), "0.1"},
		{Aether(1e21), "1000000000000000000000"},
		{Aether(math.Inf(1)), "inf"},
		{Aether(math.Inf(-1)), "-inf"},
		{Aether(math.NaN()), "NaN"},
		{Rune(`a\nb`), `a\nb`},
		{Omen(true), "boon"},
		{Omen(false), "hex"},
		{Abyss{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.String(), "%#v", tt.v)
	}
}

func TestUnveiled(t *testing.T) {
	assert.Equal(t, "a\nb", Unveiled(Rune(`a\nb`)))
	assert.Equal(t, "7", Unveiled(Arcana(7)))
	assert.Equal(t, "", Unveiled(Abyss{}))
}

func TestZero(t *testing.T) {
	for _, typ := range []ast.Type{ast.Arcana, ast.Aether, ast.Rune, ast.Omen, ast.Abyss} {
		assert.Equal(t, typ, Zero(typ).Type())
	}
	assert.Equal(t, Arcana(0), Zero(ast.Arcana))
	assert.Equal(t, Omen(false), Zero(ast.Omen))
}
