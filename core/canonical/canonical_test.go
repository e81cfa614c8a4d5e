package canonical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/canonical"
	"github.com/abyss-lang/abyss/runtime/parser"
)

func digest(t *testing.T, source string) canonical.Digest {
	t.Helper()
	program, err := parser.Parse(source)
	require.NoError(t, err)
	d, err := canonical.Sum(program)
	require.NoError(t, err)
	return d
}

func TestDigestIgnoresLayout(t *testing.T) {
	a := digest(t, "forge morph x: arcana = 1; orbit(i = 0..3) { x += i; };")
	b := digest(t, `// accumulate
forge morph x: arcana = 1;
orbit (i = 0..3) {
    x += i;   // add
};`)
	assert.Equal(t, a, b)
}

func TestDigestDistinguishesPrograms(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"operator", "1 + 2;", "1 - 2;"},
		{"literal type", "1;", "1.0;"},
		{"mutability", "forge x: arcana = 1;", "forge morph x: arcana = 1;"},
		{"range kind", "orbit(i = 0..3) { };", "orbit(i = 0..=3) { };"},
		{"grouping", "(1 + 2) * 3;", "1 + 2 * 3;"},
		{"oracle mode", "oracle (x) { _ => 1; };", "oracle (v = x) { _ => 1; };"},
		{"label", "eject;", "eject i;"},
		{"bare reveal", "{ reveal; };", "{ reveal abyss; };"},
		{"statement split", "{ 1; 2; };", "{ 1; }; { 2; };"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, digest(t, tt.a), digest(t, tt.b))
		})
	}
}

func TestMarshalDeterministic(t *testing.T) {
	program, err := parser.Parse(`engrave f(a: arcana, b: rune) -> rune { reveal b; }; oracle (1, 2) { (1, _) => f(1, "x"); };`)
	require.NoError(t, err)
	cp, err := canonical.Canonicalize(program)
	require.NoError(t, err)

	first, err := cp.MarshalBinary()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := cp.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDigestString(t *testing.T) {
	d := digest(t, "1;")
	assert.Len(t, d.String(), 64)
}

type unknownNode struct{ ast.Var }

func TestUnknownNode(t *testing.T) {
	_, err := canonical.Sum(&ast.Program{Statements: []ast.Node{&unknownNode{}}})
	assert.ErrorContains(t, err, "unknown node type")
}
