package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abyss-lang/abyss/core/ast"
)

var ignorePos = cmpopts.IgnoreTypes(ast.Position{})

func arcana(n int64) *ast.ArcanaLiteral { return &ast.ArcanaLiteral{Value: n} }
func ident(name string) *ast.Var        { return &ast.Var{Name: name} }

func bin(op ast.BinaryOp, l, r ast.Node) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []ast.Node
	}{
		{
			name:  "immutable declaration",
			input: "forge x: arcana = 10;",
			want:  []ast.Node{&ast.VarAssign{Name: "x", Type: ast.Arcana, Value: arcana(10)}},
		},
		{
			name:  "mutable declaration",
			input: `forge morph s: rune = "hi";`,
			want:  []ast.Node{&ast.VarAssign{Name: "s", Type: ast.Rune, Mutable: true, Value: &ast.RuneLiteral{Value: "hi"}}},
		},
		{
			name:  "compound assignment",
			input: "x **= 2.0;",
			want:  []ast.Node{&ast.Assignment{Name: "x", Op: ast.PowAetherAssign, Value: &ast.AetherLiteral{Value: 2}}},
		},
		{
			name:  "precedence",
			input: "1 + 2 * 3;",
			want:  []ast.Node{bin(ast.Add, arcana(1), bin(ast.Mul, arcana(2), arcana(3)))},
		},
		{
			name:  "exponent is left associative",
			input: "3 ^ 4 ^ 2;",
			want:  []ast.Node{bin(ast.PowArcana, bin(ast.PowArcana, arcana(3), arcana(4)), arcana(2))},
		},
		{
			name:  "logical and binds tighter than or",
			input: "a || b && c;",
			want:  []ast.Node{bin(ast.LogicalOr, ident("a"), bin(ast.LogicalAnd, ident("b"), ident("c")))},
		},
		{
			name:  "negative literal folds",
			input: "-10 % 3;",
			want:  []ast.Node{bin(ast.Mod, arcana(-10), arcana(3))},
		},
		{
			name:  "unary operators",
			input: "!-x;",
			want: []ast.Node{&ast.UnaryExpr{Op: ast.LogicalNot, Operand: &ast.UnaryExpr{
				Op: ast.Negate, Operand: ident("x"),
			}}},
		},
		{
			name:  "escaped quote",
			input: `unveil("say \"hi\"", x);`,
			want:  []ast.Node{&ast.Unveil{Args: []ast.Node{&ast.RuneLiteral{Value: `say "hi"`}, ident("x")}}},
		},
		{
			name:  "trans and summon",
			input: `trans(summon("n? ", rune) as arcana);`,
			want: []ast.Node{&ast.Trans{Target: ast.Arcana, Expr: &ast.Summon{
				Prompt: &ast.RuneLiteral{Value: "n? "}, Type: ast.Rune,
			}}},
		},
		{
			name:  "reveal forms",
			input: "{ reveal; }; { reveal 1 + 1; };",
			want: []ast.Node{
				&ast.Block{Statements: []ast.Node{&ast.Reveal{}}},
				&ast.Block{Statements: []ast.Node{&ast.Reveal{Expr: bin(ast.Add, arcana(1), arcana(1))}}},
			},
		},
		{
			name:  "engrave with default return type",
			input: "engrave greet(name: rune) { unveil(name); };",
			want: []ast.Node{&ast.Engrave{
				Name:       "greet",
				Params:     []ast.Param{{Name: "name", Type: ast.Rune}},
				ReturnType: ast.Abyss,
				Body:       &ast.Block{Statements: []ast.Node{&ast.Unveil{Args: []ast.Node{ident("name")}}}},
			}},
		},
		{
			name:  "function call",
			input: "add(1, f());",
			want: []ast.Node{&ast.FuncCall{Name: "add", Args: []ast.Node{
				arcana(1), &ast.FuncCall{Name: "f"},
			}}},
		},
		{
			name:  "labelled control signals",
			input: "orbit { resume outer; eject; };",
			want: []ast.Node{&ast.Orbit{Body: &ast.Block{Statements: []ast.Node{
				&ast.Resume{Label: "outer"}, &ast.Eject{},
			}}}},
		},
		{
			name:  "orbit ranges",
			input: "orbit (i = 0..3, j = 1..=n) { };",
			want: []ast.Node{&ast.Orbit{
				Params: []*ast.OrbitParam{
					{Name: "i", Start: arcana(0), End: arcana(3)},
					{Name: "j", Start: arcana(1), End: ident("n"), Inclusive: true},
				},
				Body: &ast.Block{},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, program.Statements, ignorePos); diff != "" {
				t.Errorf("AST mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOracle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *ast.Oracle
	}{
		{
			name:  "match mode with tuple and default",
			input: "oracle (a, b) { (1, _) => 10; _ => 0 };",
			want: &ast.Oracle{
				IsMatch:      true,
				Conditionals: []ast.OracleConditional{{Expr: ident("a")}, {Expr: ident("b")}},
				Branches: []*ast.OracleBranch{
					{Pattern: []ast.Node{arcana(1), &ast.DontCare{}}, Body: arcana(10)},
					{Body: arcana(0)},
				},
			},
		},
		{
			name:  "guard mode with binding",
			input: "oracle (v = x * 2) { v > 5 => reveal boon; };",
			want: &ast.Oracle{
				Conditionals: []ast.OracleConditional{{Variable: "v", Expr: bin(ast.Mul, ident("x"), arcana(2))}},
				Branches: []*ast.OracleBranch{
					{Pattern: []ast.Node{bin(ast.GreaterThan, ident("v"), arcana(5))}, Body: &ast.Reveal{Expr: &ast.OmenLiteral{Value: true}}},
				},
			},
		},
		{
			name:  "guard mode without conditionals",
			input: "oracle { x == 1, y => unveil(x); };",
			want: &ast.Oracle{
				Branches: []*ast.OracleBranch{
					{Pattern: []ast.Node{bin(ast.Equal, ident("x"), arcana(1)), ident("y")}, Body: &ast.Unveil{Args: []ast.Node{ident("x")}}},
				},
			},
		},
		{
			name:  "parenthesised pattern expression",
			input: "oracle { (x + 1) * 2 > 4 => 1 };",
			want: &ast.Oracle{
				Branches: []*ast.OracleBranch{
					{Pattern: []ast.Node{bin(ast.GreaterThan, bin(ast.Mul, bin(ast.Add, ident("x"), arcana(1)), arcana(2)), arcana(4))}, Body: arcana(1)},
				},
			},
		},
		{
			name:  "omen pattern",
			input: "oracle (flag) { (boon) => 1; (hex) => 2; };",
			want: &ast.Oracle{
				IsMatch:      true,
				Conditionals: []ast.OracleConditional{{Expr: ident("flag")}},
				Branches: []*ast.OracleBranch{
					{Pattern: []ast.Node{&ast.OmenLiteral{Value: true}}, Body: arcana(1)},
					{Pattern: []ast.Node{&ast.OmenLiteral{Value: false}}, Body: arcana(2)},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff([]ast.Node{tt.want}, program.Statements, ignorePos); diff != "" {
				t.Errorf("AST mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	program := ParseString("forge x: arcana = 1;\n  unveil(x);")
	if got := program.Statements[1].Position(); got != (ast.Position{Line: 2, Column: 3}) {
		t.Errorf("unveil position = %v, want 2:3", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		message    string
		pos        ast.Position
		incomplete bool
	}{
		{
			name:    "missing semicolon",
			input:   "forge x: arcana = 1 unveil(x);",
			message: "expected ';', got 'unveil'",
			pos:     ast.Position{Line: 1, Column: 21},
		},
		{
			name:    "missing type",
			input:   "forge x = 1;",
			message: "expected ':', got '='",
			pos:     ast.Position{Line: 1, Column: 9},
		},
		{
			name:    "mixed oracle conditionals",
			input:   "oracle (a = 1, b) { _ => 0 };",
			message: "oracle conditionals must be either all named (x = expr) or all unnamed",
			pos:     ast.Position{Line: 1, Column: 16},
		},
		{
			name:       "unclosed block",
			input:      "{ unveil(1);",
			message:    "expected '}', got end of input",
			pos:        ast.Position{Line: 1, Column: 13},
			incomplete: true,
		},
		{
			name:       "unterminated string",
			input:      `unveil("abc`,
			incomplete: true,
			pos:        ast.Position{Line: 1, Column: 8},
			message:    `illegal token "unterminated string"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if perr.Message != tt.message {
				t.Errorf("message = %q, want %q", perr.Message, tt.message)
			}
			if perr.Pos != tt.pos {
				t.Errorf("position = %v, want %v", perr.Pos, tt.pos)
			}
			if perr.Incomplete != tt.incomplete {
				t.Errorf("incomplete = %v, want %v", perr.Incomplete, tt.incomplete)
			}
		})
	}
}

func TestTelemetry(t *testing.T) {
	var tel ParseTelemetry
	_, err := Parse("forge x: arcana = 1; unveil(x);", WithTelemetry(&tel))
	if err != nil {
		t.Fatal(err)
	}
	if tel.StatementCount != 2 {
		t.Errorf("StatementCount = %d, want 2", tel.StatementCount)
	}
	if tel.TokenCount != 13 {
		t.Errorf("TokenCount = %d, want 13", tel.TokenCount)
	}
}
