package lexer

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type tok struct {
	Type TokenType
	Text string
}

func lexAll(input string) []tok {
	l := New(input, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	var out []tok
	for _, t := range l.Tokenize() {
		out = append(out, tok{t.Type, t.Text})
	}
	return out
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "declaration",
			input: "forge morph x: arcana = 10;",
			want: []tok{
				{FORGE, "forge"}, {MORPH, "morph"}, {IDENTIFIER, "x"}, {COLON, ":"},
				{TYPE, "arcana"}, {EQUALS, "="}, {INTEGER, "10"}, {SEMICOLON, ";"}, {EOF, ""},
			},
		},
		{
			name:  "compound assignment operators",
			input: "x += 1; x **= 2.5; x ^= 3; x %= 4",
			want: []tok{
				{IDENTIFIER, "x"}, {PLUS_ASSIGN, "+="}, {INTEGER, "1"}, {SEMICOLON, ";"},
				{IDENTIFIER, "x"}, {POWER_ASSIGN, "**="}, {FLOAT, "2.5"}, {SEMICOLON, ";"},
				{IDENTIFIER, "x"}, {CARET_ASSIGN, "^="}, {INTEGER, "3"}, {SEMICOLON, ";"},
				{IDENTIFIER, "x"}, {MODULO_ASSIGN, "%="}, {INTEGER, "4"}, {EOF, ""},
			},
		},
		{
			name:  "ranges do not swallow dots",
			input: "orbit(i = 0..5, j = 1..=3)",
			want: []tok{
				{ORBIT, "orbit"}, {LPAREN, "("}, {IDENTIFIER, "i"}, {EQUALS, "="},
				{INTEGER, "0"}, {DOTDOT, ".."}, {INTEGER, "5"}, {COMMA, ","},
				{IDENTIFIER, "j"}, {EQUALS, "="}, {INTEGER, "1"}, {DOTDOT_EQ, "..="},
				{INTEGER, "3"}, {RPAREN, ")"}, {EOF, ""},
			},
		},
		{
			name:  "oracle arms",
			input: "(_, 2) => reveal boon; _ => hex",
			want: []tok{
				{LPAREN, "("}, {UNDERSCORE, "_"}, {COMMA, ","}, {INTEGER, "2"}, {RPAREN, ")"},
				{FAT_ARROW, "=>"}, {REVEAL, "reveal"}, {BOON, "boon"}, {SEMICOLON, ";"},
				{UNDERSCORE, "_"}, {FAT_ARROW, "=>"}, {HEX, "hex"}, {EOF, ""},
			},
		},
		{
			name:  "comparison and logic",
			input: "a<=b&&!c||d!=e>=f",
			want: []tok{
				{IDENTIFIER, "a"}, {LT_EQ, "<="}, {IDENTIFIER, "b"}, {AND_AND, "&&"},
				{NOT, "!"}, {IDENTIFIER, "c"}, {OR_OR, "||"}, {IDENTIFIER, "d"},
				{NOT_EQ, "!="}, {IDENTIFIER, "e"}, {GT_EQ, ">="}, {IDENTIFIER, "f"}, {EOF, ""},
			},
		},
		{
			name:  "comments are skipped",
			input: "eject i; // leave the outer loop\nresume",
			want:  []tok{{EJECT, "eject"}, {IDENTIFIER, "i"}, {SEMICOLON, ";"}, {RESUME, "resume"}, {EOF, ""}},
		},
		{
			name:  "raw strings keep escapes",
			input: `"line\n" "say \"hi\""`,
			want:  []tok{{STRING, `line\n`}, {STRING, `say \"hi\"`}, {EOF, ""}},
		},
		{
			name:  "engrave signature",
			input: "engrave add(a: arcana) -> arcana",
			want: []tok{
				{ENGRAVE, "engrave"}, {IDENTIFIER, "add"}, {LPAREN, "("}, {IDENTIFIER, "a"},
				{COLON, ":"}, {TYPE, "arcana"}, {RPAREN, ")"}, {ARROW, "->"}, {TYPE, "arcana"}, {EOF, ""},
			},
		},
		{
			name:  "unterminated string",
			input: `"open`,
			want:  []tok{{ILLEGAL, "unterminated string"}, {EOF, ""}},
		},
		{
			name:  "illegal character",
			input: "x $ y",
			want:  []tok{{IDENTIFIER, "x"}, {ILLEGAL, "$"}, {IDENTIFIER, "y"}, {EOF, ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, lexAll(tt.input)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	l := New("forge x: arcana = 1;\n  x;", WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	tokens := l.Tokenize()

	want := []Position{
		{Line: 1, Column: 1, Offset: 0},   // forge
		{Line: 1, Column: 7, Offset: 6},   // x
		{Line: 1, Column: 8, Offset: 7},   // :
		{Line: 1, Column: 10, Offset: 9},  // arcana
		{Line: 1, Column: 17, Offset: 16}, // =
		{Line: 1, Column: 19, Offset: 18}, // 1
		{Line: 1, Column: 20, Offset: 19}, // ;
		{Line: 2, Column: 3, Offset: 23},  // x
		{Line: 2, Column: 4, Offset: 24},  // ;
	}
	var got []Position
	for _, tok := range tokens[:len(tokens)-1] {
		got = append(got, tok.Position)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenTypeString(t *testing.T) {
	if got := SEMICOLON.String(); got != "';'" {
		t.Errorf("SEMICOLON.String() = %q", got)
	}
	if got := TokenType(-1).String(); got != "unknown" {
		t.Errorf("TokenType(-1).String() = %q", got)
	}
}
