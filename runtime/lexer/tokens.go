package lexer

// TokenType represents lexical tokens of the AbySS language
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	SEMICOLON // ;

	// Keywords
	FORGE   // forge - variable declaration
	MORPH   // morph - mutability qualifier
	ORACLE  // oracle - pattern matching conditional
	ORBIT   // orbit - iteration
	RESUME  // resume - labeled continue
	EJECT   // eject - labeled break
	ENGRAVE // engrave - function declaration
	REVEAL  // reveal - yield from block/oracle/function
	UNVEIL  // unveil - print
	SUMMON  // summon - read input
	TRANS   // trans - cast
	AS      // as (inside trans)
	BOON    // boon (true)
	HEX     // hex (false)
	ABYSS   // abyss (unit literal and type)
	TYPE    // arcana, aether, rune, omen

	// Language structure
	COLON      // :
	COMMA      // ,
	ARROW      // ->
	FAT_ARROW  // =>
	UNDERSCORE // _ (don't-care pattern)
	DOTDOT     // .. exclusive range
	DOTDOT_EQ  // ..= inclusive range

	// Brackets and braces
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }

	// Comparison operators
	EQ_EQ  // ==
	NOT_EQ // !=
	LT     // <
	LT_EQ  // <=
	GT     // >
	GT_EQ  // >=

	// Logical operators
	AND_AND // &&
	OR_OR   // ||
	NOT     // !

	// Arithmetic operators
	PLUS     // +
	MINUS    // -
	MULTIPLY // *
	DIVIDE   // /
	MODULO   // %
	CARET    // ^ (arcana power)
	POWER    // ** (aether power)

	// Assignment operators
	EQUALS          // =
	PLUS_ASSIGN     // +=
	MINUS_ASSIGN    // -=
	MULTIPLY_ASSIGN // *=
	DIVIDE_ASSIGN   // /=
	MODULO_ASSIGN   // %=
	CARET_ASSIGN    // ^=
	POWER_ASSIGN    // **=

	// Literals and content
	IDENTIFIER // variable, function and label names
	INTEGER    // 123
	FLOAT      // 3.14
	STRING     // "string" (Text holds the raw content between quotes)
)

// Position represents a position in the source code
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// Token represents a lexical token
type Token struct {
	Type     TokenType
	Text     string
	Position Position
}

// String returns the token text (for testing and debugging)
func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Type.String()
}

var tokenNames = map[TokenType]string{
	EOF:             "end of input",
	ILLEGAL:         "illegal token",
	SEMICOLON:       "';'",
	FORGE:           "'forge'",
	MORPH:           "'morph'",
	ORACLE:          "'oracle'",
	ORBIT:           "'orbit'",
	RESUME:          "'resume'",
	EJECT:           "'eject'",
	ENGRAVE:         "'engrave'",
	REVEAL:          "'reveal'",
	UNVEIL:          "'unveil'",
	SUMMON:          "'summon'",
	TRANS:           "'trans'",
	AS:              "'as'",
	BOON:            "'boon'",
	HEX:             "'hex'",
	ABYSS:           "'abyss'",
	TYPE:            "type",
	COLON:           "':'",
	COMMA:           "','",
	ARROW:           "'->'",
	FAT_ARROW:       "'=>'",
	UNDERSCORE:      "'_'",
	DOTDOT:          "'..'",
	DOTDOT_EQ:       "'..='",
	LPAREN:          "'('",
	RPAREN:          "')'",
	LBRACE:          "'{'",
	RBRACE:          "'}'",
	EQ_EQ:           "'=='",
	NOT_EQ:          "'!='",
	LT:              "'<'",
	LT_EQ:           "'<='",
	GT:              "'>'",
	GT_EQ:           "'>='",
	AND_AND:         "'&&'",
	OR_OR:           "'||'",
	NOT:             "'!'",
	PLUS:            "'+'",
	MINUS:           "'-'",
	MULTIPLY:        "'*'",
	DIVIDE:          "'/'",
	MODULO:          "'%'",
	CARET:           "'^'",
	POWER:           "'**'",
	EQUALS:          "'='",
	PLUS_ASSIGN:     "'+='",
	MINUS_ASSIGN:    "'-='",
	MULTIPLY_ASSIGN: "'*='",
	DIVIDE_ASSIGN:   "'/='",
	MODULO_ASSIGN:   "'%='",
	CARET_ASSIGN:    "'^='",
	POWER_ASSIGN:    "'**='",
	IDENTIFIER:      "identifier",
	INTEGER:         "integer",
	FLOAT:           "float",
	STRING:          "string",
}

// String returns a human readable name of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

// Keywords maps reserved words to their token types
var Keywords = map[string]TokenType{
	"forge":   FORGE,
	"morph":   MORPH,
	"oracle":  ORACLE,
	"orbit":   ORBIT,
	"resume":  RESUME,
	"eject":   EJECT,
	"engrave": ENGRAVE,
	"reveal":  REVEAL,
	"unveil":  UNVEIL,
	"summon":  SUMMON,
	"trans":   TRANS,
	"as":      AS,
	"boon":    BOON,
	"hex":     HEX,
	"abyss":   ABYSS,
	"arcana":  TYPE,
	"aether":  TYPE,
	"rune":    TYPE,
	"omen":    TYPE,
	"_":       UNDERSCORE,
}

// operators lists multi-character operators, longest first within each leading byte
var operators = []struct {
	text string
	typ  TokenType
}{
	{"**=", POWER_ASSIGN},
	{"..=", DOTDOT_EQ},
	{"**", POWER},
	{"..", DOTDOT},
	{"->", ARROW},
	{"=>", FAT_ARROW},
	{"==", EQ_EQ},
	{"!=", NOT_EQ},
	{"<=", LT_EQ},
	{">=", GT_EQ},
	{"&&", AND_AND},
	{"||", OR_OR},
	{"+=", PLUS_ASSIGN},
	{"-=", MINUS_ASSIGN},
	{"*=", MULTIPLY_ASSIGN},
	{"/=", DIVIDE_ASSIGN},
	{"%=", MODULO_ASSIGN},
	{"^=", CARET_ASSIGN},
}
