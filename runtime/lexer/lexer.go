package lexer

import (
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ASCII character lookup tables for fast classification
var (
	isWhitespace     [128]bool
	isLetter         [128]bool
	isDigit          [128]bool
	isIdentStart     [128]bool
	isIdentPart      [128]bool
	singleCharTokens [128]TokenType
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = isLetter[i] || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
		singleCharTokens[i] = ILLEGAL
	}

	singleCharTokens[';'] = SEMICOLON
	singleCharTokens[':'] = COLON
	singleCharTokens[','] = COMMA
	singleCharTokens['('] = LPAREN
	singleCharTokens[')'] = RPAREN
	singleCharTokens['{'] = LBRACE
	singleCharTokens['}'] = RBRACE
	singleCharTokens['<'] = LT
	singleCharTokens['>'] = GT
	singleCharTokens['!'] = NOT
	singleCharTokens['+'] = PLUS
	singleCharTokens['-'] = MINUS
	singleCharTokens['*'] = MULTIPLY
	singleCharTokens['/'] = DIVIDE
	singleCharTokens['%'] = MODULO
	singleCharTokens['^'] = CARET
	singleCharTokens['='] = EQUALS
}

// Option configures a Lexer
type Option func(*Lexer)

// WithLogger replaces the default debug logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lexer) {
		l.logger = logger
	}
}

// Lexer turns AbySS source into tokens
type Lexer struct {
	input    string // Complete input
	position int    // Current position in input (byte offset)
	readPos  int    // Next reading position in input (byte offset)
	ch       rune   // Current rune under examination
	line     int    // Current line number
	column   int    // Current column number

	logger *slog.Logger
}

// New creates a lexer over source.
// Debug tracing is enabled by setting ABYSS_DEBUG_LEXER.
func New(source string, opts ...Option) *Lexer {
	l := &Lexer{
		input:  source,
		line:   1,
		column: 0, // incremented to 1 by the initial readChar()
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.readChar()
	return l
}

func defaultLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("ABYSS_DEBUG_LEXER") != "" {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	l.position = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		var size int
		l.ch, size = utf8.DecodeRuneInString(l.input[l.readPos:])
		if l.ch == utf8.RuneError {
			l.ch = rune(l.input[l.readPos])
			size = 1
		}
		l.readPos += size
	}
	l.column++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return ch
}

// skipTrivia skips whitespace and // line comments
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch < 128 && l.ch != 0 && isWhitespace[l.ch]:
			l.readChar()
		case l.ch >= 128 && unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// Tokenize tokenizes the entire input; the last token is always EOF
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		token := l.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens
		}
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	start, line, column := l.position, l.line, l.column
	pos := Position{Line: line, Column: column, Offset: start}

	var tok Token
	switch {
	case l.ch == 0 && l.position >= len(l.input):
		tok = Token{Type: EOF, Position: pos}
	case l.ch == '"':
		tok = l.lexString(pos)
	case l.ch < 128 && isDigit[l.ch]:
		tok = l.lexNumber(pos)
	case (l.ch < 128 && isIdentStart[l.ch]) || (l.ch >= 128 && unicode.IsLetter(l.ch)):
		tok = l.lexIdentifierOrKeyword(pos)
	default:
		tok = l.lexOperator(pos)
	}

	l.logger.Debug("[LEXER] token",
		"type", tok.Type.String(),
		"text", tok.Text,
		"line", tok.Position.Line,
		"column", tok.Position.Column)
	return tok
}

func (l *Lexer) lexOperator(pos Position) Token {
	rest := l.input[l.position:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.readChar()
			}
			return Token{Type: op.typ, Text: op.text, Position: pos}
		}
	}

	ch := l.ch
	l.readChar()
	if ch < 128 && singleCharTokens[ch] != ILLEGAL {
		return Token{Type: singleCharTokens[ch], Text: string(ch), Position: pos}
	}
	return Token{Type: ILLEGAL, Text: string(ch), Position: pos}
}

// lexIdentifierOrKeyword handles identifiers and keywords (using fast ASCII lookups)
func (l *Lexer) lexIdentifierOrKeyword(pos Position) Token {
	for {
		if l.ch < 128 && l.ch != 0 && isIdentPart[l.ch] {
			l.readChar()
		} else if l.ch >= 128 && (unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch)) {
			l.readChar()
		} else {
			break
		}
	}

	text := l.input[pos.Offset:l.position]
	if typ, ok := Keywords[text]; ok {
		return Token{Type: typ, Text: text, Position: pos}
	}
	return Token{Type: IDENTIFIER, Text: text, Position: pos}
}

// lexNumber handles integer and float literals. A '.' is only part of the
// number when a digit follows, so 0..5 lexes as INTEGER DOTDOT INTEGER.
func (l *Lexer) lexNumber(pos Position) Token {
	typ := INTEGER
	for l.ch < 128 && l.ch != 0 && isDigit[l.ch] {
		l.readChar()
	}
	if next := l.peekChar(); l.ch == '.' && next < 128 && next != 0 && isDigit[next] {
		typ = FLOAT
		l.readChar()
		for l.ch < 128 && l.ch != 0 && isDigit[l.ch] {
			l.readChar()
		}
	}
	return Token{Type: typ, Text: l.input[pos.Offset:l.position], Position: pos}
}

// lexString handles double-quoted strings. The token text is the raw content
// between the quotes; an escaped quote does not terminate the string.
func (l *Lexer) lexString(pos Position) Token {
	l.readChar() // opening quote
	contentStart := l.position
	for {
		switch l.ch {
		case 0:
			if l.position >= len(l.input) {
				return Token{Type: ILLEGAL, Text: "unterminated string", Position: pos}
			}
		case '\\':
			if l.peekChar() == '"' {
				l.readChar()
			}
		case '"':
			text := l.input[contentStart:l.position]
			l.readChar() // closing quote
			return Token{Type: STRING, Text: text, Position: pos}
		}
		l.readChar()
	}
}
