package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/invariant"
	"github.com/abyss-lang/abyss/runtime/lexer"
)

// Parse parses a whole source file. Parsing stops at the first error, which
// is always a *ParseError.
func Parse(source string, opts ...ParserOpt) (*ast.Program, error) {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}

	startLex := time.Now()
	var lexOpts []lexer.Option
	if config.logger != nil {
		lexOpts = append(lexOpts, lexer.WithLogger(config.logger))
	}
	tokens := lexer.New(source, lexOpts...).Tokenize()
	lexTime := time.Since(startLex)

	startParse := time.Now()
	p := &parser{tokens: tokens}
	program, err := p.file()

	if t := config.telemetry; t != nil {
		t.LexTime = lexTime
		t.ParseTime = time.Since(startParse)
		t.TotalTime = time.Since(startLex)
		t.TokenCount = len(tokens)
		if program != nil {
			t.StatementCount = len(program.Statements)
		}
	}
	if err != nil {
		return nil, err
	}
	return program, nil
}

// ParseString is a convenience wrapper for tests
func ParseString(input string) *ast.Program {
	program, err := Parse(input)
	invariant.ExpectNoError(err, "parse")
	return program
}

type parser struct {
	tokens []lexer.Token
	pos    int
}

func (p *parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) at(types ...lexer.TokenType) bool {
	cur := p.current().Type
	for _, t := range types {
		if cur == t {
			return true
		}
	}
	return false
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, error) {
	if !p.at(typ) {
		return lexer.Token{}, unexpected(typ.String(), p.current())
	}
	return p.advance(), nil
}

// file := (statement ';')* EOF
func (p *parser) file() (*ast.Program, error) {
	program := &ast.Program{}
	for !p.at(lexer.EOF) {
		stmt, err := p.statement()
		if err != nil {
			return program, err
		}
		program.Statements = append(program.Statements, stmt)
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return program, err
		}
	}
	return program, nil
}

// statement := varAssign | engrave | assignment | expression
func (p *parser) statement() (ast.Node, error) {
	switch p.current().Type {
	case lexer.FORGE:
		return p.varAssign()
	case lexer.ENGRAVE:
		return p.engrave()
	case lexer.IDENTIFIER:
		if op, ok := assignOps[p.peek().Type]; ok {
			return p.assignment(op)
		}
	}
	return p.expression()
}

var assignOps = map[lexer.TokenType]ast.AssignOp{
	lexer.EQUALS:          ast.Assign,
	lexer.PLUS_ASSIGN:     ast.AddAssign,
	lexer.MINUS_ASSIGN:    ast.SubAssign,
	lexer.MULTIPLY_ASSIGN: ast.MulAssign,
	lexer.DIVIDE_ASSIGN:   ast.DivAssign,
	lexer.MODULO_ASSIGN:   ast.ModAssign,
	lexer.CARET_ASSIGN:    ast.PowArcanaAssign,
	lexer.POWER_ASSIGN:    ast.PowAetherAssign,
}

// varAssign := 'forge' 'morph'? IDENT ':' type '=' expression
func (p *parser) varAssign() (ast.Node, error) {
	kw := p.advance()
	mutable := false
	if p.at(lexer.MORPH) {
		p.advance()
		mutable = true
	}
	name, err := p.expect(lexer.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	typ, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQUALS); err != nil {
		return nil, err
	}
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.VarAssign{Name: name.Text, Value: value, Type: typ, Mutable: mutable, Pos: position(kw)}, nil
}

// assignment := IDENT assignOp expression
func (p *parser) assignment(op ast.AssignOp) (ast.Node, error) {
	name := p.advance()
	p.advance() // operator
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Name: name.Text, Value: value, Op: op, Pos: position(name)}, nil
}

// engrave := 'engrave' IDENT '(' (param (',' param)*)? ')' ('->' type)? block
func (p *parser) engrave() (ast.Node, error) {
	kw := p.advance()
	name, err := p.expect(lexer.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RPAREN) {
		if len(params) > 0 {
			if _, err := p.expect(lexer.COMMA); err != nil {
				return nil, err
			}
		}
		pname, err := p.expect(lexer.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		ptype, err := p.typeName()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname.Text, Type: ptype, Pos: position(pname)})
	}
	p.advance() // ')'

	returnType := ast.Abyss
	if p.at(lexer.ARROW) {
		p.advance()
		if returnType, err = p.typeName(); err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.Engrave{Name: name.Text, Params: params, ReturnType: returnType, Body: body, Pos: position(kw)}, nil
}

func (p *parser) typeName() (ast.Type, error) {
	tok := p.current()
	if tok.Type != lexer.TYPE && tok.Type != lexer.ABYSS {
		return 0, unexpected("type", tok)
	}
	p.advance()
	typ, _ := ast.LookupType(tok.Text)
	return typ, nil
}

// expression parses a binary expression by precedence climbing
func (p *parser) expression() (ast.Node, error) {
	return p.binary(1)
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.OR_OR:    ast.LogicalOr,
	lexer.AND_AND:  ast.LogicalAnd,
	lexer.EQ_EQ:    ast.Equal,
	lexer.NOT_EQ:   ast.NotEqual,
	lexer.LT:       ast.LessThan,
	lexer.LT_EQ:    ast.LessThanOrEqual,
	lexer.GT:       ast.GreaterThan,
	lexer.GT_EQ:    ast.GreaterThanOrEqual,
	lexer.PLUS:     ast.Add,
	lexer.MINUS:    ast.Sub,
	lexer.MULTIPLY: ast.Mul,
	lexer.DIVIDE:   ast.Div,
	lexer.MODULO:   ast.Mod,
	lexer.CARET:    ast.PowArcana,
	lexer.POWER:    ast.PowAether,
}

// binary parses operators binding at least as tightly as minPrec. Every
// level is left-associative, so 3 ^ 4 ^ 2 groups as (3 ^ 4) ^ 2.
func (p *parser) binary(minPrec int) (ast.Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binaryOps[p.current().Type]
		if !ok || op.Precedence() < minPrec {
			return left, nil
		}
		tok := p.advance()
		right, err := p.binary(op.Precedence() + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Pos: position(tok)}
	}
}

// unary := '!' unary | '-' unary | primary
// A minus directly before a numeric literal folds into a negative literal.
func (p *parser) unary() (ast.Node, error) {
	switch tok := p.current(); tok.Type {
	case lexer.NOT:
		p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.LogicalNot, Operand: operand, Pos: position(tok)}, nil
	case lexer.MINUS:
		p.advance()
		if p.at(lexer.INTEGER, lexer.FLOAT) {
			return p.number(p.advance(), "-", position(tok))
		}
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.Negate, Operand: operand, Pos: position(tok)}, nil
	}
	return p.primary()
}

func (p *parser) number(tok lexer.Token, sign string, pos ast.Position) (ast.Node, error) {
	if tok.Type == lexer.INTEGER {
		n, err := strconv.ParseInt(sign+tok.Text, 10, 64)
		if err != nil {
			return nil, errorAt(tok, "integer literal %s%s out of range", sign, tok.Text)
		}
		return &ast.ArcanaLiteral{Value: n, Pos: pos}, nil
	}
	f, err := strconv.ParseFloat(sign+tok.Text, 64)
	if err != nil {
		return nil, errorAt(tok, "invalid float literal %s%s", sign, tok.Text)
	}
	return &ast.AetherLiteral{Value: f, Pos: pos}, nil
}

func (p *parser) primary() (ast.Node, error) {
	tok := p.current()
	pos := position(tok)
	switch tok.Type {
	case lexer.INTEGER, lexer.FLOAT:
		p.advance()
		return p.number(tok, "", pos)
	case lexer.STRING:
		p.advance()
		return &ast.RuneLiteral{Value: strings.ReplaceAll(tok.Text, `\"`, `"`), Pos: pos}, nil
	case lexer.BOON, lexer.HEX:
		p.advance()
		return &ast.OmenLiteral{Value: tok.Type == lexer.BOON, Pos: pos}, nil
	case lexer.ABYSS:
		p.advance()
		return &ast.AbyssLiteral{Pos: pos}, nil
	case lexer.IDENTIFIER:
		p.advance()
		if p.at(lexer.LPAREN) {
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			return &ast.FuncCall{Name: tok.Text, Args: args, Pos: pos}, nil
		}
		return &ast.Var{Name: tok.Text, Pos: pos}, nil
	case lexer.LPAREN:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.LBRACE:
		return p.block()
	case lexer.UNVEIL:
		p.advance()
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &ast.Unveil{Args: args, Pos: pos}, nil
	case lexer.TRANS:
		return p.trans()
	case lexer.SUMMON:
		return p.summon()
	case lexer.REVEAL:
		p.advance()
		if p.at(lexer.SEMICOLON, lexer.RBRACE, lexer.EOF) {
			return &ast.Reveal{Pos: pos}, nil
		}
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.Reveal{Expr: expr, Pos: pos}, nil
	case lexer.RESUME:
		p.advance()
		return &ast.Resume{Label: p.label(), Pos: pos}, nil
	case lexer.EJECT:
		p.advance()
		return &ast.Eject{Label: p.label(), Pos: pos}, nil
	case lexer.ORACLE:
		return p.oracle()
	case lexer.ORBIT:
		return p.orbit()
	case lexer.ILLEGAL:
		return nil, errorAt(tok, "%s", describe(tok))
	}
	return nil, unexpected("expression", tok)
}

func (p *parser) label() string {
	if p.at(lexer.IDENTIFIER) {
		return p.advance().Text
	}
	return ""
}

// arguments := '(' (expression (',' expression)*)? ')'
func (p *parser) arguments() ([]ast.Node, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.at(lexer.RPAREN) {
		if len(args) > 0 {
			if _, err := p.expect(lexer.COMMA); err != nil {
				return nil, err
			}
		}
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.advance() // ')'
	return args, nil
}

// block := '{' (statement ';')* '}'
func (p *parser) block() (*ast.Block, error) {
	open, err := p.expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	block := &ast.Block{Pos: position(open)}
	for !p.at(lexer.RBRACE) {
		if p.at(lexer.EOF) {
			return nil, unexpected(lexer.RBRACE.String(), p.current())
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
	}
	p.advance() // '}'
	return block, nil
}

// trans := 'trans' '(' expression 'as' type ')'
func (p *parser) trans() (ast.Node, error) {
	kw := p.advance()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.AS); err != nil {
		return nil, err
	}
	target, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Trans{Expr: expr, Target: target, Pos: position(kw)}, nil
}

// summon := 'summon' '(' expression ',' type ')'
func (p *parser) summon() (ast.Node, error) {
	kw := p.advance()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	prompt, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COMMA); err != nil {
		return nil, err
	}
	typ, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Summon{Prompt: prompt, Type: typ, Pos: position(kw)}, nil
}

// oracle := 'oracle' ('(' conditional (',' conditional)* ')')? '{' (branch ';')* '}'
// conditional := IDENT '=' expression | expression
func (p *parser) oracle() (ast.Node, error) {
	kw := p.advance()
	oracle := &ast.Oracle{Pos: position(kw)}

	if p.at(lexer.LPAREN) {
		p.advance()
		named, anonymous := 0, 0
		for !p.at(lexer.RPAREN) {
			if len(oracle.Conditionals) > 0 {
				if _, err := p.expect(lexer.COMMA); err != nil {
					return nil, err
				}
			}
			start := p.current()
			cond := ast.OracleConditional{Pos: position(start)}
			if start.Type == lexer.IDENTIFIER && p.peek().Type == lexer.EQUALS {
				cond.Variable = start.Text
				p.advance()
				p.advance()
				named++
			} else {
				anonymous++
			}
			expr, err := p.expression()
			if err != nil {
				return nil, err
			}
			cond.Expr = expr
			if named > 0 && anonymous > 0 {
				return nil, errorAt(start, "oracle conditionals must be either all named (x = expr) or all unnamed")
			}
			oracle.Conditionals = append(oracle.Conditionals, cond)
		}
		p.advance() // ')'
		oracle.IsMatch = anonymous > 0
	}

	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		if p.at(lexer.EOF) {
			return nil, unexpected(lexer.RBRACE.String(), p.current())
		}
		branch, err := p.branch()
		if err != nil {
			return nil, err
		}
		oracle.Branches = append(oracle.Branches, branch)
		if p.at(lexer.RBRACE) {
			break
		}
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
	}
	p.advance() // '}'
	return oracle, nil
}

// branch := pattern '=>' statement
// pattern := '_' | '(' item (',' item)* ')' | item (',' item)*
// item := '_' | expression
func (p *parser) branch() (*ast.OracleBranch, error) {
	start := p.current()
	branch := &ast.OracleBranch{Pos: position(start)}

	switch {
	case start.Type == lexer.UNDERSCORE && p.peek().Type == lexer.FAT_ARROW:
		p.advance()
	case start.Type == lexer.LPAREN:
		// A parenthesised tuple, unless the parens only open a larger expression
		mark := p.pos
		p.advance()
		items, err := p.patternItems(lexer.RPAREN)
		if err == nil && p.at(lexer.RPAREN) && p.peek().Type == lexer.FAT_ARROW {
			p.advance()
			branch.Pattern = items
			break
		}
		p.pos = mark
		if branch.Pattern, err = p.patternItems(lexer.FAT_ARROW); err != nil {
			return nil, err
		}
	default:
		items, err := p.patternItems(lexer.FAT_ARROW)
		if err != nil {
			return nil, err
		}
		branch.Pattern = items
	}

	if _, err := p.expect(lexer.FAT_ARROW); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	branch.Body = body
	return branch, nil
}

func (p *parser) patternItems(end lexer.TokenType) ([]ast.Node, error) {
	var items []ast.Node
	for {
		if p.at(lexer.UNDERSCORE) {
			items = append(items, &ast.DontCare{Pos: position(p.advance())})
		} else {
			item, err := p.expression()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	if !p.at(end) {
		return nil, unexpected(end.String(), p.current())
	}
	return items, nil
}

// orbit := 'orbit' ('(' param (',' param)* ')')? block
// param := IDENT '=' expression ('..' | '..=') expression
func (p *parser) orbit() (ast.Node, error) {
	kw := p.advance()
	orbit := &ast.Orbit{Pos: position(kw)}

	if p.at(lexer.LPAREN) {
		p.advance()
		for !p.at(lexer.RPAREN) {
			if len(orbit.Params) > 0 {
				if _, err := p.expect(lexer.COMMA); err != nil {
					return nil, err
				}
			}
			name, err := p.expect(lexer.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.EQUALS); err != nil {
				return nil, err
			}
			start, err := p.expression()
			if err != nil {
				return nil, err
			}
			if !p.at(lexer.DOTDOT, lexer.DOTDOT_EQ) {
				return nil, unexpected("'..' or '..='", p.current())
			}
			inclusive := p.advance().Type == lexer.DOTDOT_EQ
			end, err := p.expression()
			if err != nil {
				return nil, err
			}
			orbit.Params = append(orbit.Params, &ast.OrbitParam{
				Name: name.Text, Start: start, End: end, Inclusive: inclusive, Pos: position(name),
			})
		}
		p.advance() // ')'
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	orbit.Body = body
	return orbit, nil
}
