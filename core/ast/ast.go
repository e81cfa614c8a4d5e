package ast

import "fmt"

// Node represents any node in the AST.
// Every construct in the language is an expression, so there is a single node family.
type Node interface {
	Position() Position
	node()
}

// Position represents source location information.
// The zero Position means the node was built without source metadata.
type Position struct {
	Line   int
	Column int
}

// IsValid reports whether the position points into source text.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Type is the closed set of declared types.
type Type int

const (
	Arcana Type = iota // 64-bit signed integer
	Aether             // 64-bit float
	Rune               // string
	Omen               // boolean
	Abyss              // unit
)

// String returns the keyword spelling used in source.
func (t Type) String() string {
	switch t {
	case Arcana:
		return "arcana"
	case Aether:
		return "aether"
	case Rune:
		return "rune"
	case Omen:
		return "omen"
	case Abyss:
		return "abyss"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// LookupType resolves a type keyword.
func LookupType(keyword string) (Type, bool) {
	switch keyword {
	case "arcana":
		return Arcana, true
	case "aether":
		return Aether, true
	case "rune":
		return Rune, true
	case "omen":
		return Omen, true
	case "abyss":
		return Abyss, true
	}
	return 0, false
}

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	PowArcana // ^
	PowAether // **
	Equal
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	LogicalAnd
	LogicalOr
)

var binaryOpSymbols = [...]string{
	Add:                "+",
	Sub:                "-",
	Mul:                "*",
	Div:                "/",
	Mod:                "%",
	PowArcana:          "^",
	PowAether:          "**",
	Equal:              "==",
	NotEqual:           "!=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	LogicalAnd:         "&&",
	LogicalOr:          "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// Precedence returns the binding strength of the operator; higher binds tighter.
func (op BinaryOp) Precedence() int {
	switch op {
	case LogicalOr:
		return 10
	case LogicalAnd:
		return 20
	case Equal, NotEqual:
		return 30
	case LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return 40
	case Add, Sub:
		return 50
	case Mul, Div, Mod:
		return 60
	case PowArcana, PowAether:
		return 70
	}
	return 0
}

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	LogicalNot UnaryOp = iota // !
	Negate                    // -
)

func (op UnaryOp) String() string {
	if op == Negate {
		return "-"
	}
	return "!"
}

// AssignOp enumerates the plain and compound assignment operators.
type AssignOp int

const (
	Assign AssignOp = iota
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	PowArcanaAssign
	PowAetherAssign
)

var assignOpSymbols = [...]string{
	Assign:          "=",
	AddAssign:       "+=",
	SubAssign:       "-=",
	MulAssign:       "*=",
	DivAssign:       "/=",
	ModAssign:       "%=",
	PowArcanaAssign: "^=",
	PowAetherAssign: "**=",
}

func (op AssignOp) String() string {
	if int(op) < len(assignOpSymbols) {
		return assignOpSymbols[op]
	}
	return fmt.Sprintf("AssignOp(%d)", int(op))
}

// Binary returns the arithmetic operator a compound assignment applies.
// ok is false for plain assignment.
func (op AssignOp) Binary() (BinaryOp, bool) {
	switch op {
	case AddAssign:
		return Add, true
	case SubAssign:
		return Sub, true
	case MulAssign:
		return Mul, true
	case DivAssign:
		return Div, true
	case ModAssign:
		return Mod, true
	case PowArcanaAssign:
		return PowArcana, true
	case PowAetherAssign:
		return PowAether, true
	}
	return 0, false
}

// ArcanaLiteral is an integer literal.
type ArcanaLiteral struct {
	Value int64
	Pos   Position
}

// AetherLiteral is a float literal.
type AetherLiteral struct {
	Value float64
	Pos   Position
}

// RuneLiteral is a string literal; Value holds the raw text between the quotes.
type RuneLiteral struct {
	Value string
	Pos   Position
}

// OmenLiteral is boon (true) or hex (false).
type OmenLiteral struct {
	Value bool
	Pos   Position
}

// AbyssLiteral is the unit value.
type AbyssLiteral struct {
	Pos Position
}

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Node
	Right Node
	Pos   Position
}

// UnaryExpr applies a prefix operator.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Node
	Pos     Position
}

// VarAssign declares a variable in the innermost scope: forge [morph] name: type = value
type VarAssign struct {
	Name    string
	Value   Node
	Type    Type
	Mutable bool
	Pos     Position
}

// Assignment rebinds an existing variable, optionally through a compound operator.
type Assignment struct {
	Name  string
	Value Node
	Op    AssignOp
	Pos   Position
}

// Var references a variable.
type Var struct {
	Name string
	Pos  Position
}

// Unveil prints its arguments concatenated on one line.
type Unveil struct {
	Args []Node
	Pos  Position
}

// Trans casts Expr to Target.
type Trans struct {
	Expr   Node
	Target Type
	Pos    Position
}

// Reveal yields a value from the enclosing block, oracle or function body.
// A nil Expr reveals abyss.
type Reveal struct {
	Expr Node
	Pos  Position
}

// Block evaluates statements in order.
type Block struct {
	Statements []Node
	Pos        Position
}

// OracleConditional is one evaluated subject of an oracle.
// Variable is empty in match mode.
type OracleConditional struct {
	Variable string
	Expr     Node
	Pos      Position
}

// Oracle is the pattern-matching conditional.
// In match mode (IsMatch) branch patterns are compared positionally against
// the conditionals; otherwise every pattern item is a boolean guard.
type Oracle struct {
	IsMatch      bool
	Conditionals []OracleConditional
	Branches     []*OracleBranch
	Pos          Position
}

// OracleBranch pairs a pattern with a body. An empty Pattern is the default branch.
type OracleBranch struct {
	Pattern []Node
	Body    Node
	Pos     Position
}

// DontCare is the "_" pattern item that matches anything.
type DontCare struct {
	Pos Position
}

// Orbit is the iteration construct. Without parameters it loops until ejected.
type Orbit struct {
	Params []*OrbitParam
	Body   Node
	Pos    Position
}

// OrbitParam binds Name over [Start, End) or [Start, End] when Inclusive.
type OrbitParam struct {
	Name      string
	Start     Node
	End       Node
	Inclusive bool
	Pos       Position
}

// Resume continues the orbit named by Label, or the innermost orbit when Label is empty.
type Resume struct {
	Label string
	Pos   Position
}

// Eject breaks out of the orbit named by Label, or the innermost orbit when Label is empty.
type Eject struct {
	Label string
	Pos   Position
}

// Param is a typed function parameter.
type Param struct {
	Name string
	Type Type
	Pos  Position
}

// Engrave declares a function.
type Engrave struct {
	Name       string
	Params     []Param
	ReturnType Type
	Body       Node
	Pos        Position
}

// FuncCall invokes a declared function.
type FuncCall struct {
	Name string
	Args []Node
	Pos  Position
}

// Summon prints Prompt and reads one line of input as Type.
type Summon struct {
	Prompt Node
	Type   Type
	Pos    Position
}

func (n *ArcanaLiteral) Position() Position { return n.Pos }
func (n *AetherLiteral) Position() Position { return n.Pos }
func (n *RuneLiteral) Position() Position   { return n.Pos }
func (n *OmenLiteral) Position() Position   { return n.Pos }
func (n *AbyssLiteral) Position() Position  { return n.Pos }
func (n *BinaryExpr) Position() Position    { return n.Pos }
func (n *UnaryExpr) Position() Position     { return n.Pos }
func (n *VarAssign) Position() Position     { return n.Pos }
func (n *Assignment) Position() Position    { return n.Pos }
func (n *Var) Position() Position           { return n.Pos }
func (n *Unveil) Position() Position        { return n.Pos }
func (n *Trans) Position() Position         { return n.Pos }
func (n *Reveal) Position() Position        { return n.Pos }
func (n *Block) Position() Position         { return n.Pos }
func (n *Oracle) Position() Position        { return n.Pos }
func (n *OracleBranch) Position() Position  { return n.Pos }
func (n *DontCare) Position() Position      { return n.Pos }
func (n *Orbit) Position() Position         { return n.Pos }
func (n *OrbitParam) Position() Position    { return n.Pos }
func (n *Resume) Position() Position        { return n.Pos }
func (n *Eject) Position() Position         { return n.Pos }
func (n *Engrave) Position() Position       { return n.Pos }
func (n *FuncCall) Position() Position      { return n.Pos }
func (n *Summon) Position() Position        { return n.Pos }

func (*ArcanaLiteral) node() {}
func (*AetherLiteral) node() {}
func (*RuneLiteral) node()   {}
func (*OmenLiteral) node()   {}
func (*AbyssLiteral) node()  {}
func (*BinaryExpr) node()    {}
func (*UnaryExpr) node()     {}
func (*VarAssign) node()     {}
func (*Assignment) node()    {}
func (*Var) node()           {}
func (*Unveil) node()        {}
func (*Trans) node()         {}
func (*Reveal) node()        {}
func (*Block) node()         {}
func (*Oracle) node()        {}
func (*OracleBranch) node()  {}
func (*DontCare) node()      {}
func (*Orbit) node()         {}
func (*OrbitParam) node()    {}
func (*Resume) node()        {}
func (*Eject) node()         {}
func (*Engrave) node()       {}
func (*FuncCall) node()      {}
func (*Summon) node()        {}

// Program is the ordered list of top-level statements of one source file.
type Program struct {
	Statements []Node
}
