// Package format renders AbySS syntax trees back to source.
//
// Output uses four-space indentation, one statement per line, and inserts
// parentheses only where precedence or associativity needs them, so parsing
// the output yields the same tree (checked by Check through core/canonical).
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/canonical"
	"github.com/abyss-lang/abyss/runtime/parser"
)

const indentUnit = "    "

// precedence of node kinds that are not binary expressions
const (
	precUnary   = 80
	precPrimary = 100
)

// Program renders every statement of program, each terminated by ';'.
// A function declaration is separated from its neighbours by a blank line.
func Program(program *ast.Program) string {
	var b strings.Builder
	for i, stmt := range program.Statements {
		if i > 0 && (isEngrave(stmt) || isEngrave(program.Statements[i-1])) {
			b.WriteByte('\n')
		}
		b.WriteString(node(stmt, 0))
		b.WriteString(";\n")
	}
	return b.String()
}

func isEngrave(n ast.Node) bool {
	_, ok := n.(*ast.Engrave)
	return ok
}

// Node renders a single node without a trailing ';'.
func Node(n ast.Node) string {
	return node(n, 0)
}

// Source parses src and renders it.
func Source(src string) (string, error) {
	program, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	return Program(program), nil
}

// Result describes a formatting check.
type Result struct {
	Formatted string
	Changed   bool             // Formatted differs from the input
	Digest    canonical.Digest // digest shared by the input and the formatted output
}

// Check formats src and proves the output parses to the same program.
func Check(src string) (*Result, error) {
	program, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	before, err := canonical.Sum(program)
	if err != nil {
		return nil, err
	}

	formatted := Program(program)
	reparsed, err := parser.Parse(formatted)
	if err != nil {
		return nil, fmt.Errorf("formatted output does not parse: %w", err)
	}
	after, err := canonical.Sum(reparsed)
	if err != nil {
		return nil, err
	}
	if before != after {
		return nil, fmt.Errorf("formatting changed the program: digest %s became %s", before, after)
	}

	return &Result{Formatted: formatted, Changed: formatted != src, Digest: before}, nil
}

func precedence(n ast.Node) int {
	switch n := n.(type) {
	case *ast.BinaryExpr:
		return n.Op.Precedence()
	case *ast.UnaryExpr:
		return precUnary
	case *ast.VarAssign, *ast.Assignment, *ast.Reveal, *ast.Oracle, *ast.Orbit, *ast.Engrave:
		// keyword-led forms extend as far right as possible
		return 0
	}
	return precPrimary
}

// operand renders child of a binary or unary parent, parenthesised when it
// binds looser than the parent. Right operands also need parentheses at equal
// precedence because every operator is left-associative.
func operand(child ast.Node, parent int, right bool, indent int) string {
	code := node(child, indent)
	p := precedence(child)
	if p < parent || (right && p == parent) {
		return "(" + code + ")"
	}
	return code
}

func list(nodes []ast.Node, indent int) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = node(n, indent)
	}
	return strings.Join(parts, ", ")
}

func node(n ast.Node, indent int) string {
	switch n := n.(type) {
	case *ast.ArcanaLiteral:
		return strconv.FormatInt(n.Value, 10)
	case *ast.AetherLiteral:
		return aether(n.Value)
	case *ast.RuneLiteral:
		return `"` + strings.ReplaceAll(n.Value, `"`, `\"`) + `"`
	case *ast.OmenLiteral:
		if n.Value {
			return "boon"
		}
		return "hex"
	case *ast.AbyssLiteral:
		return "abyss"
	case *ast.DontCare:
		return "_"
	case *ast.Var:
		return n.Name
	case *ast.BinaryExpr:
		p := n.Op.Precedence()
		return fmt.Sprintf("%s %s %s", operand(n.Left, p, false, indent), n.Op, operand(n.Right, p, true, indent))
	case *ast.UnaryExpr:
		switch n.Operand.(type) {
		case *ast.ArcanaLiteral, *ast.AetherLiteral:
			// keep "-(5)" from folding into the literal -5
			if n.Op == ast.Negate {
				return "-(" + node(n.Operand, indent) + ")"
			}
		}
		return n.Op.String() + operand(n.Operand, precUnary, false, indent)
	case *ast.VarAssign:
		morph := ""
		if n.Mutable {
			morph = "morph "
		}
		return fmt.Sprintf("forge %s%s: %s = %s", morph, n.Name, n.Type, node(n.Value, indent))
	case *ast.Assignment:
		return fmt.Sprintf("%s %s %s", n.Name, n.Op, node(n.Value, indent))
	case *ast.Unveil:
		return "unveil(" + list(n.Args, indent) + ")"
	case *ast.Trans:
		return fmt.Sprintf("trans(%s as %s)", node(n.Expr, indent), n.Target)
	case *ast.Summon:
		return fmt.Sprintf("summon(%s, %s)", node(n.Prompt, indent), n.Type)
	case *ast.FuncCall:
		return n.Name + "(" + list(n.Args, indent) + ")"
	case *ast.Reveal:
		if n.Expr == nil {
			return "reveal"
		}
		return "reveal " + node(n.Expr, indent)
	case *ast.Resume:
		return withLabel("resume", n.Label)
	case *ast.Eject:
		return withLabel("eject", n.Label)
	case *ast.Block:
		return block(n, indent)
	case *ast.Oracle:
		return oracle(n, indent)
	case *ast.Orbit:
		return orbit(n, indent)
	case *ast.Engrave:
		return engrave(n, indent)
	}
	return fmt.Sprintf("/* unknown node %T */", n)
}

// aether keeps a decimal point on integral values so they stay aether.
func aether(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		s += ".0"
	}
	return s
}

func withLabel(keyword, label string) string {
	if label == "" {
		return keyword
	}
	return keyword + " " + label
}

func block(n *ast.Block, indent int) string {
	if len(n.Statements) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	inner := strings.Repeat(indentUnit, indent+1)
	for _, stmt := range n.Statements {
		b.WriteString(inner)
		b.WriteString(node(stmt, indent+1))
		b.WriteString(";\n")
	}
	b.WriteString(strings.Repeat(indentUnit, indent))
	b.WriteString("}")
	return b.String()
}

// body renders a construct body; bodies built by the parser are always blocks.
func body(n ast.Node, indent int) string {
	if blk, ok := n.(*ast.Block); ok {
		return block(blk, indent)
	}
	return block(&ast.Block{Statements: []ast.Node{n}}, indent)
}

func oracle(n *ast.Oracle, indent int) string {
	var b strings.Builder
	b.WriteString("oracle")
	if len(n.Conditionals) > 0 {
		conds := make([]string, len(n.Conditionals))
		for i, c := range n.Conditionals {
			if c.Variable != "" {
				conds[i] = c.Variable + " = " + node(c.Expr, indent)
			} else {
				conds[i] = node(c.Expr, indent)
			}
		}
		b.WriteString(" (" + strings.Join(conds, ", ") + ")")
	}
	if len(n.Branches) == 0 {
		b.WriteString(" {}")
		return b.String()
	}

	b.WriteString(" {\n")
	inner := strings.Repeat(indentUnit, indent+1)
	for _, branch := range n.Branches {
		pattern := "_"
		if len(branch.Pattern) > 0 {
			pattern = "(" + list(branch.Pattern, indent+1) + ")"
		}
		fmt.Fprintf(&b, "%s%s => %s;\n", inner, pattern, node(branch.Body, indent+1))
	}
	b.WriteString(strings.Repeat(indentUnit, indent))
	b.WriteString("}")
	return b.String()
}

func orbit(n *ast.Orbit, indent int) string {
	var b strings.Builder
	b.WriteString("orbit ")
	if len(n.Params) > 0 {
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			op := ".."
			if p.Inclusive {
				op = "..="
			}
			params[i] = fmt.Sprintf("%s = %s%s%s", p.Name, node(p.Start, indent), op, node(p.End, indent))
		}
		b.WriteString("(" + strings.Join(params, ", ") + ") ")
	}
	b.WriteString(body(n.Body, indent))
	return b.String()
}

func engrave(n *ast.Engrave, indent int) string {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	ret := ""
	if n.ReturnType != ast.Abyss {
		ret = " -> " + n.ReturnType.String()
	}
	return fmt.Sprintf("engrave %s(%s)%s %s", n.Name, strings.Join(params, ", "), ret, body(n.Body, indent))
}
