// Package canonical produces a position-free, deterministic encoding of an
// AbySS program and its BLAKE2b-256 digest.
//
// Two programs that differ only in layout, comments or source positions have
// the same canonical form. The formatter relies on this to prove that
// reformatting a file did not change its meaning.
package canonical

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/abyss-lang/abyss/core/ast"
)

// Version is the canonical format version. Bump it when Node changes shape.
const Version = 1

// Program is the canonical form of an *ast.Program
type Program struct {
	Version    uint8
	Statements []Node
}

// Node is a union type for AST nodes in canonical form
type Node struct {
	Type string `cbor:"1,keyasint"` // "arcana", "binary", "oracle", ...

	Op       string `cbor:"2,keyasint,omitempty"` // operator spelling
	Name     string `cbor:"3,keyasint,omitempty"` // variable, function, label or parameter name
	DeclType string `cbor:"4,keyasint,omitempty"` // declared or target type keyword
	Str      string `cbor:"5,keyasint,omitempty"`
	Int      int64  `cbor:"6,keyasint,omitempty"`
	Bits     uint64 `cbor:"7,keyasint,omitempty"` // IEEE 754 bits of aether literals
	Flag     bool   `cbor:"8,keyasint,omitempty"` // omen value, morph, inclusive range, match mode

	Children []Node `cbor:"9,keyasint,omitempty"`
}

// Digest is a BLAKE2b-256 hash of a canonical program
type Digest [blake2b.Size256]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Canonicalize converts program into canonical form.
func Canonicalize(program *ast.Program) (*Program, error) {
	cp := &Program{
		Version:    Version,
		Statements: make([]Node, len(program.Statements)),
	}
	for i, stmt := range program.Statements {
		node, err := toNode(stmt)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		cp.Statements[i] = node
	}
	return cp, nil
}

// MarshalBinary produces the deterministic CBOR encoding of the program.
func (cp *Program) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// Alias avoids recursing into MarshalBinary
	type programAlias Program
	data, err := encMode.Marshal((*programAlias)(cp))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Hash computes the BLAKE2b-256 digest of the canonical encoding.
func (cp *Program) Hash() (Digest, error) {
	data, err := cp.MarshalBinary()
	if err != nil {
		return Digest{}, err
	}
	return blake2b.Sum256(data), nil
}

// Sum canonicalizes program and returns its digest.
func Sum(program *ast.Program) (Digest, error) {
	cp, err := Canonicalize(program)
	if err != nil {
		return Digest{}, err
	}
	return cp.Hash()
}

func toNodes(nodes []ast.Node) ([]Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		c, err := toNode(n)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func toNode(node ast.Node) (Node, error) {
	switch n := node.(type) {
	case *ast.ArcanaLiteral:
		return Node{Type: "arcana", Int: n.Value}, nil
	case *ast.AetherLiteral:
		return Node{Type: "aether", Bits: math.Float64bits(n.Value)}, nil
	case *ast.RuneLiteral:
		return Node{Type: "rune", Str: n.Value}, nil
	case *ast.OmenLiteral:
		return Node{Type: "omen", Flag: n.Value}, nil
	case *ast.AbyssLiteral:
		return Node{Type: "abyss"}, nil
	case *ast.DontCare:
		return Node{Type: "dontcare"}, nil
	case *ast.Var:
		return Node{Type: "var", Name: n.Name}, nil
	case *ast.Resume:
		return Node{Type: "resume", Name: n.Label}, nil
	case *ast.Eject:
		return Node{Type: "eject", Name: n.Label}, nil
	case *ast.BinaryExpr:
		children, err := toNodes([]ast.Node{n.Left, n.Right})
		return Node{Type: "binary", Op: n.Op.String(), Children: children}, err
	case *ast.UnaryExpr:
		children, err := toNodes([]ast.Node{n.Operand})
		return Node{Type: "unary", Op: n.Op.String(), Children: children}, err
	case *ast.VarAssign:
		children, err := toNodes([]ast.Node{n.Value})
		return Node{Type: "forge", Name: n.Name, DeclType: n.Type.String(), Flag: n.Mutable, Children: children}, err
	case *ast.Assignment:
		children, err := toNodes([]ast.Node{n.Value})
		return Node{Type: "assign", Name: n.Name, Op: n.Op.String(), Children: children}, err
	case *ast.Unveil:
		children, err := toNodes(n.Args)
		return Node{Type: "unveil", Children: children}, err
	case *ast.Trans:
		children, err := toNodes([]ast.Node{n.Expr})
		return Node{Type: "trans", DeclType: n.Target.String(), Children: children}, err
	case *ast.Summon:
		children, err := toNodes([]ast.Node{n.Prompt})
		return Node{Type: "summon", DeclType: n.Type.String(), Children: children}, err
	case *ast.Reveal:
		if n.Expr == nil {
			return Node{Type: "reveal"}, nil
		}
		children, err := toNodes([]ast.Node{n.Expr})
		return Node{Type: "reveal", Children: children}, err
	case *ast.Block:
		children, err := toNodes(n.Statements)
		return Node{Type: "block", Children: children}, err
	case *ast.FuncCall:
		children, err := toNodes(n.Args)
		return Node{Type: "call", Name: n.Name, Children: children}, err
	case *ast.Oracle:
		return canonicalizeOracle(n)
	case *ast.Orbit:
		return canonicalizeOrbit(n)
	case *ast.Engrave:
		return canonicalizeEngrave(n)
	}
	return Node{}, fmt.Errorf("unknown node type: %T", node)
}

func canonicalizeOracle(n *ast.Oracle) (Node, error) {
	cn := Node{Type: "oracle", Flag: n.IsMatch}
	for i, cond := range n.Conditionals {
		expr, err := toNode(cond.Expr)
		if err != nil {
			return Node{}, fmt.Errorf("conditional %d: %w", i, err)
		}
		cn.Children = append(cn.Children, Node{Type: "conditional", Name: cond.Variable, Children: []Node{expr}})
	}
	for i, branch := range n.Branches {
		pattern, err := toNodes(branch.Pattern)
		if err != nil {
			return Node{}, fmt.Errorf("branch %d pattern: %w", i, err)
		}
		body, err := toNode(branch.Body)
		if err != nil {
			return Node{}, fmt.Errorf("branch %d body: %w", i, err)
		}
		cn.Children = append(cn.Children, Node{Type: "branch", Children: []Node{
			{Type: "pattern", Children: pattern},
			body,
		}})
	}
	return cn, nil
}

func canonicalizeOrbit(n *ast.Orbit) (Node, error) {
	cn := Node{Type: "orbit"}
	for i, p := range n.Params {
		bounds, err := toNodes([]ast.Node{p.Start, p.End})
		if err != nil {
			return Node{}, fmt.Errorf("orbit parameter %d: %w", i, err)
		}
		cn.Children = append(cn.Children, Node{Type: "range", Name: p.Name, Flag: p.Inclusive, Children: bounds})
	}
	body, err := toNode(n.Body)
	if err != nil {
		return Node{}, fmt.Errorf("orbit body: %w", err)
	}
	cn.Children = append(cn.Children, body)
	return cn, nil
}

func canonicalizeEngrave(n *ast.Engrave) (Node, error) {
	cn := Node{Type: "engrave", Name: n.Name, DeclType: n.ReturnType.String()}
	for _, p := range n.Params {
		cn.Children = append(cn.Children, Node{Type: "param", Name: p.Name, DeclType: p.Type.String()})
	}
	body, err := toNode(n.Body)
	if err != nil {
		return Node{}, fmt.Errorf("function %s body: %w", n.Name, err)
	}
	cn.Children = append(cn.Children, body)
	return cn, nil
}
