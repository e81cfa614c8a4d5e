package eval

import (
	"math"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/core/value"
)

// aetherEpsilon is the gap between 1.0 and the next float64.
const aetherEpsilon = 2.220446049250313e-16

func (e *Evaluator) evalBinary(n *ast.BinaryExpr) (Outcome, error) {
	// Both operands are always evaluated, logical operators included.
	left, escape, err := e.valueOf(n.Left)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	right, escape, err := e.valueOf(n.Right)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	v, err := binary(n.Op, left, right)
	if err != nil {
		return Outcome{}, err
	}
	return Of(v), nil
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr) (Outcome, error) {
	operand, escape, err := e.valueOf(n.Operand)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	switch v := operand.(type) {
	case value.Omen:
		if n.Op == ast.LogicalNot {
			return Of(!v), nil
		}
	case value.Arcana:
		if n.Op == ast.Negate {
			return Of(-v), nil
		}
	case value.Aether:
		if n.Op == ast.Negate {
			return Of(-v), nil
		}
	}
	return Outcome{}, errors.NewInvalidOperation("cannot apply %s to %s", n.Op, operand.Type())
}

// binary applies op to two evaluated operands.
func binary(op ast.BinaryOp, left, right value.Value) (value.Value, error) {
	switch op {
	case ast.Equal, ast.NotEqual:
		eq, err := equal(left, right)
		if err != nil {
			return nil, err
		}
		return value.Omen(eq == (op == ast.Equal)), nil
	case ast.LessThan, ast.LessThanOrEqual, ast.GreaterThan, ast.GreaterThanOrEqual:
		return compare(op, left, right)
	case ast.LogicalAnd, ast.LogicalOr:
		l, lok := left.(value.Omen)
		r, rok := right.(value.Omen)
		if !lok || !rok {
			return nil, mismatch(op, left, right)
		}
		if op == ast.LogicalAnd {
			return l && r, nil
		}
		return l || r, nil
	case ast.PowArcana:
		base, bok := left.(value.Arcana)
		exp, eok := right.(value.Arcana)
		if !bok || !eok {
			return nil, errors.NewInvalidOperation("operator ^ requires arcana operands, got %s and %s", left.Type(), right.Type())
		}
		return powArcana(base, exp)
	case ast.PowAether:
		base, bok := left.(value.Aether)
		exp, eok := right.(value.Aether)
		if !bok || !eok {
			return nil, errors.NewInvalidOperation("operator ** requires aether operands, got %s and %s", left.Type(), right.Type())
		}
		return value.Aether(math.Pow(float64(base), float64(exp))), nil
	}
	return arithmetic(op, left, right)
}

func arithmetic(op ast.BinaryOp, left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case value.Arcana:
		r, ok := right.(value.Arcana)
		if !ok {
			break
		}
		switch op {
		case ast.Add:
			return l + r, nil
		case ast.Sub:
			return l - r, nil
		case ast.Mul:
			return l * r, nil
		case ast.Div, ast.Mod:
			if r == 0 {
				return nil, errors.NewInvalidOperation("division by zero")
			}
			if op == ast.Div {
				return l / r, nil
			}
			return l % r, nil
		}
	case value.Aether:
		r, ok := right.(value.Aether)
		if !ok {
			break
		}
		switch op {
		case ast.Add:
			return l + r, nil
		case ast.Sub:
			return l - r, nil
		case ast.Mul:
			return l * r, nil
		case ast.Div:
			return l / r, nil
		case ast.Mod:
			return value.Aether(math.Mod(float64(l), float64(r))), nil
		}
	case value.Rune:
		if r, ok := right.(value.Rune); ok && op == ast.Add {
			return l + r, nil
		}
	}
	return nil, mismatch(op, left, right)
}

// powArcana raises base to a non-negative exponent by squaring, wrapping on overflow.
func powArcana(base, exp value.Arcana) (value.Value, error) {
	if exp < 0 {
		return nil, errors.NewNegativeExponent(int64(exp))
	}
	result := value.Arcana(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result, nil
}

// equal is the equality rule shared by == and oracle match mode.
func equal(left, right value.Value) (bool, error) {
	switch l := left.(type) {
	case value.Arcana:
		if r, ok := right.(value.Arcana); ok {
			return l == r, nil
		}
	case value.Aether:
		if r, ok := right.(value.Aether); ok {
			return math.Abs(float64(l-r)) < aetherEpsilon, nil
		}
	case value.Rune:
		if r, ok := right.(value.Rune); ok {
			return l == r, nil
		}
	case value.Omen:
		if r, ok := right.(value.Omen); ok {
			return l == r, nil
		}
	}
	return false, errors.NewInvalidOperation("cannot compare %s with %s", left.Type(), right.Type())
}

func compare(op ast.BinaryOp, left, right value.Value) (value.Value, error) {
	var l, r float64
	switch lv := left.(type) {
	case value.Arcana:
		rv, ok := right.(value.Arcana)
		if !ok {
			return nil, mismatch(op, left, right)
		}
		return value.Omen(ordered(op, lv, rv)), nil
	case value.Aether:
		rv, ok := right.(value.Aether)
		if !ok {
			return nil, mismatch(op, left, right)
		}
		l, r = float64(lv), float64(rv)
	default:
		return nil, errors.NewInvalidOperation("operator %s is not supported for %s", op, left.Type())
	}
	return value.Omen(ordered(op, l, r)), nil
}

func ordered[T value.Arcana | float64](op ast.BinaryOp, l, r T) bool {
	switch op {
	case ast.LessThan:
		return l < r
	case ast.LessThanOrEqual:
		return l <= r
	case ast.GreaterThan:
		return l > r
	}
	return l >= r
}

func mismatch(op ast.BinaryOp, left, right value.Value) error {
	return errors.NewInvalidOperation("cannot apply %s to %s and %s", op, left.Type(), right.Type())
}
