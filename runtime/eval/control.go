package eval

import (
	"math"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/core/value"
)

// evalOracle evaluates the conditionals once, in a scope of their own, and
// runs the body of the first branch whose pattern matches. A reveal from the
// body becomes the oracle's value. With no matching branch the oracle is abyss.
func (e *Evaluator) evalOracle(n *ast.Oracle) (Outcome, error) {
	result := abyss()
	err := e.env.Scoped(func() error {
		subjects := make([]value.Value, len(n.Conditionals))
		for i, cond := range n.Conditionals {
			v, escape, err := e.valueOf(cond.Expr)
			if err != nil || escape.Escaping() {
				result = escape
				return err
			}
			subjects[i] = v
			if cond.Variable != "" {
				e.env.Declare(cond.Variable, v, v.Type(), false)
			}
		}

		for _, branch := range n.Branches {
			var (
				matched bool
				escape  Outcome
				err     error
			)
			if n.IsMatch {
				matched, escape, err = e.matchPattern(branch, subjects)
			} else {
				matched, escape = e.guardPattern(branch)
			}
			if err != nil || escape.Escaping() {
				result = escape
				return err
			}
			if !matched {
				continue
			}

			out, err := e.eval(branch.Body)
			if err != nil {
				return err
			}
			if out.Signal == SignalReveal {
				out = Of(out.Result())
			}
			result = out
			return nil
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return result, nil
}

// matchPattern compares pattern items positionally with the evaluated
// conditionals using the == rule. An empty pattern is the default branch.
func (e *Evaluator) matchPattern(branch *ast.OracleBranch, subjects []value.Value) (bool, Outcome, error) {
	if len(branch.Pattern) == 0 {
		return true, Outcome{}, nil
	}
	if len(branch.Pattern) != len(subjects) {
		return false, Outcome{}, errors.NewInvalidOperation("pattern has %d items but oracle has %d conditionals",
			len(branch.Pattern), len(subjects)).WithPos(branch.Pos)
	}
	for i, item := range branch.Pattern {
		if _, ok := item.(*ast.DontCare); ok {
			continue
		}
		v, escape, err := e.valueOf(item)
		if err != nil || escape.Escaping() {
			return false, escape, err
		}
		eq, err := equal(subjects[i], v)
		if err != nil {
			if evalErr, ok := errors.As(err); ok {
				evalErr.WithPos(item.Position())
			}
			return false, Outcome{}, err
		}
		if !eq {
			return false, Outcome{}, nil
		}
	}
	return true, Outcome{}, nil
}

// guardPattern requires every pattern item to evaluate to boon. Errors while
// evaluating a guard do not propagate: the branch simply does not match.
func (e *Evaluator) guardPattern(branch *ast.OracleBranch) (bool, Outcome) {
	for _, item := range branch.Pattern {
		if _, ok := item.(*ast.DontCare); ok {
			continue
		}
		v, escape, err := e.valueOf(item)
		if escape.Escaping() {
			return false, escape
		}
		if err != nil {
			e.logger.Debug("oracle guard failed, branch skipped", "pos", item.Position().String(), "error", err)
			return false, Outcome{}
		}
		omen, isOmen := v.(value.Omen)
		if !isOmen {
			e.logger.Debug("oracle guard is not an omen, branch skipped", "pos", item.Position().String(), "type", v.Type().String())
			return false, Outcome{}
		}
		if !omen {
			return false, Outcome{}
		}
	}
	return true, Outcome{}
}

// evalOrbit runs the loop. Parameters nest outer to inner; a loop with no
// parameters repeats until ejected.
func (e *Evaluator) evalOrbit(n *ast.Orbit) (Outcome, error) {
	if len(n.Params) == 0 {
		return e.orbitForever(n.Body)
	}
	return e.orbitRange(n.Params, n.Body)
}

// loopControl decides what a loop named label does with a body outcome:
// continue with the next iteration, stop the loop, or hand the outcome to
// the enclosing construct.
func loopControl(out Outcome, label string) (next bool, propagate bool) {
	switch out.Signal {
	case SignalResume:
		if out.Label == "" || out.Label == label {
			return true, false
		}
		return false, true
	case SignalEject:
		if out.Label == "" || out.Label == label {
			return false, false
		}
		return false, true
	case SignalReveal:
		return false, true
	}
	return true, false
}

func (e *Evaluator) orbitForever(body ast.Node) (Outcome, error) {
	for {
		e.stats.Iterations++
		var out Outcome
		err := e.env.Scoped(func() error {
			var err error
			out, err = e.eval(body)
			return err
		})
		if err != nil {
			return Outcome{}, err
		}
		next, propagate := loopControl(out, "")
		if propagate {
			e.logger.Debug("orbit signal propagates", "signal", out.Signal.String(), "label", out.Label)
			return out, nil
		}
		if !next {
			return abyss(), nil
		}
	}
}

func (e *Evaluator) orbitRange(params []*ast.OrbitParam, body ast.Node) (Outcome, error) {
	p := params[0]
	start, err := e.orbitBound(p.Start, p.Name)
	if err != nil {
		return Outcome{}, err
	}
	end, err := e.orbitBound(p.End, p.Name)
	if err != nil {
		return Outcome{}, err
	}

	for i := start; i < end || (p.Inclusive && i == end); i++ {
		e.stats.Iterations++
		var out Outcome
		err := e.env.Scoped(func() error {
			e.env.Declare(p.Name, value.Arcana(i), ast.Arcana, true)
			var err error
			if len(params) > 1 {
				out, err = e.orbitRange(params[1:], body)
			} else {
				out, err = e.eval(body)
			}
			return err
		})
		if err != nil {
			return Outcome{}, err
		}
		next, propagate := loopControl(out, p.Name)
		if propagate {
			e.logger.Debug("orbit signal propagates", "orbit", p.Name, "signal", out.Signal.String(), "label", out.Label)
			return out, nil
		}
		if !next || i == math.MaxInt64 {
			break
		}
	}
	return abyss(), nil
}

func (e *Evaluator) orbitBound(node ast.Node, name string) (int64, error) {
	v, escape, err := e.valueOf(node)
	if err != nil {
		return 0, err
	}
	if escape.Escaping() {
		return 0, errors.NewInvalidOperation("%s is not allowed in the range of orbit '%s'", escape.Signal, name)
	}
	bound, ok := v.(value.Arcana)
	if !ok {
		return 0, errors.NewTypeError("range of orbit '"+name+"'", ast.Arcana, v.Type()).WithPos(node.Position())
	}
	return int64(bound), nil
}
