package eval

import (
	"fmt"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/core/value"
	"github.com/abyss-lang/abyss/runtime/env"
)

func (e *Evaluator) evalEngrave(n *ast.Engrave) (Outcome, error) {
	seen := make(map[string]bool, len(n.Params))
	for _, p := range n.Params {
		if seen[p.Name] {
			return Outcome{}, errors.NewInvalidOperation("duplicate parameter '%s' in function '%s'", p.Name, n.Name).
				WithPos(p.Pos)
		}
		seen[p.Name] = true
	}
	e.env.DeclareFunction(&env.Function{
		Name:       n.Name,
		Params:     n.Params,
		ReturnType: n.ReturnType,
		Body:       n.Body,
	})
	return abyss(), nil
}

// evalFuncCall evaluates the arguments in the caller's scope, then runs the
// body in a call frame that sees only its parameters and the globals.
func (e *Evaluator) evalFuncCall(n *ast.FuncCall) (Outcome, error) {
	fn, ok := e.env.LookupFunction(n.Name)
	if !ok {
		err := errors.NewUndefinedFunction(n.Name)
		if s := closestMatch(n.Name, e.env.FunctionNames()); s != "" {
			err.WithContext("suggestion", s)
		}
		return Outcome{}, err
	}
	if len(n.Args) != len(fn.Params) {
		return Outcome{}, errors.NewInvalidOperation("function '%s' expects %d arguments, got %d",
			fn.Name, len(fn.Params), len(n.Args))
	}

	args := make([]value.Value, len(n.Args))
	for i, arg := range n.Args {
		v, escape, err := e.valueOf(arg)
		if err != nil || escape.Escaping() {
			return escape, err
		}
		if p := fn.Params[i]; v.Type() != p.Type {
			return Outcome{}, errors.NewTypeError(fmt.Sprintf("parameter '%s' of '%s'", p.Name, fn.Name), p.Type, v.Type()).
				WithPos(arg.Position())
		}
		args[i] = v
	}

	e.stats.Calls++
	e.logger.Debug("invoke", "function", fn.Name, "args", len(args), "depth", e.env.Depth())

	var out Outcome
	err := e.env.CallScoped(func() error {
		for i, p := range fn.Params {
			e.env.Declare(p.Name, args[i], p.Type, false)
		}
		var err error
		out, err = e.eval(fn.Body)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	if out.Escaping() {
		return Outcome{}, errors.NewInvalidOperation("%s escaped function '%s' outside of any orbit", out.Signal, fn.Name)
	}

	result := out.Result()
	if _, none := result.(value.Abyss); !none && result.Type() != fn.ReturnType {
		return Outcome{}, errors.NewTypeError(fmt.Sprintf("return value of '%s'", fn.Name), fn.ReturnType, result.Type())
	}
	return Of(result), nil
}
