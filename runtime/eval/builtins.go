package eval

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/core/value"
)

// evalUnveil concatenates its arguments and writes them as one line.
func (e *Evaluator) evalUnveil(n *ast.Unveil) (Outcome, error) {
	var sb strings.Builder
	for _, arg := range n.Args {
		v, escape, err := e.valueOf(arg)
		if err != nil || escape.Escaping() {
			return escape, err
		}
		sb.WriteString(value.Unveiled(v))
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(e.out, sb.String()); err != nil {
		return Outcome{}, errors.Wrap(errors.InvalidOperation, err, "unveil failed to write output")
	}
	return abyss(), nil
}

func (e *Evaluator) evalTrans(n *ast.Trans) (Outcome, error) {
	v, escape, err := e.valueOf(n.Expr)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	cast, err := trans(v, n.Target)
	if err != nil {
		return Outcome{}, err
	}
	return Of(cast), nil
}

// trans converts v to target. Omen and abyss are never valid targets.
func trans(v value.Value, target ast.Type) (value.Value, error) {
	switch target {
	case ast.Arcana:
		switch x := v.(type) {
		case value.Arcana:
			return x, nil
		case value.Aether:
			f := math.Trunc(float64(x))
			if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, errors.NewInvalidOperation("aether %s does not fit in arcana", x)
			}
			return value.Arcana(int64(f)), nil
		case value.Rune:
			return parseArcana(string(x))
		}
	case ast.Aether:
		switch x := v.(type) {
		case value.Arcana:
			return value.Aether(float64(x)), nil
		case value.Aether:
			return x, nil
		case value.Rune:
			return parseAether(string(x))
		}
	case ast.Rune:
		switch x := v.(type) {
		case value.Arcana, value.Aether, value.Rune:
			return value.Rune(x.String()), nil
		}
	}
	return nil, errors.NewInvalidOperation("cannot trans %s to %s", v.Type(), target).
		WithContext("from", v.Type().String()).
		WithContext("to", target.String())
}

func parseArcana(s string) (value.Value, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidOperation, err, "cannot parse %q as arcana", s)
	}
	return value.Arcana(n), nil
}

func parseAether(s string) (value.Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidOperation, err, "cannot parse %q as aether", s)
	}
	return value.Aether(f), nil
}

// evalSummon writes the prompt without a newline and reads one line of input.
func (e *Evaluator) evalSummon(n *ast.Summon) (Outcome, error) {
	prompt, escape, err := e.valueOf(n.Prompt)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	if _, err := fmt.Fprint(e.out, value.Unveiled(prompt)); err != nil {
		return Outcome{}, errors.Wrap(errors.InvalidOperation, err, "summon failed to write prompt")
	}

	line, err := e.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return Outcome{}, errors.Wrap(errors.InvalidOperation, err, "summon failed to read input")
	}
	line = strings.TrimSpace(line)

	var v value.Value
	switch n.Type {
	case ast.Arcana:
		v, err = parseArcana(line)
	case ast.Aether:
		v, err = parseAether(line)
	case ast.Rune:
		v = value.Rune(line)
	default:
		err = errors.NewInvalidOperation("summon cannot read %s", n.Type)
	}
	if err != nil {
		return Outcome{}, err
	}
	return Of(v), nil
}
