// Package eval interprets AbySS programs.
//
// Evaluation is a direct recursive walk over core/ast. Every node produces an
// Outcome: a plain value, or a value carrying one of the control signals
// reveal, resume or eject. Signals travel upward as ordinary return values
// until the construct that owns them (a block, oracle, orbit or function
// call) consumes them.
//
// Scopes opened for oracles, orbit iterations and calls go through
// env.Scoped/env.CallScoped, so a frame is released on every exit path.
package eval

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/core/invariant"
	"github.com/abyss-lang/abyss/core/value"
	"github.com/abyss-lang/abyss/runtime/env"
)

// Signal is the control signal an Outcome carries.
type Signal int

const (
	SignalNone   Signal = iota // plain value
	SignalReveal               // reveal: early result of a block, oracle or function
	SignalResume               // resume: continue an orbit
	SignalEject                // eject: break out of an orbit
)

func (s Signal) String() string {
	switch s {
	case SignalReveal:
		return "reveal"
	case SignalResume:
		return "resume"
	case SignalEject:
		return "eject"
	}
	return "none"
}

// Outcome is the result of evaluating one node.
type Outcome struct {
	Value  value.Value // always set for SignalNone and SignalReveal
	Signal Signal
	Label  string // orbit label for resume/eject, empty for the innermost orbit
}

// Of wraps v as a plain outcome.
func Of(v value.Value) Outcome {
	return Outcome{Value: v}
}

func abyss() Outcome {
	return Of(value.Abyss{})
}

// Escaping reports whether the outcome is a loop signal that must keep
// propagating past value positions.
func (o Outcome) Escaping() bool {
	return o.Signal == SignalResume || o.Signal == SignalEject
}

// Result returns the value the outcome stands for; loop signals stand for abyss.
func (o Outcome) Result() value.Value {
	if o.Value == nil {
		return value.Abyss{}
	}
	return o.Value
}

func (o Outcome) String() string {
	switch o.Signal {
	case SignalReveal:
		return "reveal " + o.Result().String()
	case SignalResume, SignalEject:
		if o.Label != "" {
			return o.Signal.String() + " " + o.Label
		}
		return o.Signal.String()
	}
	return o.Result().String()
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithOutput sets where unveil and summon prompts are written. Default os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Evaluator) {
		e.out = w
	}
}

// WithInput sets where summon reads from. Default os.Stdin.
func WithInput(r io.Reader) Option {
	return func(e *Evaluator) {
		e.in = bufio.NewReader(r)
	}
}

// WithLogger sets the debug logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// Evaluator evaluates nodes against one Environment.
// It is not safe for concurrent use.
type Evaluator struct {
	env    *env.Environment
	out    io.Writer
	in     *bufio.Reader
	logger *slog.Logger
	stats  Stats
}

// Stats counts work done by an Evaluator since creation.
type Stats struct {
	Statements int // top-level statements evaluated
	Calls      int // function invocations
	Iterations int // orbit iterations started
}

// New creates an evaluator bound to environment.
func New(environment *env.Environment, opts ...Option) *Evaluator {
	invariant.NotNil(environment, "environment")
	e := &Evaluator{
		env:    environment,
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.in == nil {
		e.in = bufio.NewReader(os.Stdin)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Env returns the environment the evaluator mutates.
func (e *Evaluator) Env() *env.Environment {
	return e.env
}

// Stats returns the work counters.
func (e *Evaluator) Stats() Stats {
	return e.stats
}

// Evaluate evaluates one top-level statement. Bindings committed before an
// error stay in the environment.
func (e *Evaluator) Evaluate(node ast.Node) (Outcome, error) {
	invariant.NotNil(node, "node")
	depth := e.env.Depth()
	e.stats.Statements++

	out, err := e.eval(node)

	invariant.Postcondition(e.env.Depth() == depth,
		"scope stack unbalanced after %T: depth %d, want %d", node, e.env.Depth(), depth)
	return out, err
}

// Run evaluates every statement of program in order and stops at the first
// error. The outcomes of the statements that completed are returned either way.
func (e *Evaluator) Run(program *ast.Program) ([]Outcome, error) {
	invariant.NotNil(program, "program")
	outcomes := make([]Outcome, 0, len(program.Statements))
	for _, stmt := range program.Statements {
		out, err := e.Evaluate(stmt)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// eval dispatches on the node kind and stamps errors with the position of
// the innermost node that produced them.
func (e *Evaluator) eval(node ast.Node) (Outcome, error) {
	out, err := e.dispatch(node)
	if err != nil {
		if evalErr, ok := errors.As(err); ok {
			evalErr.WithPos(node.Position())
		}
		return Outcome{}, err
	}
	return out, nil
}

func (e *Evaluator) dispatch(node ast.Node) (Outcome, error) {
	switch n := node.(type) {
	case *ast.ArcanaLiteral:
		return Of(value.Arcana(n.Value)), nil
	case *ast.AetherLiteral:
		return Of(value.Aether(n.Value)), nil
	case *ast.RuneLiteral:
		return Of(value.Rune(n.Value)), nil
	case *ast.OmenLiteral:
		return Of(value.Omen(n.Value)), nil
	case *ast.AbyssLiteral:
		return abyss(), nil
	case *ast.BinaryExpr:
		return e.evalBinary(n)
	case *ast.UnaryExpr:
		return e.evalUnary(n)
	case *ast.VarAssign:
		return e.evalVarAssign(n)
	case *ast.Assignment:
		return e.evalAssignment(n)
	case *ast.Var:
		return e.evalVar(n)
	case *ast.Unveil:
		return e.evalUnveil(n)
	case *ast.Trans:
		return e.evalTrans(n)
	case *ast.Summon:
		return e.evalSummon(n)
	case *ast.Reveal:
		return e.evalReveal(n)
	case *ast.Block:
		return e.evalBlock(n)
	case *ast.Oracle:
		return e.evalOracle(n)
	case *ast.Orbit:
		return e.evalOrbit(n)
	case *ast.Resume:
		return Outcome{Value: value.Abyss{}, Signal: SignalResume, Label: n.Label}, nil
	case *ast.Eject:
		return Outcome{Value: value.Abyss{}, Signal: SignalEject, Label: n.Label}, nil
	case *ast.Engrave:
		return e.evalEngrave(n)
	case *ast.FuncCall:
		return e.evalFuncCall(n)
	case *ast.DontCare:
		return Outcome{}, errors.NewInvalidOperation("'_' is only allowed in oracle patterns")
	}
	return Outcome{}, errors.NewInvalidOperation("cannot evaluate %T", node)
}

// valueOf evaluates node where a value is required. A reveal unwraps to its
// value; a resume or eject comes back as escape and the caller must return
// it unchanged.
func (e *Evaluator) valueOf(node ast.Node) (v value.Value, escape Outcome, err error) {
	out, err := e.eval(node)
	if err != nil {
		return nil, Outcome{}, err
	}
	if out.Escaping() {
		return nil, out, nil
	}
	return out.Result(), Outcome{}, nil
}

func (e *Evaluator) evalReveal(n *ast.Reveal) (Outcome, error) {
	if n.Expr == nil {
		return Outcome{Value: value.Abyss{}, Signal: SignalReveal}, nil
	}
	v, escape, err := e.valueOf(n.Expr)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	return Outcome{Value: v, Signal: SignalReveal}, nil
}

// evalBlock runs statements in a scope of its own. The block's outcome is the
// first signal raised, or the last statement's value.
func (e *Evaluator) evalBlock(n *ast.Block) (Outcome, error) {
	result := abyss()
	err := e.env.Scoped(func() error {
		for _, stmt := range n.Statements {
			out, err := e.eval(stmt)
			if err != nil {
				return err
			}
			result = out
			if out.Signal != SignalNone {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return result, nil
}

func (e *Evaluator) evalVarAssign(n *ast.VarAssign) (Outcome, error) {
	v, escape, err := e.valueOf(n.Value)
	if err != nil || escape.Escaping() {
		return escape, err
	}
	if v.Type() != n.Type {
		return Outcome{}, errors.NewTypeError("declaration of '"+n.Name+"'", n.Type, v.Type()).
			WithContext("name", n.Name)
	}
	e.env.Declare(n.Name, v, n.Type, n.Mutable)
	return abyss(), nil
}

// compoundOps lists the assignment operators each declared type accepts.
var compoundOps = map[ast.Type][]ast.AssignOp{
	ast.Arcana: {ast.Assign, ast.AddAssign, ast.SubAssign, ast.MulAssign, ast.DivAssign, ast.ModAssign, ast.PowArcanaAssign},
	ast.Aether: {ast.Assign, ast.AddAssign, ast.SubAssign, ast.MulAssign, ast.DivAssign, ast.ModAssign, ast.PowAetherAssign},
	ast.Rune:   {ast.Assign, ast.AddAssign},
	ast.Omen:   {ast.Assign},
}

func supportsAssign(t ast.Type, op ast.AssignOp) bool {
	for _, allowed := range compoundOps[t] {
		if allowed == op {
			return true
		}
	}
	return false
}

func (e *Evaluator) evalAssignment(n *ast.Assignment) (Outcome, error) {
	info, ok := e.env.Lookup(n.Name)
	if !ok {
		return Outcome{}, e.undefinedVariable(n.Name)
	}
	if !info.Mutable {
		return Outcome{}, errors.NewInvalidOperation("cannot reassign immutable variable '%s'", n.Name).
			WithContext("name", n.Name)
	}
	if !supportsAssign(info.Type, n.Op) {
		return Outcome{}, errors.NewInvalidOperation("operator %s is not supported for %s variable '%s'", n.Op, info.Type, n.Name).
			WithContext("name", n.Name)
	}

	rhs, escape, err := e.valueOf(n.Value)
	if err != nil || escape.Escaping() {
		return escape, err
	}

	next := rhs
	if op, compound := n.Op.Binary(); compound {
		if next, err = binary(op, info.Value, rhs); err != nil {
			return Outcome{}, err
		}
	}
	if err := e.env.Assign(n.Name, next, next.Type()); err != nil {
		return Outcome{}, err
	}
	return abyss(), nil
}

func (e *Evaluator) evalVar(n *ast.Var) (Outcome, error) {
	info, ok := e.env.Lookup(n.Name)
	if !ok {
		return Outcome{}, e.undefinedVariable(n.Name)
	}
	return Of(info.Value), nil
}
