// Package env implements the block-structured variable and function scopes
// the evaluator runs against.
//
// The environment is a stack of frames. Frame 0 is the global frame and is
// never popped. Each frame owns both a variable table and a function table,
// so the two are always pushed and popped together.
//
// A call frame is a visibility barrier for variables: a lookup that reaches a
// call frame without finding the name continues at the global frame, so a
// function body never observes its caller's locals. Function lookup is not
// barred and searches every frame innermost-first.
package env

import (
	"sort"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/core/invariant"
	"github.com/abyss-lang/abyss/core/value"
)

// VarInfo is a variable binding.
type VarInfo struct {
	Value   value.Value
	Type    ast.Type
	Mutable bool
}

// Function is a declared function. Functions are immutable once declared.
type Function struct {
	Name       string
	Params     []ast.Param
	ReturnType ast.Type
	Body       ast.Node
}

type frame struct {
	vars  map[string]*VarInfo
	funcs map[string]*Function
	call  bool
}

func newFrame(call bool) *frame {
	return &frame{
		vars:  make(map[string]*VarInfo),
		funcs: make(map[string]*Function),
		call:  call,
	}
}

// Environment holds the scope stack for one evaluation session.
type Environment struct {
	frames []*frame
}

// New creates an environment containing only the global frame.
func New() *Environment {
	return &Environment{frames: []*frame{newFrame(false)}}
}

// Depth returns the number of live frames, including the global one.
func (e *Environment) Depth() int {
	return len(e.frames)
}

// PushScope opens a block frame.
func (e *Environment) PushScope() {
	e.frames = append(e.frames, newFrame(false))
}

// PushCallScope opens a function call frame.
func (e *Environment) PushCallScope() {
	e.frames = append(e.frames, newFrame(true))
}

// PopScope discards the innermost frame and everything declared in it.
func (e *Environment) PopScope() {
	invariant.Precondition(len(e.frames) > 1, "cannot pop the global frame")
	e.frames[len(e.frames)-1] = nil
	e.frames = e.frames[:len(e.frames)-1]
}

// Scoped runs fn inside a fresh block frame. The frame is released on every
// exit path, including errors and panics.
func (e *Environment) Scoped(fn func() error) error {
	return e.scoped(newFrame(false), fn)
}

// CallScoped runs fn inside a fresh call frame with the same release guarantee as Scoped.
func (e *Environment) CallScoped(fn func() error) error {
	return e.scoped(newFrame(true), fn)
}

func (e *Environment) scoped(f *frame, fn func() error) error {
	e.frames = append(e.frames, f)
	depth := len(e.frames)
	defer func() {
		invariant.Invariant(len(e.frames) == depth, "frame leaked inside scoped call: depth %d, want %d", len(e.frames), depth)
		e.PopScope()
	}()
	return fn()
}

// visible yields the frames a variable lookup may see, innermost first.
func (e *Environment) visible(yield func(*frame) bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if !yield(e.frames[i]) {
			return
		}
		if e.frames[i].call && i > 0 {
			yield(e.frames[0])
			return
		}
	}
}

// Declare binds name in the innermost frame, shadowing outer bindings and
// overwriting a binding of the same name in that frame.
func (e *Environment) Declare(name string, v value.Value, t ast.Type, mutable bool) {
	invariant.NotNil(v, "value")
	e.frames[len(e.frames)-1].vars[name] = &VarInfo{Value: v, Type: t, Mutable: mutable}
}

// Lookup resolves name innermost-first.
func (e *Environment) Lookup(name string) (VarInfo, bool) {
	if info := e.find(name); info != nil {
		return *info, true
	}
	return VarInfo{}, false
}

func (e *Environment) find(name string) *VarInfo {
	for f := range e.visible {
		if info, ok := f.vars[name]; ok {
			return info
		}
	}
	return nil
}

// Assign overwrites the value of the nearest visible binding of name.
// The binding must be mutable and t must equal its declared type.
func (e *Environment) Assign(name string, v value.Value, t ast.Type) error {
	info := e.find(name)
	if info == nil {
		return errors.NewUndefinedVariable(name)
	}
	if !info.Mutable {
		return errors.NewInvalidOperation("cannot reassign immutable variable '%s'", name).
			WithContext("name", name)
	}
	if info.Type != t {
		return errors.NewInvalidOperation("type mismatch: cannot assign %s to variable '%s' of type %s", t, name, info.Type).
			WithContext("name", name).
			WithContext("expected", info.Type.String()).
			WithContext("actual", t.String())
	}
	info.Value = v
	return nil
}

// DeclareFunction binds fn in the innermost frame.
func (e *Environment) DeclareFunction(fn *Function) {
	invariant.NotNil(fn, "function")
	e.frames[len(e.frames)-1].funcs[fn.Name] = fn
}

// LookupFunction resolves a function innermost-first across all frames.
func (e *Environment) LookupFunction(name string) (*Function, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if fn, ok := e.frames[i].funcs[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// VariableNames lists the distinct variable names visible from the innermost frame, sorted.
func (e *Environment) VariableNames() []string {
	seen := make(map[string]bool)
	for f := range e.visible {
		for name := range f.vars {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}

// FunctionNames lists the distinct function names reachable from the innermost frame, sorted.
func (e *Environment) FunctionNames() []string {
	seen := make(map[string]bool)
	for _, f := range e.frames {
		for name := range f.funcs {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}

// Globals returns a copy of the global variable bindings.
func (e *Environment) Globals() map[string]VarInfo {
	out := make(map[string]VarInfo, len(e.frames[0].vars))
	for name, info := range e.frames[0].vars {
		out[name] = *info
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
