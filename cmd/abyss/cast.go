package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/abyss-lang/abyss/core/ast"
	"github.com/abyss-lang/abyss/core/value"
	"github.com/abyss-lang/abyss/runtime/env"
	"github.com/abyss-lang/abyss/runtime/eval"
	"github.com/abyss-lang/abyss/runtime/format"
	"github.com/abyss-lang/abyss/runtime/lexer"
	"github.com/abyss-lang/abyss/runtime/parser"
)

const castHelp = `Commands:
  :help          show this help
  :quit          leave the session
  :reset         forget every variable and function
  :load <file>   evaluate a script in this session
  :fmt <code>    print code in canonical layout
  :env           list global variables and functions
Statements end with ';'. Unfinished input continues on the next line.
`

// lineEditor is the part of *liner.State the session needs.
type lineEditor interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newCastCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cast",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln := liner.NewLiner()
			defer func() { _ = ln.Close() }()
			ln.SetCtrlCAborts(true)

			histPath := a.cfg.HistoryPath()
			if histPath != "" {
				if f, err := os.Open(histPath); err == nil {
					_, _ = ln.ReadHistory(f)
					_ = f.Close()
				}
				defer func() {
					if f, err := os.Create(histPath); err == nil {
						_, _ = ln.WriteHistory(f)
						_ = f.Close()
					}
				}()
			}

			s := newSession(a, ln)
			ln.SetWordCompleter(s.complete)
			_, _ = fmt.Fprintf(a.stdout, "abyss %s - type :help for commands\n", version)
			s.loop()
			return nil
		},
	}
}

// session is one interactive evaluation context. Bindings survive failed
// statements, matching script semantics.
type session struct {
	app       *app
	editor    lineEditor
	evaluator *eval.Evaluator
}

func newSession(a *app, editor lineEditor) *session {
	s := &session{app: a, editor: editor}
	s.reset()
	return s
}

func (s *session) reset() {
	s.evaluator = eval.New(env.New(),
		eval.WithOutput(s.app.stdout),
		eval.WithInput(&editorReader{editor: s.editor}),
		eval.WithLogger(s.app.logger),
	)
}

func (s *session) loop() {
	for {
		src, ok := s.read()
		if !ok {
			_, _ = fmt.Fprintln(s.app.stdout)
			return
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		s.editor.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := s.command(trimmed); quit {
				return
			}
			continue
		}
		s.eval(src, "<cast>")
	}
}

// read collects lines until they form complete statements. ok is false at
// end of input; an aborted prompt discards what was typed.
func (s *session) read() (string, bool) {
	prompt := s.app.cfg.Prompt
	cont := "... "
	if len(prompt) > 1 {
		cont = strings.Repeat(".", len(prompt)-1) + " "
	}

	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := s.editor.Prompt(p)
		if stderrors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			return line, true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		_, perr := parser.Parse(src)
		var parseErr *parser.ParseError
		if stderrors.As(perr, &parseErr) && parseErr.Incomplete && strings.TrimSpace(src) != "" {
			continue
		}
		return src, true
	}
}

// eval runs src statement by statement, echoing every non-abyss outcome.
func (s *session) eval(src, name string) {
	program, err := parser.Parse(src, parser.WithLogger(s.app.logger))
	if err != nil {
		_ = s.app.report(err, src, name)
		return
	}
	for _, stmt := range program.Statements {
		out, err := s.evaluator.Evaluate(stmt)
		if err != nil {
			_ = s.app.report(err, src, name)
			return
		}
		if _, isAbyss := out.Value.(value.Abyss); isAbyss && out.Signal == eval.SignalNone {
			continue
		}
		_, _ = fmt.Fprintln(s.app.stdout, describe(out))
	}
}

// command runs a meta command and reports whether the session should end.
func (s *session) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	w := s.app.stdout

	switch name {
	case ":quit":
		return true
	case ":help":
		_, _ = io.WriteString(w, castHelp)
	case ":reset":
		s.reset()
		_, _ = fmt.Fprintln(w, "environment reset")
	case ":load":
		if arg == "" {
			_, _ = fmt.Fprintln(s.app.stderr, "usage: :load <file>")
			return false
		}
		src, err := os.ReadFile(arg)
		if err != nil {
			_, _ = fmt.Fprintf(s.app.stderr, "Error: %v\n", err)
			return false
		}
		s.eval(string(src), arg)
	case ":fmt":
		formatted, err := format.Source(arg)
		if err != nil {
			_ = s.app.report(err, arg, "<fmt>")
			return false
		}
		_, _ = io.WriteString(w, formatted)
	case ":env":
		s.printEnv(w)
	default:
		_, _ = fmt.Fprintf(s.app.stderr, "unknown command %s, type :help\n", name)
	}
	return false
}

func (s *session) printEnv(w io.Writer) {
	environment := s.evaluator.Env()
	globals := environment.Globals()
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		info := globals[name]
		morph := ""
		if info.Mutable {
			morph = "morph "
		}
		_, _ = fmt.Fprintf(w, "forge %s%s: %s = %s\n", morph, name, info.Type, format.Node(literal(info.Value)))
	}
	for _, name := range environment.FunctionNames() {
		fn, _ := environment.LookupFunction(name)
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
		}
		_, _ = fmt.Fprintf(w, "engrave %s(%s) -> %s\n", fn.Name, strings.Join(params, ", "), fn.ReturnType)
	}
}

// literal converts a value back to the literal node that produces it.
func literal(v value.Value) ast.Node {
	switch v := v.(type) {
	case value.Arcana:
		return &ast.ArcanaLiteral{Value: int64(v)}
	case value.Aether:
		return &ast.AetherLiteral{Value: float64(v)}
	case value.Rune:
		return &ast.RuneLiteral{Value: string(v)}
	case value.Omen:
		return &ast.OmenLiteral{Value: bool(v)}
	}
	return &ast.AbyssLiteral{}
}

// complete is the word completer for keywords and names in scope.
func (s *session) complete(line string, pos int) (head string, completions []string, tail string) {
	head, tail = line[:pos], line[pos:]
	start := len(head)
	for start > 0 && isIdentByte(head[start-1]) {
		start--
	}
	word := head[start:]
	if word == "" {
		return head, nil, tail
	}

	environment := s.evaluator.Env()
	candidates := slices.Concat(environment.VariableNames(), environment.FunctionNames())
	for kw := range lexer.Keywords {
		candidates = append(candidates, kw)
	}
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			completions = append(completions, c)
		}
	}
	slices.Sort(completions)
	return head[:start], slices.Compact(completions), tail
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// editorReader feeds summon from the line editor so typed-ahead input is not
// swallowed by a second buffered reader on stdin.
type editorReader struct {
	editor  lineEditor
	pending string
}

func (r *editorReader) Read(p []byte) (int, error) {
	if r.pending == "" {
		line, err := r.editor.Prompt("")
		if err != nil {
			if stderrors.Is(err, liner.ErrPromptAborted) {
				return 0, io.EOF
			}
			return 0, err
		}
		r.pending = line + "\n"
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
