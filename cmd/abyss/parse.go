package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abyss-lang/abyss/core/canonical"
	"github.com/abyss-lang/abyss/core/value"
	"github.com/abyss-lang/abyss/runtime/env"
	"github.com/abyss-lang/abyss/runtime/eval"
	"github.com/abyss-lang/abyss/runtime/format"
	"github.com/abyss-lang/abyss/runtime/parser"
)

const sourceName = "<source>"

func newParseCmd(a *app) *cobra.Command {
	var digest bool

	cmd := &cobra.Command{
		Use:   "parse <source>",
		Short: "Show each parsed statement and what it evaluates to",
		Example: `  abyss parse 'forge x: arcana = 2 ^ 10; x + 1;'
  abyss parse --digest 'unveil("hi");'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.parse(args[0], digest)
		},
	}

	cmd.Flags().BoolVar(&digest, "digest", false, "Print the canonical digest of the program instead of evaluating it")
	return cmd
}

func (a *app) parse(source string, digest bool) error {
	program, err := parser.Parse(source, parser.WithLogger(a.logger))
	if err != nil {
		return a.report(err, source, sourceName)
	}

	if digest {
		sum, err := canonical.Sum(program)
		if err != nil {
			return &exitError{code: ExitInvalidArguments, err: err}
		}
		_, _ = fmt.Fprintln(a.stdout, sum)
		return nil
	}

	evaluator := eval.New(env.New(),
		eval.WithOutput(a.stdout),
		eval.WithInput(a.stdin),
		eval.WithLogger(a.logger),
	)
	for _, stmt := range program.Statements {
		_, _ = fmt.Fprintf(a.stdout, "%s;\n", format.Node(stmt))
		out, err := evaluator.Evaluate(stmt)
		if err != nil {
			return a.report(err, source, sourceName)
		}
		_, _ = fmt.Fprintf(a.stdout, "  => %s\n", describe(out))
	}
	return nil
}

// describe renders an outcome with its type so 3 and 3.0 stay distinguishable.
func describe(out eval.Outcome) string {
	if out.Signal != eval.SignalNone {
		return out.String()
	}
	switch v := out.Result().(type) {
	case value.Abyss:
		return "abyss"
	case value.Rune:
		return fmt.Sprintf("%q (rune)", string(v))
	default:
		return fmt.Sprintf("%s (%s)", v, v.Type())
	}
}
