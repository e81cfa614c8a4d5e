package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abyss-lang/abyss/runtime/env"
	"github.com/abyss-lang/abyss/runtime/eval"
	"github.com/abyss-lang/abyss/runtime/parser"
)

func newInvokeCmd(a *app) *cobra.Command {
	var (
		watch bool
		stats bool
	)

	cmd := &cobra.Command{
		Use:   "invoke <file>",
		Short: "Evaluate every statement of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.invoke(args[0], stats)
			if !watch {
				return err
			}
			return a.watch(cmd.Context(), args[0], stats)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run the script whenever the file is written")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print parse and evaluation counters to stderr")
	return cmd
}

// invoke parses and evaluates path in a fresh environment.
func (a *app) invoke(path string, stats bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return &exitError{code: ExitIOError, err: err}
	}
	source := string(src)

	var telemetry parser.ParseTelemetry
	program, err := parser.Parse(source, parser.WithLogger(a.logger), parser.WithTelemetry(&telemetry))
	if err != nil {
		return a.report(err, source, path)
	}

	evaluator := eval.New(env.New(),
		eval.WithOutput(a.stdout),
		eval.WithInput(a.stdin),
		eval.WithLogger(a.logger),
	)
	_, err = evaluator.Run(program)

	if stats {
		s := evaluator.Stats()
		_, _ = fmt.Fprintf(a.stderr, "parse: %d tokens, %d statements in %s\n", telemetry.TokenCount, telemetry.StatementCount, telemetry.TotalTime)
		_, _ = fmt.Fprintf(a.stderr, "eval: %d statements, %d calls, %d iterations\n", s.Statements, s.Calls, s.Iterations)
	}
	if err != nil {
		return a.report(err, source, path)
	}
	return nil
}

// watch re-runs path on every write until ctx is cancelled. The directory is
// watched rather than the file so editors that replace the file on save are
// still seen.
func (a *app) watch(ctx context.Context, path string, stats bool) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return &exitError{code: ExitIOError, err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &exitError{code: ExitIOError, err: err}
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return &exitError{code: ExitIOError, err: fmt.Errorf("watching %s: %w", path, err)}
	}
	a.logger.Debug("watching", "path", target)
	if a.watchReady != nil {
		close(a.watchReady)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			_, _ = fmt.Fprintf(a.stderr, "[watch] %s changed, re-running\n", path)
			// failures are already rendered; keep watching
			_ = a.invoke(path, stats)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "path", path, "error", err)
		}
	}
}
