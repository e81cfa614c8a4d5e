// Command abyss runs, formats and explores AbySS programs.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abyss-lang/abyss/core/errors"
	"github.com/abyss-lang/abyss/runtime/config"
	"github.com/abyss-lang/abyss/runtime/diag"
	"github.com/abyss-lang/abyss/runtime/parser"
)

// Exit code constants
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1 // also: fmt --check found unformatted files
	ExitIOError          = 2
	ExitParseError       = 3
	ExitEvalError        = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the streams and resolved settings shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// flags
	configPath string
	debug      bool
	colorMode  string

	cfg    *config.Config
	logger *slog.Logger

	// closed once invoke --watch is watching; tests only
	watchReady chan struct{}
}

// exitError carries the process exit code. reported is set when the error
// was already rendered on stderr.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		if !ee.reported {
			_, _ = fmt.Fprintf(stderr, "%s %v\n", diag.Colorize("Error:", diag.ColorRed, a.colorFor(stderr)), ee.err)
		}
		return ee.code
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitInvalidArguments
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "abyss",
		Short:         "Run and explore AbySS programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file (default ./"+config.DefaultFile+")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.colorMode, "color", "", "Color output: auto, always or never")

	root.AddCommand(
		newInvokeCmd(a),
		newCastCmd(a),
		newParseCmd(a),
		newFmtCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return &exitError{code: exitCode(err), err: err}
	}
	if err := cfg.CheckVersion(version); err != nil {
		return &exitError{code: ExitInvalidArguments, err: err}
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug = a.debug
	}
	if cmd.Flags().Changed("color") {
		switch a.colorMode {
		case "auto", "always", "never":
			cfg.Color = a.colorMode
		default:
			return &exitError{code: ExitInvalidArguments, err: fmt.Errorf("invalid --color %q: want auto, always or never", a.colorMode)}
		}
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return attr
		},
	}))
	return nil
}

// colorFor reports whether output to w should carry ANSI colors.
func (a *app) colorFor(w io.Writer) bool {
	mode := "auto"
	if a.cfg != nil {
		mode = a.cfg.Color
	}
	if f, ok := w.(*os.File); ok {
		return diag.ShouldUseColor(mode, f)
	}
	return mode == "always"
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var parseErr *parser.ParseError
	var pathErr *fs.PathError
	switch {
	case isEvalError(err):
		return ExitEvalError
	case stderrors.As(err, &parseErr):
		return ExitParseError
	case stderrors.As(err, &pathErr):
		return ExitIOError
	}
	return ExitInvalidArguments
}

// report renders err against the source it came from and returns the
// matching exitError.
func (a *app) report(err error, source, filename string) error {
	f := diag.Formatter{Source: source, Filename: filename, Color: a.colorFor(a.stderr)}
	_, _ = io.WriteString(a.stderr, f.Format(err))
	return &exitError{code: exitCode(err), err: err, reported: true}
}

func isEvalError(err error) bool {
	_, ok := errors.As(err)
	return ok
}
