package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abyss-lang/abyss/runtime/format"
)

func newFmtCmd(a *app) *cobra.Command {
	var (
		check bool
		write bool
	)

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Format scripts",
		Long: `Format prints each script in canonical layout. With --check it lists the
files that are not formatted and fails; with --write it rewrites them in place.
Every result is verified to parse back to the same program.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unformatted := 0
			for _, path := range args {
				changed, err := a.formatFile(path, check, write)
				if err != nil {
					return err
				}
				if changed && check {
					unformatted++
				}
			}
			if unformatted > 0 {
				return &exitError{code: ExitInvalidArguments, err: fmt.Errorf("%d file(s) need formatting", unformatted)}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "List unformatted files and exit non-zero if any")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite files in place")
	cmd.MarkFlagsMutuallyExclusive("check", "write")
	return cmd
}

// formatFile reports whether path differs from its formatted form.
func (a *app) formatFile(path string, check, write bool) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, &exitError{code: ExitIOError, err: err}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return false, &exitError{code: ExitIOError, err: err}
	}

	res, err := format.Check(string(src))
	if err != nil {
		return false, a.report(err, string(src), path)
	}
	a.logger.Debug("formatted", "path", path, "digest", res.Digest.String(), "changed", res.Changed)

	switch {
	case check:
		if res.Changed {
			_, _ = fmt.Fprintln(a.stdout, path)
		}
	case write:
		if res.Changed {
			if err := os.WriteFile(path, []byte(res.Formatted), info.Mode().Perm()); err != nil {
				return false, &exitError{code: ExitIOError, err: err}
			}
		}
	default:
		_, _ = io.WriteString(a.stdout, res.Formatted)
	}
	return res.Changed, nil
}
