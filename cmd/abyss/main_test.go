package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyss-lang/abyss/core/canonical"
	"github.com/abyss-lang/abyss/runtime/parser"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// abyss runs the CLI in an empty working directory so no stray
// configuration file is picked up.
func abyss(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	t.Chdir(t.TempDir())
	res := abyss(t, "", "version")
	assert.Equal(t, ExitSuccess, res.code)
	assert.True(t, strings.HasPrefix(res.stdout, "abyss "+version+" ("), res.stdout)
}

func TestInvoke(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeScript(t, "fact.aby", `// factorial
engrave fact(n: arcana) -> arcana {
    oracle (n) {
        (0) => reveal 1;
        _ => reveal n * fact(n - 1);
    };
};
forge name: rune = summon("who? ", rune);
unveil("hello ", name, ", 5! = ", fact(5));
`)

	res := abyss(t, "ada\n", "invoke", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "who? hello ada, 5! = 120\n", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestInvokeStats(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeScript(t, "loop.aby", "forge morph s: arcana = 0;\norbit (i = 0..4) { s += i; };\nunveil(s);\n")

	res := abyss(t, "", "invoke", "--stats", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "6\n", res.stdout)
	assert.Contains(t, res.stderr, "3 statements in")
	assert.Contains(t, res.stderr, "eval: 3 statements, 0 calls, 4 iterations")
}

func TestInvokeFailures(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name   string
		args   func(t *testing.T) []string
		code   int
		stdout string
		stderr []string
	}{
		{
			name: "evaluation error keeps earlier output",
			args: func(t *testing.T) []string {
				return []string{"invoke", writeScript(t, "script.aby", "unveil(\"before\");\nunveil(y);\n")}
			},
			code:   ExitEvalError,
			stdout: "before\n",
			stderr: []string{"UndefinedVariable", "--> ", "script.aby:2:8", "unveil(y);"},
		},
		{
			name: "syntax error",
			args: func(t *testing.T) []string {
				return []string{"invoke", writeScript(t, "bad.aby", "forge x: arcana = ;\n")}
			},
			code:   ExitParseError,
			stderr: []string{"syntax error", "bad.aby:1:19"},
		},
		{
			name: "missing file",
			args: func(t *testing.T) []string {
				return []string{"invoke", filepath.Join(t.TempDir(), "nope.aby")}
			},
			code:   ExitIOError,
			stderr: []string{"Error:", "nope.aby"},
		},
		{
			name:   "missing argument",
			args:   func(t *testing.T) []string { return []string{"invoke"} },
			code:   ExitInvalidArguments,
			stderr: []string{"accepts 1 arg(s)"},
		},
		{
			name: "bad color flag",
			args: func(t *testing.T) []string {
				return []string{"--color", "rainbow", "invoke", writeScript(t, "ok.aby", "1;")}
			},
			code:   ExitInvalidArguments,
			stderr: []string{"invalid --color"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := abyss(t, "", tt.args(t)...)
			assert.Equal(t, tt.code, res.code, res.stderr)
			assert.Equal(t, tt.stdout, res.stdout)
			for _, want := range tt.stderr {
				assert.Contains(t, res.stderr, want)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	script := writeScript(t, "ok.aby", `unveil("ok");`)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".abyss.json"), []byte(`{"requires": "99.0.0"}`), 0o644))
	res := abyss(t, "", "invoke", script)
	assert.Equal(t, ExitInvalidArguments, res.code)
	assert.Contains(t, res.stderr, "requires abyss 99.0.0")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".abyss.json"), []byte(`{"color": "purple"}`), 0o644))
	res = abyss(t, "", "invoke", script)
	assert.Equal(t, ExitInvalidArguments, res.code)

	other := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"color": "never"}`), 0o644))
	res = abyss(t, "", "--config", other, "invoke", script)
	assert.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "ok\n", res.stdout)

	res = abyss(t, "", "--config", filepath.Join(t.TempDir(), "missing.json"), "version")
	assert.Equal(t, ExitIOError, res.code)
}

func TestColorAlways(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeScript(t, "err.aby", "1 / 0;")

	res := abyss(t, "", "--color", "always", "invoke", path)
	assert.Equal(t, ExitEvalError, res.code)
	assert.Contains(t, res.stderr, "\033[31mInvalidOperation\033[0m")
}

func TestParse(t *testing.T) {
	t.Chdir(t.TempDir())

	res := abyss(t, "", "parse", "forge x: arcana=2^10; x+1; trans(x as aether);")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, strings.Join([]string{
		"forge x: arcana = 2 ^ 10;",
		"  => abyss",
		"x + 1;",
		"  => 1025 (arcana)",
		"trans(x as aether);",
		"  => 1024 (aether)",
		"",
	}, "\n"), res.stdout)

	res = abyss(t, "", "parse", "unveil(nope);")
	assert.Equal(t, ExitEvalError, res.code)
	assert.Contains(t, res.stderr, "<source>:1:8")
}

func TestParseDigest(t *testing.T) {
	t.Chdir(t.TempDir())
	src := `forge x: arcana = 1; unveil(x);`

	res := abyss(t, "", "parse", "--digest", src)
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	want, err := canonical.Sum(parser.ParseString(src))
	require.NoError(t, err)
	assert.Equal(t, want.String()+"\n", res.stdout)

	spaced := abyss(t, "", "parse", "--digest", "forge x:arcana=1;\n\nunveil( x );")
	assert.Equal(t, res.stdout, spaced.stdout)
}

func TestFmt(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeScript(t, "messy.aby", "forge x:arcana=(1+2)*3;orbit(i=0..x){unveil(i);};")
	formatted := "forge x: arcana = (1 + 2) * 3;\norbit (i = 0..x) {\n    unveil(i);\n};\n"

	res := abyss(t, "", "fmt", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, formatted, res.stdout)

	res = abyss(t, "", "fmt", "--check", path)
	assert.Equal(t, ExitInvalidArguments, res.code)
	assert.Equal(t, path+"\n", res.stdout)
	assert.Contains(t, res.stderr, "1 file(s) need formatting")

	res = abyss(t, "", "fmt", "--write", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, formatted, string(data))

	res = abyss(t, "", "fmt", "--check", path)
	assert.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	res = abyss(t, "", "fmt", "--check", "--write", path)
	assert.Equal(t, ExitInvalidArguments, res.code)

	bad := writeScript(t, "bad.aby", "orbit {")
	res = abyss(t, "", "fmt", bad)
	assert.Equal(t, ExitParseError, res.code)
}
