package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyss-lang/abyss/runtime/config"
)

// fakeEditor replays scripted lines; "^C" aborts the prompt.
type fakeEditor struct {
	lines   []string
	prompts []string
	history []string
}

func (f *fakeEditor) Prompt(prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func (f *fakeEditor) AppendHistory(item string) {
	f.history = append(f.history, item)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testApp(t *testing.T) (*app, *syncBuffer, *syncBuffer) {
	t.Helper()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	return &app{
		stdin:  strings.NewReader(""),
		stdout: stdout,
		stderr: stderr,
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, stdout, stderr
}

func castSession(t *testing.T, lines ...string) (*fakeEditor, string, string) {
	t.Helper()
	a, stdout, stderr := testApp(t)
	editor := &fakeEditor{lines: lines}
	newSession(a, editor).loop()
	return editor, stdout.String(), stderr.String()
}

func TestCastSession(t *testing.T) {
	editor, stdout, stderr := castSession(t,
		"forge morph x: arcana = 1;",
		"x += 41; x;",
		"engrave twice(n: arcana) -> arcana {",
		"    reveal n * 2;",
		"};",
		"twice(x);",
		"x = 7; unveil(nope);",
		"x;",
		":env",
		`:fmt forge y:rune="a";`,
		":bogus",
		":reset",
		"x;",
		":quit",
		`unveil("unreached");`,
	)

	assert.Equal(t, strings.Join([]string{
		"42 (arcana)",
		"84 (arcana)",
		"7 (arcana)",
		"forge morph x: arcana = 7",
		"engrave twice(n: arcana) -> arcana",
		`forge y: rune = "a";`,
		"environment reset",
		"",
	}, "\n"), stdout)

	assert.Contains(t, stderr, "UndefinedVariable")
	assert.Contains(t, stderr, "<cast>:1:15")
	assert.Contains(t, stderr, "unknown command :bogus")
	assert.Equal(t, 2, strings.Count(stderr, "UndefinedVariable"))

	assert.Equal(t, "...... ", editor.prompts[3], "continuation prompt")
	assert.Contains(t, editor.history, "engrave twice(n: arcana) -> arcana {     reveal n * 2; };")
	assert.Len(t, editor.lines, 1)
}

func TestCastSummonReadsFromEditor(t *testing.T) {
	editor, stdout, stderr := castSession(t,
		`forge n: arcana = summon("n? ", arcana);`,
		"41",
		"n + 1;",
	)
	assert.Empty(t, stderr)
	assert.Equal(t, "n? 42 (arcana)\n\n", stdout)
	assert.Contains(t, editor.prompts, "")
}

func TestCastAbortDiscardsInput(t *testing.T) {
	_, stdout, stderr := castSession(t,
		"forge x: arcana =",
		"^C",
		"1;",
	)
	assert.Empty(t, stderr)
	assert.Equal(t, "1 (arcana)\n\n", stdout)
}

func TestCastLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.aby")
	require.NoError(t, os.WriteFile(path, []byte("forge base: arcana = 40;\nengrave add(n: arcana) -> arcana { reveal base + n; };\n"), 0o644))

	_, stdout, stderr := castSession(t,
		":load "+path,
		"add(2);",
		":load",
		":load "+filepath.Join(t.TempDir(), "missing.aby"),
	)
	assert.Equal(t, "42 (arcana)\n\n", stdout)
	assert.Contains(t, stderr, "usage: :load <file>")
	assert.Contains(t, stderr, "missing.aby")
}

func TestComplete(t *testing.T) {
	a, _, _ := testApp(t)
	s := newSession(a, &fakeEditor{})
	s.eval("forge counter: arcana = 1; forge count: arcana = 2;", "<test>")

	head, completions, tail := s.complete("unveil(cou + 1)", 10)
	assert.Equal(t, "unveil(", head)
	assert.Equal(t, []string{"count", "counter"}, completions)
	assert.Equal(t, " + 1)", tail)

	_, completions, _ = s.complete("orb", 3)
	assert.Equal(t, []string{"orbit"}, completions)

	_, completions, _ = s.complete("x ", 2)
	assert.Empty(t, completions)
}

func TestInvokeWatch(t *testing.T) {
	a, stdout, _ := testApp(t)
	a.watchReady = make(chan struct{})
	path := writeScript(t, "live.aby", `unveil("one");`)
	require.NoError(t, a.invoke(path, false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, path, false) }()

	select {
	case <-a.watchReady:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}

	require.NoError(t, os.WriteFile(path, []byte(`unveil("two");`), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "two\n")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, strings.HasPrefix(stdout.String(), "one\n"))
}
