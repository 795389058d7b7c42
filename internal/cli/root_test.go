package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

const testGFA = "H\tVN:Z:1.0\tORI:Z:A;B\n" +
	"S\t1\tACGT\tORI:Z:A;B\n" +
	"S\t2\tT\tORI:Z:A\n" +
	"S\t3\tGG\tORI:Z:A;B\n" +
	"S\t4\tC\tORI:Z:B\n" +
	"S\t5\tAA\tORI:Z:A;B\n" +
	"S\t6\tTTT\tORI:Z:A;B\n" +
	"L\t1\t+\t2\t+\t0M\n" +
	"L\t2\t+\t3\t+\t0M\n" +
	"L\t3\t+\t4\t+\t0M\n" +
	"L\t4\t+\t5\t+\t0M\n" +
	"L\t5\t+\t6\t+\t0M\n" +
	"L\t3\t+\t5\t+\t0M\n"

// isolate points the config file and the shared cache into a temp dir and
// returns the path of a fresh copy of testGFA.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PANGRAPH_CONFIG", filepath.Join(dir, "config.toml"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	source := filepath.Join(dir, "test.gfa")
	if err := os.WriteFile(source, []byte(testGFA), 0o644); err != nil {
		t.Fatal(err)
	}
	return source
}

// run executes args against a fresh command tree and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	if err := c.LoadConfig(); err != nil {
		t.Fatal(err)
	}
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExecute(t *testing.T) {
	isolate(t)
	if err := Execute(context.Background(), io.Discard, []string{"cache", "path"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	isolate(t)
	if err := Execute(context.Background(), io.Discard, []string{"render"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestExecuteBrokenConfig(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(os.Getenv("PANGRAPH_CONFIG"), []byte("bogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Execute(context.Background(), io.Discard, []string{"cache", "path"})
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestConfigPath(t *testing.T) {
	isolate(t)
	out, err := run(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != os.Getenv("PANGRAPH_CONFIG") {
		t.Errorf("config path = %q, want %q", got, os.Getenv("PANGRAPH_CONFIG"))
	}
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	if _, err := run(t, "config", "init"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(os.Getenv("PANGRAPH_CONFIG")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := run(t, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := run(t, "config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	out, err := run(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "radius = 200") {
		t.Errorf("config show missing default radius:\n%s", out)
	}
}

func TestCompletion(t *testing.T) {
	isolate(t)
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "pangraph") {
		t.Error("completion script does not mention pangraph")
	}
}
