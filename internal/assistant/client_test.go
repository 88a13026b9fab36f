package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"wakeprime/internal/runner"
)

type captureRunner struct {
	name string
	args []string
	out  runner.Output
}

func (r *captureRunner) Run(ctx context.Context, name string, args ...string) (runner.Output, error) {
	r.name = name
	r.args = args
	return r.out, nil
}

func (r *captureRunner) Start(name string, args ...string) (runner.Handle, error) {
	panic("not used")
}

func newTestClient(out runner.Output) (*Client, *captureRunner) {
	r := &captureRunner{out: out}
	c := New(r, nil)
	c.OSName = "linux"
	c.Timeout = time.Second
	return c, r
}

func TestSendBuildsPromptArgs(t *testing.T) {
	c, r := newTestClient(runner.Output{Stdout: "{}"})
	if err := c.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	got := strings.Join(append([]string{r.name}, r.args...), " ")
	if got != "claude -p ping --output-format json" {
		t.Fatalf("unexpected command: %s", got)
	}
}

func TestSendPassesModelUnlessDefault(t *testing.T) {
	c, r := newTestClient(runner.Output{Stdout: "{}"})
	c.Model = "opus"
	if err := c.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	got := strings.Join(r.args, " ")
	if !strings.Contains(got, "--model opus") {
		t.Fatalf("expected model flag: %s", got)
	}

	c.Model = "Default"
	if err := c.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if strings.Contains(strings.Join(r.args, " "), "--model") {
		t.Fatalf("expected no model flag for default: %v", r.args)
	}
}

func TestSendReportsNonZeroExit(t *testing.T) {
	c, _ := newTestClient(runner.Output{Code: 2, Stderr: "boom"})
	err := c.Send(context.Background(), "ping")
	if err == nil || !strings.Contains(err.Error(), "AST_EXIT") {
		t.Fatalf("expected AST_EXIT error, got %v", err)
	}
}

func TestVersionParsesSemver(t *testing.T) {
	c, _ := newTestClient(runner.Output{Stdout: "1.2.3 (Claude Code)\n"})
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if v != "1.2.3" {
		t.Fatalf("unexpected version: %s", v)
	}

	c, _ = newTestClient(runner.Output{Stdout: "no digits here"})
	if _, err := c.Version(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCheckVersion(t *testing.T) {
	c, _ := newTestClient(runner.Output{Stdout: "1.2.3"})
	c.MinVersion = "2.0.0"
	err := c.CheckVersion(context.Background())
	if err == nil || !strings.Contains(err.Error(), "AST_VERSION_OLD") {
		t.Fatalf("expected AST_VERSION_OLD, got %v", err)
	}

	c.MinVersion = "1.0.0"
	if err := c.CheckVersion(context.Background()); err != nil {
		t.Fatalf("expected version check pass: %v", err)
	}

	// Blank minimum disables the check without invoking the binary.
	c2 := New(nil, nil)
	if err := c2.CheckVersion(context.Background()); err != nil {
		t.Fatalf("expected nil for blank minimum: %v", err)
	}

	c.MinVersion = "not-a-version"
	if err := c.CheckVersion(context.Background()); err == nil {
		t.Fatalf("expected invalid min_version error")
	}
}
