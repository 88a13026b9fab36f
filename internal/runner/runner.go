package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Output captures the observable result of an external command.
type Output struct {
	Code   int    `json:"code"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Combined returns stdout, falling back to stderr when stdout is empty.
// Several of the tools we scrape write their report to stderr.
func (o Output) Combined() string {
	if o.Stdout != "" {
		return o.Stdout
	}
	return o.Stderr
}

// Handle tracks a long-lived child process such as caffeinate.
type Handle interface {
	Alive() bool
	Stop() error
}

// Runner executes external commands. Implemented by execRunner for real
// use and by fakes in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
	Start(name string, args ...string) (Handle, error)
}

type execRunner struct{}

// New returns a Runner backed by os/exec.
func New() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.Code = exitErr.ExitCode()
			return out, nil
		}
		out.Code = 1
		return out, err
	}
	return out, nil
}

func (execRunner) Start(name string, args ...string) (Handle, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	h := &procHandle{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

type procHandle struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (h *procHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Stop asks the child to terminate, escalating to SIGKILL after a grace
// period.
func (h *procHandle) Stop() error {
	if !h.Alive() {
		return nil
	}
	if err := h.cmd.Process.Signal(stopSignal); err != nil {
		return h.cmd.Process.Kill()
	}
	select {
	case <-h.done:
		return nil
	case <-time.After(3 * time.Second):
		return h.cmd.Process.Kill()
	}
}
