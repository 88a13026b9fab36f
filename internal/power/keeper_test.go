package power

import (
	"context"
	"strings"
	"testing"

	"wakeprime/internal/runner"
)

type fakeHandle struct {
	alive   bool
	stopped bool
}

func (h *fakeHandle) Alive() bool { return h.alive }
func (h *fakeHandle) Stop() error {
	h.alive = false
	h.stopped = true
	return nil
}

type recordingRunner struct {
	runs    [][]string
	starts  [][]string
	handles []*fakeHandle
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) (runner.Output, error) {
	r.runs = append(r.runs, append([]string{name}, args...))
	if name == "pmset" && len(args) > 0 && args[0] == "-g" {
		return runner.Output{Stdout: "wake at 06:00AM every day"}, nil
	}
	return runner.Output{}, nil
}

func (r *recordingRunner) Start(name string, args ...string) (runner.Handle, error) {
	r.starts = append(r.starts, append([]string{name}, args...))
	h := &fakeHandle{alive: true}
	r.handles = append(r.handles, h)
	return h, nil
}

func newTestKeeper(osName string) (*Keeper, *recordingRunner) {
	r := &recordingRunner{}
	k := NewKeeper(r, nil)
	k.OSName = osName
	return k, r
}

func TestKeeperDarwinStartStop(t *testing.T) {
	k, r := newTestKeeper("darwin")
	ctx := context.Background()

	k.Start(ctx)
	if !k.Active() {
		t.Fatalf("expected keeper active after start")
	}
	if len(r.starts) != 1 || r.starts[0][0] != "caffeinate" || r.starts[0][1] != "-dimsu" {
		t.Fatalf("unexpected start commands: %v", r.starts)
	}

	// Idempotent while the child is alive.
	k.Start(ctx)
	if len(r.starts) != 1 {
		t.Fatalf("expected no respawn for live child: %v", r.starts)
	}

	k.Stop(ctx)
	if k.Active() {
		t.Fatalf("expected keeper inactive after stop")
	}
	if !r.handles[0].stopped {
		t.Fatalf("expected child process stopped")
	}

	// Stop again is a no-op.
	k.Stop(ctx)
}

func TestKeeperRespawnsDeadChild(t *testing.T) {
	k, r := newTestKeeper("linux")
	ctx := context.Background()

	k.Start(ctx)
	if len(r.starts) != 1 || r.starts[0][0] != "systemd-inhibit" {
		t.Fatalf("unexpected start commands: %v", r.starts)
	}
	r.handles[0].alive = false

	k.Start(ctx)
	if len(r.starts) != 2 {
		t.Fatalf("expected respawn after child died: %v", r.starts)
	}
}

func TestKeeperWindowsOverride(t *testing.T) {
	k, r := newTestKeeper("windows")
	ctx := context.Background()

	k.Start(ctx)
	if !k.Active() {
		t.Fatalf("expected override active")
	}
	if len(r.runs) != 1 {
		t.Fatalf("expected one powercfg call, got %v", r.runs)
	}
	set := strings.Join(r.runs[0], " ")
	if set != "powercfg /requestsoverride PROCESS wakeprime.exe SYSTEM" {
		t.Fatalf("unexpected override command: %s", set)
	}

	k.Stop(ctx)
	if k.Active() {
		t.Fatalf("expected override cleared")
	}
	clear := strings.Join(r.runs[1], " ")
	if clear != "powercfg /requestsoverride PROCESS wakeprime.exe" {
		t.Fatalf("unexpected clear command: %s", clear)
	}
}

func TestForceSleepPerOS(t *testing.T) {
	cases := map[string]string{
		"darwin":  "sudo pmset sleepnow",
		"windows": "shutdown /h",
		"linux":   "systemctl suspend",
	}
	for osName, want := range cases {
		k, r := newTestKeeper(osName)
		k.ForceSleep(context.Background())
		if len(r.runs) != 1 {
			t.Fatalf("%s: expected one command, got %v", osName, r.runs)
		}
		if got := strings.Join(r.runs[0], " "); got != want {
			t.Fatalf("%s: expected %q, got %q", osName, want, got)
		}
	}
}

func TestVerifySchedule(t *testing.T) {
	k, _ := newTestKeeper("darwin")
	if !k.VerifySchedule(context.Background(), "06:00") {
		t.Fatalf("expected schedule verified for matching clock")
	}
	if k.VerifySchedule(context.Background(), "07:30") {
		t.Fatalf("expected schedule mismatch for absent clock")
	}

	k, _ = newTestKeeper("linux")
	if !k.VerifySchedule(context.Background(), "06:00") {
		t.Fatalf("expected linux verify to be a skip-pass")
	}
}
