package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFileLifecycle(t *testing.T) {
	path := PIDPath(t.TempDir())

	running, pid, err := CheckPIDFile(path)
	if err != nil {
		t.Fatalf("check missing pid file: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected not running for missing file")
	}

	if err := WritePIDFile(path); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	running, pid, err = CheckPIDFile(path)
	if err != nil {
		t.Fatalf("check pid file: %v", err)
	}
	if !running || pid != os.Getpid() {
		t.Fatalf("expected own pid running, got running=%t pid=%d", running, pid)
	}

	if err := RemovePIDFile(path); err != nil {
		t.Fatalf("remove pid file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed")
	}
	// Removing twice is fine.
	if err := RemovePIDFile(path); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestProcessRunningProbe(t *testing.T) {
	if !processRunning(os.Getpid()) {
		t.Fatalf("expected own process reported as running")
	}
	if processRunning(0) || processRunning(-1) {
		t.Fatalf("expected non-positive pids reported as not running")
	}
	if processRunning(999999999) {
		t.Fatalf("expected absurd pid reported as not running")
	}
}

func TestCheckPIDFileStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakeprime.pid")
	// PID 1 belongs to init; EPERM counts as running, so use an absurd pid
	// beyond pid_max instead.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o644); err != nil {
		t.Fatalf("write stale pid: %v", err)
	}
	running, _, err := CheckPIDFile(path)
	if err != nil {
		t.Fatalf("check stale pid: %v", err)
	}
	if running {
		t.Fatalf("expected stale pid reported as not running")
	}
}

func TestCheckPIDFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakeprime.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if _, _, err := CheckPIDFile(path); err == nil {
		t.Fatalf("expected error for garbage pid file")
	}
}
