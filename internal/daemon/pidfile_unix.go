//go:build !windows

package daemon

import (
	"errors"
	"os"
	"syscall"
)

// processRunning probes pid with the null signal. EPERM means the process
// exists but belongs to someone else, which still counts as running.
func processRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
