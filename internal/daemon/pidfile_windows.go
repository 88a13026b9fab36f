//go:build windows

package daemon

import (
	"errors"
	"syscall"
)

// GetExitCodeProcess reports this code while the process is still alive.
const stillActive = 259

// processRunning opens a process handle and checks its exit code; the
// null-signal probe used on unix is not implemented on windows.
func processRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := syscall.OpenProcess(syscall.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		// Access denied means the process exists under another account,
		// which still counts as running.
		return errors.Is(err, syscall.ERROR_ACCESS_DENIED)
	}
	defer syscall.CloseHandle(h)
	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return true
	}
	return code == stillActive
}
