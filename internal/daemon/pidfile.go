package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func PIDPath(root string) string {
	return filepath.Join(root, "wakeprime.pid")
}

func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func ReadPIDFile(path string) (int, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(blob)))
	if err != nil {
		return 0, fmt.Errorf("DMN_PIDFILE: invalid pid file %s", path)
	}
	return pid, nil
}

// CheckPIDFile reports whether a daemon recorded in the pid file is still
// running. A missing file or a stale pid both mean "not running".
func CheckPIDFile(path string) (bool, int, error) {
	pid, err := ReadPIDFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return processRunning(pid), pid, nil
}

func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
