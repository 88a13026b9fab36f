//go:build !windows

package runner

import "syscall"

var stopSignal = syscall.SIGTERM
