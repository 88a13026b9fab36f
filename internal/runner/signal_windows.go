//go:build windows

package runner

import "os"

// Windows has no SIGTERM; Interrupt makes Signal fail fast and Stop falls
// back to Kill.
var stopSignal = os.Interrupt
