// Package power wraps the platform sleep/wake utilities: keeping the host
// awake during the active window, forcing sleep at quiet hours, and
// verifying scheduled-wake entries.
package power

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"wakeprime/internal/audit"
	"wakeprime/internal/runner"
)

const commandTimeout = 5 * time.Second

// Keeper owns the keep-awake side effect. On darwin and linux that is a
// long-lived child process; on windows a powercfg override keyed by the
// process name.
type Keeper struct {
	Runner  runner.Runner
	Audit   *audit.Logger
	OSName  string
	Process string // windows powercfg override target, e.g. "wakeprime.exe"

	handle   runner.Handle
	override bool
}

func NewKeeper(r runner.Runner, log *audit.Logger) *Keeper {
	return &Keeper{Runner: r, Audit: log, OSName: runtime.GOOS, Process: "wakeprime.exe"}
}

// Active reports whether the keep-awake effect is currently in force.
func (k *Keeper) Active() bool {
	if k.OSName == "windows" {
		return k.override
	}
	return k.handle != nil && k.handle.Alive()
}

// Start engages keep-awake. Idempotent: a live child is left alone, a dead
// one is respawned.
func (k *Keeper) Start(ctx context.Context) {
	if k.Active() {
		return
	}
	switch k.OSName {
	case "windows":
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		out, err := k.Runner.Run(ctx, "powercfg", "/requestsoverride", "PROCESS", k.Process, "SYSTEM")
		if err != nil || out.Code != 0 {
			k.Audit.Op("keepawake_error", map[string]string{"error": describe(out, err)})
			return
		}
		k.override = true
		k.Audit.Op("keepawake_started", map[string]string{"method": "powercfg_requestsoverride"})
	default:
		name, args := k.inhibitCommand()
		h, err := k.Runner.Start(name, args...)
		if err != nil {
			k.Audit.Op("keepawake_error", map[string]string{"error": err.Error()})
			return
		}
		k.handle = h
		k.Audit.Op("keepawake_started", map[string]string{"method": name})
	}
}

// Stop releases keep-awake. Safe to call when not active.
func (k *Keeper) Stop(ctx context.Context) {
	switch k.OSName {
	case "windows":
		if !k.override {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		out, err := k.Runner.Run(ctx, "powercfg", "/requestsoverride", "PROCESS", k.Process)
		if err != nil || out.Code != 0 {
			k.Audit.Op("keepawake_stop_error", map[string]string{"error": describe(out, err)})
		} else {
			k.Audit.Op("keepawake_stopped", map[string]string{"method": "powercfg_requestsoverride"})
		}
		k.override = false
	default:
		if k.handle == nil {
			return
		}
		if err := k.handle.Stop(); err != nil {
			k.Audit.Op("keepawake_stop_error", map[string]string{"error": err.Error()})
		} else {
			k.Audit.Op("keepawake_stopped", nil)
		}
		k.handle = nil
	}
}

func (k *Keeper) inhibitCommand() (string, []string) {
	if k.OSName == "darwin" {
		// -dimsu: display, idle, disk, system, user-active assertions.
		return "caffeinate", []string{"-dimsu"}
	}
	return "systemd-inhibit", []string{
		"--what=idle:sleep",
		"--who=wakeprime",
		"--why=active window",
		"--mode=block",
		"sleep", "infinity",
	}
}

// ForceSleep puts the host to sleep immediately. Used at quiet hours when
// the operator opted in.
func (k *Keeper) ForceSleep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	var out runner.Output
	var err error
	switch k.OSName {
	case "darwin":
		out, err = k.Runner.Run(ctx, "sudo", "pmset", "sleepnow")
	case "windows":
		out, err = k.Runner.Run(ctx, "shutdown", "/h")
	default:
		out, err = k.Runner.Run(ctx, "systemctl", "suspend")
	}
	fields := map[string]string{"rc": strconv.Itoa(out.Code)}
	if err != nil {
		fields["error"] = err.Error()
	}
	k.Audit.Op("force_sleep", fields)
}

// VerifySchedule checks that the OS has a wake event covering the window
// start. Best effort: the result is audited, never fatal.
func (k *Keeper) VerifySchedule(ctx context.Context, startClock string) bool {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	var out runner.Output
	var err error
	switch k.OSName {
	case "darwin":
		out, err = k.Runner.Run(ctx, "pmset", "-g", "sched")
	case "windows":
		out, err = k.Runner.Run(ctx, "schtasks", "/query", "/tn", "WakeprimeWake", "/fo", "LIST")
	default:
		k.Audit.Op("wake_sched", map[string]string{"ok": "skipped"})
		return true
	}
	ok := err == nil && startClock != "" && strings.Contains(out.Combined(), startClock)
	snippet := out.Combined()
	if len(snippet) > 1200 {
		snippet = snippet[len(snippet)-1200:]
	}
	k.Audit.Op("wake_sched", map[string]string{
		"rc":      strconv.Itoa(out.Code),
		"ok":      strconv.FormatBool(ok),
		"snippet": snippet,
	})
	return ok
}

func describe(out runner.Output, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("rc=%d %s", out.Code, out.Combined())
}
