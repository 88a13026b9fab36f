// Package daemon sequences the active-window control loop: wait for the
// window, keep the host awake, kick off the assistant, then re-prime it
// after every usage reset until quiet hours.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"wakeprime/internal/assistant"
	"wakeprime/internal/audit"
	"wakeprime/internal/power"
	"wakeprime/internal/reset"
	"wakeprime/internal/state"
	"wakeprime/internal/window"
)

// Daemon holds the wired collaborators for one control loop.
type Daemon struct {
	Schedule  window.Schedule
	Audit     *audit.Logger
	Keeper    *power.Keeper
	Assistant *assistant.Client
	Prober    *reset.Prober
	StateRoot string

	Prompt      string
	KeepAwake   bool
	PreWake     time.Duration
	ResetBuffer time.Duration
	ForceSleep  bool

	// Now and SleepFn are overridable for tests; nil means real time.
	Now     func() time.Time
	SleepFn func(ctx context.Context, d time.Duration) error
}

// Run executes the control loop until ctx is canceled. Cancellation is the
// clean shutdown path and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	pidPath := PIDPath(d.StateRoot)
	running, pid, err := CheckPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("DMN_PIDFILE: %w", err)
	}
	if running {
		return fmt.Errorf("DMN_ALREADY_RUNNING: daemon already running with pid %d", pid)
	}
	if err := WritePIDFile(pidPath); err != nil {
		return fmt.Errorf("DMN_PIDFILE: %w", err)
	}
	defer func() {
		_ = RemovePIDFile(pidPath)
	}()

	d.Keeper.VerifySchedule(ctx, d.Schedule.Start.String())
	d.Audit.Op("daemon_started", map[string]string{
		"window": d.Schedule.Start.String() + "-" + d.Schedule.End.String(),
	})
	d.record(func(st *state.State) {
		st.DaemonStartedAt = d.now()
		st.DaemonPID = os.Getpid()
	})

	err = d.loop(ctx)
	d.Keeper.Stop(context.WithoutCancel(ctx))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		d.Audit.Op("shutdown", nil)
		return nil
	}
	return err
}

func (d *Daemon) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := d.now()

		if !d.Schedule.ActiveDay(now) {
			d.Keeper.Stop(ctx)
			next, err := d.Schedule.NextStart(now)
			if err != nil {
				return err
			}
			d.Audit.Op("inactive_day_wait", map[string]string{"until": stamp(next)})
			if err := d.waitUntil(ctx, next); err != nil {
				return err
			}
			continue
		}

		start := d.Schedule.OpenToday(now)
		if now.Before(start) {
			if d.KeepAwake {
				pre := start.Add(-d.PreWake)
				if now.Before(pre) {
					d.Audit.Op("waiting_for_pre_start", map[string]string{"until": stamp(pre)})
					if err := d.waitUntil(ctx, pre); err != nil {
						return err
					}
				}
				d.Keeper.Start(ctx)
			}
			d.Audit.Op("waiting_for_start", map[string]string{"until": stamp(start)})
			if err := d.waitUntil(ctx, start); err != nil {
				return err
			}
		}
		if d.KeepAwake {
			d.Keeper.Start(ctx)
		}

		d.Audit.Op("kickoff", map[string]string{"at": stamp(d.now())})
		d.send(ctx, func(st *state.State, at time.Time) { st.LastKickoff = at })

		if err := d.workUntilEnd(ctx); err != nil {
			return err
		}

		d.Keeper.Stop(ctx)
		next, err := d.Schedule.NextStart(d.now())
		if err != nil {
			return err
		}
		d.Audit.Op("waiting_next_day", map[string]string{"until": stamp(next)})
		if err := d.waitUntil(ctx, next); err != nil {
			return err
		}
	}
}

// workUntilEnd re-primes the assistant after each inferred reset until the
// window's end clock passes.
func (d *Daemon) workUntilEnd(ctx context.Context) error {
	for {
		now := d.now()
		end := d.Schedule.EndToday(now)
		if !now.Before(end) {
			d.Audit.Op("entering_quiet_hours", map[string]string{"at": stamp(now)})
			d.Keeper.Stop(ctx)
			if d.ForceSleep {
				d.Keeper.ForceSleep(ctx)
			}
			return nil
		}

		est, err := d.Prober.Next(ctx)
		if err != nil {
			return err
		}
		buffered := est.At.Add(d.ResetBuffer)
		d.Audit.Op("sleep_until_reset", map[string]string{
			"reset":    stamp(est.At),
			"buffered": stamp(buffered),
			"fallback": fmt.Sprintf("%t", est.Fallback),
		})
		d.record(func(st *state.State) {
			st.LastReset = est.At
			st.LastResetGuess = est.Fallback
		})
		if err := d.waitUntil(ctx, buffered); err != nil {
			return err
		}
		d.send(ctx, func(st *state.State, at time.Time) { st.LastPrime = at })
	}
}

func (d *Daemon) send(ctx context.Context, mark func(*state.State, time.Time)) {
	// A failed send is not fatal; the next reset gives another chance.
	if err := d.Assistant.Send(ctx, d.Prompt); err != nil {
		d.Audit.Op("send_failed", map[string]string{"error": err.Error()})
		return
	}
	at := d.now()
	d.record(func(st *state.State) { mark(st, at) })
}

// waitUntil sleeps toward target in chunks of at most a minute so shutdown
// is honored promptly even for hours-long waits.
func (d *Daemon) waitUntil(ctx context.Context, target time.Time) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remain := target.Sub(d.now())
		if remain <= 0 {
			return nil
		}
		chunk := remain
		if chunk > time.Minute {
			chunk = time.Minute
		}
		if chunk < time.Second {
			chunk = time.Second
		}
		if err := d.sleep(ctx, chunk); err != nil {
			return err
		}
	}
}

func (d *Daemon) record(mutate func(*state.State)) {
	if d.StateRoot == "" {
		return
	}
	if err := state.Update(d.StateRoot, mutate); err != nil {
		d.Audit.Op("state_write_error", map[string]string{"error": err.Error()})
	}
}

func (d *Daemon) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().In(d.Schedule.Loc)
}

func (d *Daemon) sleep(ctx context.Context, dur time.Duration) error {
	if d.SleepFn != nil {
		return d.SleepFn(ctx, dur)
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
