package config

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"wakeprime/internal/window"
)

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CFG_VERSION: unsupported version %d", cfg.Version)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("CFG_TIMEZONE: %w", err)
	}
	start, err := window.ParseClock(cfg.Window.Start)
	if err != nil {
		return fmt.Errorf("CFG_WINDOW_START: %w", err)
	}
	end, err := window.ParseClock(cfg.Window.End)
	if err != nil {
		return fmt.Errorf("CFG_WINDOW_END: %w", err)
	}
	if end.Hour < start.Hour || (end.Hour == start.Hour && end.Minute <= start.Minute) {
		return fmt.Errorf("CFG_WINDOW_ORDER: end %s must be after start %s", cfg.Window.End, cfg.Window.Start)
	}
	if _, err := window.ParseDays(cfg.Window.Days); err != nil {
		return fmt.Errorf("CFG_WINDOW_DAYS: %w", err)
	}
	if cfg.Window.Cron != "" && !gronx.IsValid(cfg.Window.Cron) {
		return fmt.Errorf("CFG_WINDOW_CRON: invalid cron expression %q", cfg.Window.Cron)
	}
	if cfg.Kickoff.Prompt == "" {
		return fmt.Errorf("CFG_KICKOFF: missing kickoff prompt")
	}
	if cfg.Assistant.Command == "" {
		return fmt.Errorf("CFG_ASSISTANT: missing assistant command")
	}
	if cfg.Monitor.Command == "" {
		return fmt.Errorf("CFG_MONITOR: missing monitor command")
	}
	if cfg.Storage.Root == "" {
		return fmt.Errorf("CFG_STORAGE: missing storage root")
	}
	durations := map[string]string{
		"CFG_ASSISTANT_TIMEOUT":     cfg.Assistant.Timeout,
		"CFG_MONITOR_TIMEOUT":       cfg.Monitor.Timeout,
		"CFG_MONITOR_BACKOFF_START": cfg.Monitor.BackoffStart,
		"CFG_MONITOR_BACKOFF_MAX":   cfg.Monitor.BackoffMax,
		"CFG_MONITOR_FALLBACK":      cfg.Monitor.Fallback,
		"CFG_MONITOR_RESET_BUFFER":  cfg.Monitor.ResetBuffer,
		"CFG_POWER_PRE_WAKE":        cfg.Power.PreWake,
	}
	for code, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", code, err)
		}
		if d < 0 {
			return fmt.Errorf("%s: negative duration %q", code, raw)
		}
	}
	return nil
}
