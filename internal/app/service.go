// Package app wires configuration and subsystems into the Service facade
// every CLI command talks to.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"wakeprime/internal/assistant"
	"wakeprime/internal/audit"
	"wakeprime/internal/config"
	"wakeprime/internal/daemon"
	"wakeprime/internal/doctor"
	"wakeprime/internal/power"
	"wakeprime/internal/reset"
	"wakeprime/internal/runner"
	"wakeprime/internal/scheduler"
	"wakeprime/internal/state"
	"wakeprime/internal/window"
)

type Options struct {
	ConfigPath string
	Runner     runner.Runner
}

type Service struct {
	ConfigPath string
	Config     config.Config
	StateRoot  string
	Location   *time.Location
	Schedule   window.Schedule

	Audit     *audit.Logger
	Runner    runner.Runner
	Assistant *assistant.Client
	Keeper    *power.Keeper
	Prober    *reset.Prober
	Doctor    *doctor.Service
	Scheduler *scheduler.Manager
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	_, statErr := os.Stat(configPath)
	configDefaulted := os.IsNotExist(statErr)
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}
	root, err := config.ResolveStorageRoot(cfg)
	if err != nil {
		return nil, fmt.Errorf("CFG_STORAGE: %w", err)
	}
	logPath, err := config.LogPath(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("CFG_LOGGING: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("CFG_TIMEZONE: %w", err)
	}
	sched, err := buildSchedule(cfg, loc)
	if err != nil {
		return nil, err
	}

	run := opts.Runner
	if run == nil {
		run = runner.New()
	}
	logger := audit.New(logPath)

	client := assistant.New(run, logger)
	client.Command = cfg.Assistant.Command
	client.Model = cfg.Kickoff.Model
	client.Timeout = duration(cfg.Assistant.Timeout, 60*time.Second)
	client.MinVersion = cfg.Assistant.MinVersion

	prober := &reset.Prober{
		Runner:       run,
		Audit:        logger,
		Command:      cfg.Monitor.Command,
		Args:         cfg.Monitor.Args,
		Timeout:      duration(cfg.Monitor.Timeout, 20*time.Second),
		BackoffStart: duration(cfg.Monitor.BackoffStart, 2*time.Second),
		BackoffMax:   duration(cfg.Monitor.BackoffMax, time.Minute),
		Fallback:     duration(cfg.Monitor.Fallback, 5*time.Hour),
		Now:          func() time.Time { return time.Now().In(loc) },
	}

	svc := &Service{
		ConfigPath: configPath,
		Config:     cfg,
		StateRoot:  root,
		Location:   loc,
		Schedule:   sched,
		Audit:      logger,
		Runner:     run,
		Assistant:  client,
		Keeper:     power.NewKeeper(run, logger),
		Prober:     prober,
		Scheduler:  scheduler.New(),
	}
	svc.Doctor = &doctor.Service{
		ConfigPath:      configPath,
		StateRoot:       root,
		Assistant:       client,
		Monitor:         cfg.Monitor.Command,
		Scheduler:       svc.Scheduler,
		ConfigDefaulted: configDefaulted,
	}
	return svc, nil
}

func buildSchedule(cfg config.Config, loc *time.Location) (window.Schedule, error) {
	start, err := window.ParseClock(cfg.Window.Start)
	if err != nil {
		return window.Schedule{}, err
	}
	end, err := window.ParseClock(cfg.Window.End)
	if err != nil {
		return window.Schedule{}, err
	}
	days, err := window.ParseDays(cfg.Window.Days)
	if err != nil {
		return window.Schedule{}, err
	}
	return window.Schedule{Start: start, End: end, Days: days, Cron: cfg.Window.Cron, Loc: loc}, nil
}

// RunDaemon starts the control loop and blocks until ctx is canceled.
func (s *Service) RunDaemon(ctx context.Context) error {
	d := &daemon.Daemon{
		Schedule:    s.Schedule,
		Audit:       s.Audit,
		Keeper:      s.Keeper,
		Assistant:   s.Assistant,
		Prober:      s.Prober,
		StateRoot:   s.StateRoot,
		Prompt:      s.Config.Kickoff.Prompt,
		KeepAwake:   s.Config.Power.KeepAwake,
		PreWake:     duration(s.Config.Power.PreWake, 2*time.Minute),
		ResetBuffer: duration(s.Config.Monitor.ResetBuffer, 3*time.Second),
		ForceSleep:  s.Config.Power.ForceSleepAtEnd,
	}
	return d.Run(ctx)
}

// Kickoff sends one prompt immediately, outside the loop.
func (s *Service) Kickoff(ctx context.Context, prompt string) error {
	if prompt == "" {
		prompt = s.Config.Kickoff.Prompt
	}
	return s.Assistant.Send(ctx, prompt)
}

// NextReset probes the monitor once through the full backoff chain.
func (s *Service) NextReset(ctx context.Context) (reset.Estimate, error) {
	return s.Prober.Next(ctx)
}

// StatusReport is the `status` command payload.
type StatusReport struct {
	Running   bool             `json:"running"`
	PID       int              `json:"pid,omitempty"`
	Window    string           `json:"window"`
	Days      string           `json:"days"`
	Timezone  string           `json:"timezone"`
	State     state.State      `json:"state"`
	Scheduler scheduler.Result `json:"scheduler"`
}

func (s *Service) Status() (StatusReport, error) {
	running, pid, err := daemon.CheckPIDFile(daemon.PIDPath(s.StateRoot))
	if err != nil {
		return StatusReport{}, err
	}
	st, err := state.Load(s.StateRoot)
	if err != nil {
		return StatusReport{}, err
	}
	sched, err := s.Scheduler.List()
	if err != nil {
		// Unsupported OS for service install; status still works.
		sched = scheduler.Result{Backend: "none", Mode: "off"}
	}
	return StatusReport{
		Running:   running,
		PID:       pid,
		Window:    s.Schedule.Start.String() + "-" + s.Schedule.End.String(),
		Days:      s.Config.Window.Days,
		Timezone:  s.Config.Timezone,
		State:     st,
		Scheduler: sched,
	}, nil
}

func (s *Service) DoctorRun(ctx context.Context) doctor.Report {
	return s.Doctor.Run(ctx)
}

func (s *Service) ScheduleInstall(ctx context.Context) (scheduler.Result, error) {
	return s.Scheduler.Install(ctx)
}

func (s *Service) ScheduleRemove(ctx context.Context) (scheduler.Result, error) {
	return s.Scheduler.Remove(ctx)
}

func (s *Service) ScheduleList() (scheduler.Result, error) {
	return s.Scheduler.List()
}

// duration parses a config duration that Validate already vetted; def
// covers callers constructed without going through Validate.
func duration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return def
	}
	return d
}
