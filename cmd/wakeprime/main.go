package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wakeprime/internal/app"
	"wakeprime/internal/config"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var jsonOutput bool

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: configPath})
	}

	cmd := &cobra.Command{
		Use:           "wakeprime",
		Short:         "Keep the machine awake and re-prime the assistant after quota resets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newRunCmd(newSvc))
	cmd.AddCommand(newKickCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newNextResetCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newStatusCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newConfigCmd(newSvc, &configPath, &jsonOutput))
	cmd.AddCommand(newScheduleCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}

func newRunCmd(newSvc func() (*app.Service, error)) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"daemon", "start"},
		Short:   "Run the active-window daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return svc.RunDaemon(ctx)
		},
	}
}

func newKickCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:     "kick",
		Aliases: []string{"prime", "ping"},
		Short:   "Send one prompt to the assistant now",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if err := svc.Kickoff(cmd.Context(), prompt); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"sent": "ok"}, "prompt sent")
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to send (default: kickoff prompt from config)")
	return cmd
}

func newNextResetCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "next-reset",
		Aliases: []string{"reset"},
		Short:   "Probe the monitor for the next quota reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			est, err := svc.NextReset(cmd.Context())
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("next reset %s", est.At.Format(time.RFC3339))
			if est.Fallback {
				msg += " (fallback estimate)"
			}
			return print(*jsonOutput, est, msg)
		},
	}
}

func newStatusCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and schedule status",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report, err := svc.Status()
			if err != nil {
				return err
			}
			runningText := "stopped"
			if report.Running {
				runningText = fmt.Sprintf("running (pid %d)", report.PID)
			}
			msg := fmt.Sprintf("daemon: %s\nwindow: %s %s (%s)\nservice: %s/%s",
				runningText, report.Window, report.Days, report.Timezone,
				report.Scheduler.Backend, report.Scheduler.Mode)
			if !report.State.LastKickoff.IsZero() {
				msg += "\nlast kickoff: " + report.State.LastKickoff.Format(time.RFC3339)
			}
			if !report.State.LastReset.IsZero() {
				msg += "\nlast reset: " + report.State.LastReset.Format(time.RFC3339)
				if report.State.LastResetGuess {
					msg += " (fallback)"
				}
			}
			return print(*jsonOutput, report, msg)
		},
	}
}

func newDoctorCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag", "checkup"},
		Short:   "Run diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report := svc.DoctorRun(cmd.Context())
			msg := "healthy"
			if !report.Healthy {
				msg = "unhealthy"
			}
			for _, f := range report.Findings {
				msg += fmt.Sprintf("\n[%s] %s: %s", f.Level, f.Code, f.Message)
			}
			if err := print(*jsonOutput, report, msg); err != nil {
				return err
			}
			if !report.Healthy {
				return &exitError{code: 1, msg: "doctor found errors"}
			}
			return nil
		},
	}
}

func newConfigCmd(newSvc func() (*app.Service, error), configPath *string, jsonOutput *bool) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Manage configuration"}

	showCmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"view", "cat"},
		Short:   "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			blob, err := json.MarshalIndent(svc.Config, "", "  ")
			if err != nil {
				return err
			}
			return print(*jsonOutput, svc.Config, string(blob))
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("CFG_EXISTS: %s already exists", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"path": path}, "wrote "+path)
		},
	}

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(initCmd)
	return configCmd
}

func newScheduleCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"sched", "service"},
		Short:   "Manage the login service that keeps the daemon running",
	}

	installCmd := &cobra.Command{
		Use:     "install",
		Aliases: []string{"add", "enable", "on"},
		Short:   "Install the daemon as a login service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.ScheduleInstall(cmd.Context())
			if err != nil {
				return err
			}
			return print(*jsonOutput, res, fmt.Sprintf("installed %s service", res.Backend))
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "disable", "off"},
		Short:   "Remove the login service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.ScheduleRemove(cmd.Context())
			if err != nil {
				return err
			}
			return print(*jsonOutput, res, fmt.Sprintf("removed %s service", res.Backend))
		},
	}

	statusCmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"list", "ls"},
		Short:   "Show login service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.ScheduleList()
			if err != nil {
				return err
			}
			return print(*jsonOutput, res, fmt.Sprintf("service %s mode=%s installed=%t", res.Backend, res.Mode, res.Installed))
		},
	}

	scheduleCmd.AddCommand(installCmd)
	scheduleCmd.AddCommand(removeCmd)
	scheduleCmd.AddCommand(statusCmd)
	return scheduleCmd
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
