// Package doctor diagnoses the environment the daemon depends on: config,
// state, the assistant and monitor binaries, and the platform power tools.
package doctor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"wakeprime/internal/assistant"
	"wakeprime/internal/config"
	"wakeprime/internal/scheduler"
	"wakeprime/internal/state"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

type Service struct {
	ConfigPath string
	StateRoot  string
	Assistant  *assistant.Client
	Monitor    string
	OSName     string
	Scheduler  *scheduler.Manager

	// ConfigDefaulted records that the config file was absent and a
	// default one was written on startup.
	ConfigDefaulted bool

	// LookPath is swappable in tests; nil means exec.LookPath.
	LookPath func(string) (string, error)
}

func (s *Service) Run(ctx context.Context) Report {
	findings := []Finding{}
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	osName := s.OSName
	if osName == "" {
		osName = runtime.GOOS
	}

	if s.ConfigDefaulted {
		findings = append(findings, Finding{
			Code:    "DOC_CONFIG_DEFAULTED",
			Level:   "warn",
			Message: "config file was missing; defaults written to " + s.ConfigPath,
		})
	}
	if _, err := config.Load(s.ConfigPath); err != nil {
		code := "DOC_CONFIG_INVALID"
		if errors.Is(err, os.ErrNotExist) {
			code = "DOC_CONFIG_MISSING"
		}
		findings = append(findings, Finding{Code: code, Level: "error", Message: err.Error()})
	}

	if s.StateRoot != "" {
		if _, err := state.Load(s.StateRoot); err != nil {
			findings = append(findings, Finding{Code: "DOC_STATE_INVALID", Level: "error", Message: err.Error()})
		}
		probe := filepath.Join(s.StateRoot, ".doctor-probe")
		if err := os.MkdirAll(s.StateRoot, 0o755); err != nil {
			findings = append(findings, Finding{Code: "DOC_ROOT_UNWRITABLE", Level: "error", Message: err.Error()})
		} else if err := os.WriteFile(probe, nil, 0o644); err != nil {
			findings = append(findings, Finding{Code: "DOC_ROOT_UNWRITABLE", Level: "error", Message: err.Error()})
		} else {
			_ = os.Remove(probe)
		}
	}

	if s.Assistant != nil {
		bin := s.Assistant.Binary()
		if _, err := lookPath(bin); err != nil {
			findings = append(findings, Finding{Code: "AST_BIN_MISSING", Level: "error", Message: bin + " not found on PATH"})
		} else if err := s.Assistant.CheckVersion(ctx); err != nil {
			findings = append(findings, Finding{Code: "AST_VERSION", Level: "warn", Message: err.Error()})
		}
	}

	if s.Monitor != "" {
		if _, err := lookPath(s.Monitor); err != nil {
			// The probe falls back to now+5h without the monitor, so this
			// degrades accuracy rather than breaking the loop.
			findings = append(findings, Finding{Code: "MON_BIN_MISSING", Level: "warn", Message: s.Monitor + " not found on PATH"})
		}
	}

	if s.Scheduler != nil {
		if res, err := s.Scheduler.List(); err == nil && res.Installed {
			if exe, ok := s.Scheduler.InstalledExec(); ok {
				if current, err := os.Executable(); err == nil && exe != current {
					findings = append(findings, Finding{
						Code:    "SCH_STALE_EXEC",
						Level:   "warn",
						Message: "installed service points at " + exe + ", current binary is " + current,
					})
				}
			}
		}
	}

	if tool := powerTool(osName); tool != "" {
		if _, err := lookPath(tool); err != nil {
			findings = append(findings, Finding{Code: "PWR_TOOL_MISSING", Level: "warn", Message: tool + " not found on PATH"})
		}
	}

	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	return Report{Healthy: healthy, Findings: findings}
}

func powerTool(osName string) string {
	switch osName {
	case "darwin":
		return "caffeinate"
	case "linux":
		return "systemd-inhibit"
	case "windows":
		return "powercfg"
	default:
		return ""
	}
}
