package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wakeprime/internal/assistant"
	"wakeprime/internal/config"
	"wakeprime/internal/runner"
)

type versionRunner struct{ stdout string }

func (r versionRunner) Run(ctx context.Context, name string, args ...string) (runner.Output, error) {
	return runner.Output{Stdout: r.stdout}, nil
}

func (r versionRunner) Start(name string, args ...string) (runner.Handle, error) {
	panic("not used")
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testClient(stdout string) *assistant.Client {
	c := assistant.New(versionRunner{stdout: stdout}, nil)
	c.OSName = "linux"
	c.Timeout = time.Second
	return c
}

func allFound(string) (string, error) { return "/usr/bin/tool", nil }

func findingCodes(r Report) map[string]string {
	codes := map[string]string{}
	for _, f := range r.Findings {
		codes[f.Code] = f.Level
	}
	return codes
}

func TestDoctorHealthy(t *testing.T) {
	s := &Service{
		ConfigPath: writeConfig(t),
		StateRoot:  t.TempDir(),
		Assistant:  testClient("1.2.3"),
		Monitor:    "claude-monitor",
		OSName:     "linux",
		LookPath:   allFound,
	}
	report := s.Run(context.Background())
	if !report.Healthy {
		t.Fatalf("expected healthy report: %+v", report)
	}
	if len(report.Findings) != 0 {
		t.Fatalf("expected no findings: %+v", report.Findings)
	}
}

func TestDoctorMissingConfig(t *testing.T) {
	s := &Service{
		ConfigPath: filepath.Join(t.TempDir(), "nope.toml"),
		StateRoot:  t.TempDir(),
		OSName:     "linux",
		LookPath:   allFound,
	}
	report := s.Run(context.Background())
	if report.Healthy {
		t.Fatalf("expected unhealthy report")
	}
	if _, ok := findingCodes(report)["DOC_CONFIG_MISSING"]; !ok {
		t.Fatalf("expected DOC_CONFIG_MISSING: %+v", report.Findings)
	}
}

func TestDoctorReportsDefaultedConfig(t *testing.T) {
	s := &Service{
		ConfigPath:      writeConfig(t),
		StateRoot:       t.TempDir(),
		OSName:          "linux",
		LookPath:        allFound,
		ConfigDefaulted: true,
	}
	report := s.Run(context.Background())
	if findingCodes(report)["DOC_CONFIG_DEFAULTED"] != "warn" {
		t.Fatalf("expected DOC_CONFIG_DEFAULTED warn: %+v", report.Findings)
	}
	if !report.Healthy {
		t.Fatalf("freshly written defaults should stay healthy: %+v", report.Findings)
	}
}

func TestDoctorMissingBinaries(t *testing.T) {
	missing := errors.New("not found")
	s := &Service{
		ConfigPath: writeConfig(t),
		StateRoot:  t.TempDir(),
		Assistant:  testClient("1.2.3"),
		Monitor:    "claude-monitor",
		OSName:     "darwin",
		LookPath: func(name string) (string, error) {
			if name == "claude" || name == "claude-monitor" {
				return "", missing
			}
			return "/usr/bin/" + name, nil
		},
	}
	report := s.Run(context.Background())
	codes := findingCodes(report)
	if codes["AST_BIN_MISSING"] != "error" {
		t.Fatalf("expected AST_BIN_MISSING error: %+v", report.Findings)
	}
	// A missing monitor degrades to the fallback estimate, so warn only.
	if codes["MON_BIN_MISSING"] != "warn" {
		t.Fatalf("expected MON_BIN_MISSING warn: %+v", report.Findings)
	}
	if report.Healthy {
		t.Fatalf("expected unhealthy report")
	}
}

func TestDoctorVersionBelowMinimumWarns(t *testing.T) {
	client := testClient("1.0.0")
	client.MinVersion = "2.0.0"
	s := &Service{
		ConfigPath: writeConfig(t),
		StateRoot:  t.TempDir(),
		Assistant:  client,
		OSName:     "linux",
		LookPath:   allFound,
	}
	report := s.Run(context.Background())
	codes := findingCodes(report)
	if codes["AST_VERSION"] != "warn" {
		t.Fatalf("expected AST_VERSION warn: %+v", report.Findings)
	}
	if !report.Healthy {
		t.Fatalf("warns alone should stay healthy: %+v", report.Findings)
	}
}

func TestDoctorMissingPowerTool(t *testing.T) {
	s := &Service{
		ConfigPath: writeConfig(t),
		StateRoot:  t.TempDir(),
		OSName:     "darwin",
		LookPath: func(name string) (string, error) {
			if name == "caffeinate" {
				return "", errors.New("not found")
			}
			return "/usr/bin/" + name, nil
		},
	}
	report := s.Run(context.Background())
	if findingCodes(report)["PWR_TOOL_MISSING"] != "warn" {
		t.Fatalf("expected PWR_TOOL_MISSING warn: %+v", report.Findings)
	}
}
