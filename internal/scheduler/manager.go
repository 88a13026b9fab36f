// Package scheduler installs the wakeprime daemon as a login service so
// it survives reboots: a launchd agent on darwin, a systemd user service
// on linux.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

type Result struct {
	Backend   string   `json:"backend"`
	Mode      string   `json:"mode"`
	Installed bool     `json:"installed"`
	Files     []string `json:"files,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (r execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return nil
}

type Manager struct {
	home        string
	osName      string
	runner      Runner
	runCommands bool
}

func New() *Manager {
	home, _ := os.UserHomeDir()
	runCommands := true
	if os.Getenv("WAKEPRIME_SCHEDULER_SKIP_COMMANDS") == "1" {
		runCommands = false
	}
	return &Manager{home: home, osName: runtime.GOOS, runner: execRunner{}, runCommands: runCommands}
}

func (m *Manager) withOverrideRoot() string {
	return os.Getenv("WAKEPRIME_SCHEDULER_ROOT")
}

func (m *Manager) Install(ctx context.Context) (Result, error) {
	switch m.osName {
	case "darwin":
		return m.installLaunchd(ctx)
	case "linux":
		return m.installSystemd(ctx)
	default:
		return Result{}, fmt.Errorf("SCH_BACKEND: unsupported OS %q", m.osName)
	}
}

func (m *Manager) Remove(ctx context.Context) (Result, error) {
	switch m.osName {
	case "darwin":
		return m.removeLaunchd(ctx)
	case "linux":
		return m.removeSystemd(ctx)
	default:
		return Result{}, fmt.Errorf("SCH_BACKEND: unsupported OS %q", m.osName)
	}
}

func (m *Manager) List() (Result, error) {
	switch m.osName {
	case "darwin":
		return m.listLaunchd(), nil
	case "linux":
		return m.listSystemd(), nil
	default:
		return Result{}, fmt.Errorf("SCH_BACKEND: unsupported OS %q", m.osName)
	}
}

func (m *Manager) daemonExecutable() string {
	if p := os.Getenv("WAKEPRIME_SCHEDULER_EXEC"); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return "wakeprime"
	}
	return exe
}

func (m *Manager) launchAgentsDir() string {
	if root := m.withOverrideRoot(); root != "" {
		return filepath.Join(root, "LaunchAgents")
	}
	return filepath.Join(m.home, "Library", "LaunchAgents")
}

func (m *Manager) launchdPlistPath() string {
	return filepath.Join(m.launchAgentsDir(), "com.wakeprime.daemon.plist")
}

func (m *Manager) installLaunchd(ctx context.Context) (Result, error) {
	plist := m.launchdPlistPath()
	if err := os.MkdirAll(filepath.Dir(plist), 0o755); err != nil {
		return Result{}, err
	}
	exe := m.daemonExecutable()
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>Label</key><string>com.wakeprime.daemon</string>
  <key>ProgramArguments</key>
  <array>
    <string>%s</string>
    <string>run</string>
  </array>
  <key>RunAtLoad</key><true/>
  <key>KeepAlive</key><true/>
  <key>StandardOutPath</key><string>%s</string>
  <key>StandardErrorPath</key><string>%s</string>
</dict>
</plist>
`, xmlEscape(exe), filepath.Join(m.launchAgentsDir(), "wakeprime-daemon.log"), filepath.Join(m.launchAgentsDir(), "wakeprime-daemon.err.log"))
	if err := os.WriteFile(plist, []byte(content), 0o644); err != nil {
		return Result{}, err
	}
	res := Result{Backend: "launchd", Mode: "login", Installed: true, Files: []string{plist}}
	if m.runCommands && m.withOverrideRoot() == "" {
		_ = m.runner.Run(ctx, "launchctl", "unload", plist)
		if err := m.runner.Run(ctx, "launchctl", "load", plist); err != nil {
			res.Notes = append(res.Notes, "launchctl load failed: "+err.Error())
		}
	} else {
		res.Notes = append(res.Notes, "scheduler commands skipped")
	}
	return res, nil
}

func (m *Manager) removeLaunchd(ctx context.Context) (Result, error) {
	plist := m.launchdPlistPath()
	res := Result{Backend: "launchd", Mode: "off", Installed: false, Files: []string{plist}}
	if m.runCommands && m.withOverrideRoot() == "" {
		_ = m.runner.Run(ctx, "launchctl", "unload", plist)
	} else {
		res.Notes = append(res.Notes, "scheduler commands skipped")
	}
	if err := os.Remove(plist); err != nil && !os.IsNotExist(err) {
		return Result{}, err
	}
	return res, nil
}

func (m *Manager) listLaunchd() Result {
	plist := m.launchdPlistPath()
	_, err := os.Stat(plist)
	installed := err == nil
	res := Result{Backend: "launchd", Installed: installed, Files: []string{plist}, Mode: "off"}
	if installed {
		res.Mode = "login"
	}
	return res
}

func (m *Manager) systemdDir() string {
	if root := m.withOverrideRoot(); root != "" {
		return filepath.Join(root, "systemd", "user")
	}
	return filepath.Join(m.home, ".config", "systemd", "user")
}

func (m *Manager) systemdServicePath() string {
	return filepath.Join(m.systemdDir(), "wakeprime.service")
}

func (m *Manager) installSystemd(ctx context.Context) (Result, error) {
	dir := m.systemdDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, err
	}
	exe := m.daemonExecutable()
	service := fmt.Sprintf(`[Unit]
Description=wakeprime active-window daemon

[Service]
ExecStart=%s run
Restart=on-failure
RestartSec=30

[Install]
WantedBy=default.target
`, shellEscape(exe))
	servicePath := m.systemdServicePath()
	if err := os.WriteFile(servicePath, []byte(service), 0o644); err != nil {
		return Result{}, err
	}
	res := Result{Backend: "systemd", Mode: "login", Installed: true, Files: []string{servicePath}}
	if m.runCommands && m.withOverrideRoot() == "" {
		if err := m.runner.Run(ctx, "systemctl", "--user", "daemon-reload"); err != nil {
			res.Notes = append(res.Notes, "systemctl daemon-reload failed: "+err.Error())
		}
		if err := m.runner.Run(ctx, "systemctl", "--user", "enable", "--now", "wakeprime.service"); err != nil {
			res.Notes = append(res.Notes, "systemctl enable --now failed: "+err.Error())
		}
	} else {
		res.Notes = append(res.Notes, "scheduler commands skipped")
	}
	return res, nil
}

func (m *Manager) removeSystemd(ctx context.Context) (Result, error) {
	servicePath := m.systemdServicePath()
	res := Result{Backend: "systemd", Mode: "off", Installed: false, Files: []string{servicePath}}
	if m.runCommands && m.withOverrideRoot() == "" {
		_ = m.runner.Run(ctx, "systemctl", "--user", "disable", "--now", "wakeprime.service")
		_ = m.runner.Run(ctx, "systemctl", "--user", "daemon-reload")
	} else {
		res.Notes = append(res.Notes, "scheduler commands skipped")
	}
	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		return Result{}, err
	}
	return res, nil
}

func (m *Manager) listSystemd() Result {
	servicePath := m.systemdServicePath()
	_, err := os.Stat(servicePath)
	installed := err == nil
	res := Result{Backend: "systemd", Installed: installed, Files: []string{servicePath}, Mode: "off"}
	if installed {
		res.Mode = "login"
	}
	return res
}

var execStartPattern = regexp.MustCompile(`(?m)^ExecStart=(.+)$`)

// InstalledExec reports the executable recorded in the installed service.
// A mismatch with the current binary means the install is stale.
func (m *Manager) InstalledExec() (string, bool) {
	var path string
	switch m.osName {
	case "darwin":
		path = m.launchdPlistPath()
	case "linux":
		path = m.systemdServicePath()
	default:
		return "", false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if m.osName == "linux" {
		match := execStartPattern.FindStringSubmatch(string(content))
		if match == nil {
			return "", false
		}
		fields := strings.Fields(match[1])
		if len(fields) == 0 {
			return "", false
		}
		exe := fields[0]
		if unq, err := strconv.Unquote(exe); err == nil {
			exe = unq
		}
		return exe, true
	}
	re := regexp.MustCompile(`<string>([^<]+)</string>`)
	match := re.FindStringSubmatch(string(content))
	if match == nil {
		return "", false
	}
	return match[1], true
}

func xmlEscape(v string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "'", "&apos;")
	return r.Replace(v)
}

func shellEscape(v string) string {
	if strings.ContainsAny(v, " \t\n\"'") {
		return strconv.Quote(v)
	}
	return v
}
