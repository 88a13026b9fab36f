// Package assistant invokes the external command-line assistant: the
// kickoff/re-prime prompt sends and the version probe the doctor uses.
package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"wakeprime/internal/audit"
	"wakeprime/internal/runner"
)

// Client shells out to the assistant CLI.
type Client struct {
	Runner     runner.Runner
	Audit      *audit.Logger
	Command    string
	Model      string
	Timeout    time.Duration
	MinVersion string
	OSName     string
}

func New(r runner.Runner, log *audit.Logger) *Client {
	return &Client{Runner: r, Audit: log, Command: "claude", Timeout: 60 * time.Second, OSName: runtime.GOOS}
}

// Binary resolves the executable to invoke. Scheduled-task environments on
// windows often lack the npm shim directory on PATH, so the known install
// location is preferred when it exists.
func (c *Client) Binary() string {
	if c.OSName != "windows" || c.Command != "claude" {
		return c.Command
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		shim := filepath.Join(appData, "npm", "claude.cmd")
		if _, err := os.Stat(shim); err == nil {
			return shim
		}
	}
	return c.Command
}

// Send delivers one prompt. A non-zero exit is reported as an error but
// callers treat it as non-fatal; the daemon retries at the next reset.
func (c *Client) Send(ctx context.Context, prompt string) error {
	args := []string{"-p", prompt, "--output-format", "json"}
	if m := strings.TrimSpace(c.Model); m != "" && !strings.EqualFold(m, "default") {
		args = append(args, "--model", m)
	}
	bin := c.Binary()
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	out, err := c.Runner.Run(ctx, bin, args...)

	c.Audit.Op("send_assistant", map[string]string{
		"rc":     strconv.Itoa(out.Code),
		"cmd":    bin + " " + strings.Join(args, " "),
		"stdout": tail(out.Stdout, 3000),
		"stderr": tail(out.Stderr, 1000),
	})
	if err != nil {
		return fmt.Errorf("AST_EXEC: %w", err)
	}
	if out.Code != 0 {
		return fmt.Errorf("AST_EXIT: assistant exited with code %d", out.Code)
	}
	return nil
}

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// Version runs `<bin> --version` and extracts a semver string.
func (c *Client) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	out, err := c.Runner.Run(ctx, c.Binary(), "--version")
	if err != nil {
		return "", fmt.Errorf("AST_EXEC: %w", err)
	}
	m := versionPattern.FindStringSubmatch(out.Combined())
	if m == nil {
		return "", fmt.Errorf("AST_VERSION_PARSE: no version in %q", strings.TrimSpace(out.Combined()))
	}
	return m[1], nil
}

// CheckVersion enforces the configured minimum assistant version. A blank
// minimum disables the check.
func (c *Client) CheckVersion(ctx context.Context) error {
	min := strings.TrimSpace(c.MinVersion)
	if min == "" {
		return nil
	}
	if !semver.IsValid("v" + strings.TrimPrefix(min, "v")) {
		return fmt.Errorf("AST_VERSION_MIN: invalid min_version %q", c.MinVersion)
	}
	got, err := c.Version(ctx)
	if err != nil {
		return err
	}
	if semver.Compare("v"+got, "v"+strings.TrimPrefix(min, "v")) < 0 {
		return fmt.Errorf("AST_VERSION_OLD: have %s, need >= %s", got, min)
	}
	return nil
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
