// Package systemd is a client for systemctl. Units are addressed by scope
// ("user" or "system") and name; the user scope adds --user to every call,
// keeping comfyctl free of root requirements.
package systemd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"comfyctl/internal/execx"
	"comfyctl/pkg/logging"
)

const systemdSubsystem = "Systemd"

const (
	queryTimeout  = 15 * time.Second
	actionTimeout = 30 * time.Second
)

// Client drives systemctl.
type Client struct {
	runner execx.Runner
}

// NewClient creates a systemctl client.
func NewClient(runner execx.Runner) *Client {
	return &Client{runner: runner}
}

func (c *Client) run(ctx context.Context, scope string, timeout time.Duration, args ...string) (execx.Result, error) {
	base := []string{}
	if scope == "user" {
		base = append(base, "--user")
	}
	return c.runner.Run(ctx, execx.Spec{
		Name:    "systemctl",
		Args:    append(base, args...),
		Timeout: timeout,
	})
}

// IsActive returns the unit's activation state. It mirrors the dashboard's
// probe: the trimmed stdout on success, otherwise whatever systemctl said,
// or "unknown" when it said nothing.
func (c *Client) IsActive(ctx context.Context, scope, name string) string {
	res, err := c.run(ctx, scope, queryTimeout, "is-active", name)
	if err != nil {
		logging.Debug(systemdSubsystem, "is-active %s failed: %v", name, err)
	}

	out := strings.TrimSpace(res.Stdout)
	if err == nil && res.ExitCode == 0 {
		return out
	}
	if out != "" {
		return out
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		return errOut
	}
	return "unknown"
}

// IsKnown reports whether the unit is known to the service manager. The
// answer comes from list-unit-files, never from looking at the filesystem.
func (c *Client) IsKnown(ctx context.Context, scope, name string) bool {
	res, err := c.run(ctx, scope, queryTimeout, "list-unit-files", name)
	if err != nil || res.ExitCode != 0 {
		return false
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == name {
			return true
		}
	}
	return false
}

// Start starts the unit.
func (c *Client) Start(ctx context.Context, scope, name string) error {
	return c.action(ctx, scope, "start", name)
}

// Stop stops the unit.
func (c *Client) Stop(ctx context.Context, scope, name string) error {
	return c.action(ctx, scope, "stop", name)
}

// Restart restarts the unit.
func (c *Client) Restart(ctx context.Context, scope, name string) error {
	return c.action(ctx, scope, "restart", name)
}

// Enable enables the unit.
func (c *Client) Enable(ctx context.Context, scope, name string) error {
	return c.action(ctx, scope, "enable", name)
}

// Disable disables the unit.
func (c *Client) Disable(ctx context.Context, scope, name string) error {
	return c.action(ctx, scope, "disable", name)
}

func (c *Client) action(ctx context.Context, scope, verb, name string) error {
	logging.Debug(systemdSubsystem, "systemctl %s %s (%s scope)", verb, name, scope)

	res, err := c.run(ctx, scope, actionTimeout, verb, name)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", verb, name, err)
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		return fmt.Errorf("systemctl %s %s failed (exit %d): %s", verb, name, res.ExitCode, detail)
	}
	return nil
}

// DaemonReload makes the manager re-read its unit files.
func (c *Client) DaemonReload(ctx context.Context, scope string) error {
	logging.Debug(systemdSubsystem, "systemctl daemon-reload (%s scope)", scope)

	res, err := c.run(ctx, scope, actionTimeout, "daemon-reload")
	if err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("systemctl daemon-reload failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
