// Package conda is a client for the conda CLI. It covers the handful of
// operations comfyctl needs: version probing, environment listing and
// creation, dependency installation, and running commands inside an
// environment.
package conda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"comfyctl/internal/execx"
	"comfyctl/pkg/logging"
)

const condaSubsystem = "Conda"

// autoAcceptTOS pre-accepts the Anaconda channel terms so no conda call ever
// blocks on an interactive prompt.
const autoAcceptTOS = "CONDA_PLUGINS_AUTO_ACCEPT_TOS=yes"

// Per-operation timeouts. conda has a slow interpreter startup, and solving
// an environment can legitimately take minutes.
const (
	versionTimeout = 30 * time.Second
	listTimeout    = 30 * time.Second
	createTimeout  = 10 * time.Minute
	removeTimeout  = 10 * time.Minute
	installTimeout = 10 * time.Minute
	initTimeout    = 30 * time.Second
	probeTimeout   = 8 * time.Second
	importTimeout  = 60 * time.Second
)

// Env is one conda environment.
type Env struct {
	Name   string
	Prefix string
}

// Client drives a specific conda binary.
type Client struct {
	binary string
	runner execx.Runner
}

// NewClient creates a client for the given conda binary path.
func NewClient(binary string, runner execx.Runner) *Client {
	return &Client{binary: binary, runner: runner}
}

// Binary returns the conda binary path this client drives.
func (c *Client) Binary() string {
	return c.binary
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (execx.Result, error) {
	return c.runner.Run(ctx, execx.Spec{
		Name:    c.binary,
		Args:    args,
		Env:     []string{autoAcceptTOS},
		Timeout: timeout,
	})
}

func commandFailed(action string, res execx.Result) error {
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(res.Stdout)
	}
	return fmt.Errorf("%s failed (exit %d): %s", action, res.ExitCode, detail)
}

// Version reports the conda version string, e.g. "24.11.3".
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.run(ctx, versionTimeout, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to query conda version: %w", err)
	}
	if res.ExitCode != 0 {
		return "", commandFailed("conda --version", res)
	}

	// Output has the form "conda 24.11.3".
	fields := strings.Fields(res.Stdout)
	if len(fields) == 0 {
		return "", fmt.Errorf("conda --version produced no output")
	}
	return fields[len(fields)-1], nil
}

// ListEnvs returns all environments known to conda. The JSON listing is
// preferred; when it cannot be produced or parsed the plain-text listing is
// parsed instead.
func (c *Client) ListEnvs(ctx context.Context) ([]Env, error) {
	res, err := c.run(ctx, listTimeout, "env", "list", "--json")
	if err == nil && res.ExitCode == 0 {
		envs, parseErr := parseEnvListJSON(res.Stdout)
		if parseErr == nil {
			return envs, nil
		}
		logging.Debug(condaSubsystem, "JSON env listing unusable (%v), falling back to text output", parseErr)
	}

	res, err = c.run(ctx, listTimeout, "env", "list")
	if err != nil {
		return nil, fmt.Errorf("failed to list conda environments: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, commandFailed("conda env list", res)
	}
	return parseEnvListText(res.Stdout), nil
}

// EnvExists reports whether an environment with the given name exists.
func (c *Client) EnvExists(ctx context.Context, name string) (bool, error) {
	envs, err := c.ListEnvs(ctx)
	if err != nil {
		return false, err
	}
	for _, env := range envs {
		if env.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateEnv creates an environment with a pinned Python version.
func (c *Client) CreateEnv(ctx context.Context, name, pythonVersion string) error {
	logging.Info(condaSubsystem, "Creating environment %s (python=%s)", name, pythonVersion)

	res, err := c.run(ctx, createTimeout, "create", "-n", name, "python="+pythonVersion, "-y")
	if err != nil {
		return fmt.Errorf("failed to create environment %s: %w", name, err)
	}
	if res.ExitCode != 0 {
		return commandFailed("conda create", res)
	}
	return nil
}

// RemoveEnv deletes an environment and everything in it.
func (c *Client) RemoveEnv(ctx context.Context, name string) error {
	logging.Info(condaSubsystem, "Removing environment %s", name)

	res, err := c.run(ctx, removeTimeout, "env", "remove", "-n", name, "-y")
	if err != nil {
		return fmt.Errorf("failed to remove environment %s: %w", name, err)
	}
	if res.ExitCode != 0 {
		return commandFailed("conda env remove", res)
	}
	return nil
}

// RunIn executes a command inside the named environment via conda run.
func (c *Client) RunIn(ctx context.Context, envName string, timeout time.Duration, args ...string) (execx.Result, error) {
	runArgs := append([]string{"run", "-n", envName}, args...)
	return c.run(ctx, timeout, runArgs...)
}

// PipInstall installs the given pip packages into the environment.
func (c *Client) PipInstall(ctx context.Context, envName string, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	logging.Info(condaSubsystem, "Installing into %s: %s", envName, strings.Join(packages, " "))

	args := append([]string{"python", "-m", "pip", "install"}, packages...)
	res, err := c.RunIn(ctx, envName, installTimeout, args...)
	if err != nil {
		return fmt.Errorf("failed to install %s: %w", strings.Join(packages, " "), err)
	}
	if res.ExitCode != 0 {
		return commandFailed("pip install", res)
	}
	return nil
}

// CheckImport reports whether the module imports cleanly in the environment.
func (c *Client) CheckImport(ctx context.Context, envName, module string) bool {
	res, err := c.RunIn(ctx, envName, importTimeout, "python", "-c", "import "+module)
	return err == nil && res.ExitCode == 0
}

// ProbePython runs python -V inside the environment. The environment is
// healthy when the interpreter answers with a "Python ..." banner.
func (c *Client) ProbePython(ctx context.Context, envName string) (string, bool) {
	res, err := c.RunIn(ctx, envName, probeTimeout, "python", "-V")
	if err != nil || res.ExitCode != 0 {
		return "", false
	}
	out := strings.TrimSpace(res.Stdout)
	return out, strings.HasPrefix(out, "Python")
}

// InitShell runs conda init bash so future shells pick the runtime up.
func (c *Client) InitShell(ctx context.Context) error {
	res, err := c.run(ctx, initTimeout, "init", "bash")
	if err != nil {
		return fmt.Errorf("failed to run conda init: %w", err)
	}
	if res.ExitCode != 0 {
		return commandFailed("conda init", res)
	}
	return nil
}

// NameFromPrefix derives an environment name from its prefix path. A prefix
// containing an envs segment names the environment after the segment that
// follows it; a bare miniconda3 or anaconda3 root is the base environment.
func NameFromPrefix(prefix string) string {
	trimmed := strings.TrimRight(prefix, "/")
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		if part == "envs" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if strings.HasSuffix(trimmed, "miniconda3") || strings.HasSuffix(trimmed, "anaconda3") {
		return "base"
	}
	return parts[len(parts)-1]
}

func parseEnvListJSON(out string) ([]Env, error) {
	var payload struct {
		Envs []string `json:"envs"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return nil, err
	}

	var envs []Env
	for _, prefix := range payload.Envs {
		if strings.TrimSpace(prefix) == "" {
			continue
		}
		envs = append(envs, Env{Name: NameFromPrefix(prefix), Prefix: prefix})
	}
	return envs, nil
}

func parseEnvListText(out string) []Env {
	var envs []Env
	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		envs = append(envs, Env{Name: parts[0], Prefix: parts[len(parts)-1]})
	}
	return envs
}
