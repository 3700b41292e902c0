// Package execx runs external commands with per-call timeouts and captured
// output. Every conda and systemctl invocation in comfyctl goes through the
// Runner interface so tests can substitute a recording fake.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"comfyctl/pkg/logging"
)

const execSubsystem = "Exec"

// DefaultTimeout applies when a Spec does not set its own.
const DefaultTimeout = 20 * time.Second

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Spec describes one command invocation.
type Spec struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string      // extra KEY=VALUE entries appended to the inherited environment
	Timeout time.Duration // 0 means DefaultTimeout
}

// Result carries the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes command specs.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ShellRunner executes commands on the host.
type ShellRunner struct{}

// NewShellRunner creates a runner backed by os/exec.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

// Run executes the spec and captures its output. A non-zero exit status is
// not an error: callers inspect Result.ExitCode. An error is returned only
// when the command could not run at all or hit its timeout; timeouts report
// exit code 124.
func (r *ShellRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Debug(execSubsystem, "run: %s %s (timeout %s)", spec.Name, strings.Join(spec.Args, " "), timeout)

	cmd := execCommandContext(runCtx, spec.Name, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		// Keep any environment the command factory pre-seeded; the test
		// factory relies on its marker variable surviving.
		base := cmd.Env
		if base == nil {
			base = os.Environ()
		}
		cmd.Env = append(base, spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res.ExitCode = 124
			return res, fmt.Errorf("command %s timed out after %s", spec.Name, timeout)
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		case errors.Is(err, exec.ErrNotFound):
			res.ExitCode = 127
			return res, fmt.Errorf("failed to run %s: %w", spec.Name, err)
		default:
			res.ExitCode = -1
			return res, fmt.Errorf("failed to run %s: %w", spec.Name, err)
		}
	}
	return res, nil
}
