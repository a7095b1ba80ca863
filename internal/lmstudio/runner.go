package lmstudio

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner starts an external command and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec. Nil writers default to the
// process's own stdout and stderr, so download progress stays visible.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes name with args and no stdin. The context only carries
// cancellation from the caller; no deadline is added here.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	command := append([]string{name}, args...)

	if err := cmd.Start(); err != nil {
		return &SubprocessError{Command: command, ExitCode: -1, Err: err}
	}

	if err := cmd.Wait(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &SubprocessError{Command: command, ExitCode: exitCode, Err: err, Started: true}
	}

	return nil
}
