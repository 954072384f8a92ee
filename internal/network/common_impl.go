package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrCommandFailed is matched by every *CommandError.
var ErrCommandFailed = errors.New("command failed")

// CommandError describes a failed external command.
// ExitCode is -1 when the process could not be started or was killed.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command %s %v could not run: %v", e.Name, e.Args, e.Err)
	}
	return fmt.Sprintf("command %s %v failed: exit status %d, output: %s", e.Name, e.Args, e.ExitCode, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCommandFailed) match any CommandError.
func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// IsLaunchFailure reports whether err means the command never completed
// (binary missing, context cancelled, killed) rather than exiting non-zero.
func IsLaunchFailure(err error) bool {
	if err == nil {
		return false
	}
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return cerr.ExitCode < 0
	}
	return true
}

// RealCommandExecutor is a concrete implementation of CommandExecutor using os/exec.
type RealCommandExecutor struct {
	// Sudo prefixes every command with sudo.
	Sudo bool
	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration
}

// RunCommand runs a command and returns its stdout.
func (r *RealCommandExecutor) RunCommand(ctx context.Context, name string, arg ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	bin, args := name, arg
	if r.Sudo {
		bin = "sudo"
		args = append([]string{name}, arg...)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cerr := &CommandError{
			Name:     name,
			Args:     arg,
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return stdout.String(), cerr
	}
	return stdout.String(), nil
}
