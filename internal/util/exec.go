package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CmdError is returned when a command was started but exited with a non-zero code
type CmdError struct {
	Executable string
	ExitCode   int
	Stderr     string
}

func (e *CmdError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Executable, e.ExitCode, e.Stderr)
}

// SafeCmdExecution runs the given executable with a timeout and returns its trimmed stdout
func SafeCmdExecution(executable string, args []string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 500 * time.Millisecond
	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("command timed out after %s: %s", timeout, executable)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return strings.TrimSpace(stdout.String()), &CmdError{
				Executable: executable,
				ExitCode:   exitErr.ExitCode(),
				Stderr:     strings.TrimSpace(stderr.String()),
			}
		}
		return "", err
	}

	return strings.Trim(stdout.String(), "\n"), nil
}
