package encfs

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes external commands. The production implementation shells
// out to the host; tests substitute a recorder so no privileged tools are
// actually invoked.
type Runner interface {
	// Run executes a command and waits for it to finish.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its combined stdout and stderr.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct{}

// Run executes the command, returning an error that includes the tool's
// combined output on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, string(output))
	}
	return nil
}

// Output executes the command and returns its combined output.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
