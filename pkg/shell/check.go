package shell

import (
	"context"
	"fmt"
)

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	Stage    string
	Script   string
	ExitCode int
	// Output is the tail of what the command printed.
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: `%s` failed with exit code %d", e.Stage, e.Script, e.ExitCode)
}

// Check runs cmd and turns a non-zero exit status into an *ExitError.
func Check(ctx context.Context, runner Runner, cmd Command) error {
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return err
	}

	if !res.Success() {
		script, _ := cmd.Script()
		return &ExitError{Stage: cmd.Stage, Script: script, ExitCode: res.ExitCode, Output: res.Output}
	}

	return nil
}
