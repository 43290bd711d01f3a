// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

// Handler produces the result for a matched command. It may touch the filesystem to simulate
// what the real tool would have produced.
type Handler func(cmd shell.Command) (shell.Result, error)

type rule struct {
	match   string
	handler Handler
}

// Runner records every command and answers with the first rule whose match string is
// contained in the rendered script. Unmatched commands succeed.
type Runner struct {
	rules []rule
	calls []shell.Command
	lock  sync.Mutex
}

// New returns an empty fake runner.
func New() *Runner {
	return &Runner{}
}

// Exit makes commands containing match exit with code.
func (r *Runner) Exit(match string, code int) *Runner {
	return r.On(match, func(shell.Command) (shell.Result, error) {
		return shell.Result{ExitCode: code}, nil
	})
}

// Output makes commands containing match succeed and print output.
func (r *Runner) Output(match string, output string) *Runner {
	return r.On(match, func(shell.Command) (shell.Result, error) {
		return shell.Result{Output: output}, nil
	})
}

// On registers a handler for commands containing match.
func (r *Runner) On(match string, handler Handler) *Runner {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.rules = append(r.rules, rule{match: match, handler: handler})
	return r
}

// Run implements shell.Runner.
func (r *Runner) Run(ctx context.Context, cmd shell.Command) (shell.Result, error) {
	script, err := cmd.Script()
	if err != nil {
		return shell.Result{}, err
	}

	r.lock.Lock()
	r.calls = append(r.calls, cmd)
	rules := r.rules
	r.lock.Unlock()

	for _, item := range rules {
		if strings.Contains(script, item.match) {
			return item.handler(cmd)
		}
	}

	return shell.Result{}, nil
}

// Calls returns the commands run so far.
func (r *Runner) Calls() []shell.Command {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]shell.Command(nil), r.calls...)
}

// Scripts returns the rendered scripts of all commands run so far.
func (r *Runner) Scripts() []string {
	calls := r.Calls()
	scripts := make([]string, 0, len(calls))
	for _, cmd := range calls {
		script, _ := cmd.Script()
		scripts = append(scripts, script)
	}

	return scripts
}

// Stages returns the stage label of every command run so far.
func (r *Runner) Stages() []string {
	calls := r.Calls()
	stages := make([]string, 0, len(calls))
	for _, cmd := range calls {
		stages = append(stages, cmd.Stage)
	}

	return stages
}
