package shell

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/meteoswiss/claw-release-tools/pkg/logging"
)

// DefaultOutputLimit is the number of trailing output bytes kept in a Result.
const DefaultOutputLimit = 16 * 1024

// Runner runs a command to completion and reports its exit code and output.
// A non-zero exit code is not an error; errors mean the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// InterpRunner runs commands through the mvdan.cc/sh interpreter. External programs are
// started as child processes and waited on.
type InterpRunner struct {
	// ModulesCmd is the modulecmd/Lmod executable backing the module shell function.
	ModulesCmd string
	// Environ is the base environment; nil means os.Environ().
	Environ []string
	Stdout  io.Writer
	Stderr  io.Writer
	// OutputLimit caps Result.Output; zero means DefaultOutputLimit.
	OutputLimit int
}

// NewInterpRunner returns a runner that streams command output to the process' stdout and stderr.
func NewInterpRunner(modulesCmd string) *InterpRunner {
	return &InterpRunner{
		ModulesCmd: modulesCmd,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func execHandler(ctx context.Context, args []string) error {
	logging.Log(ctx).Debug().Strs("args", args).Msg("exec")
	return defaultExecHandler(ctx, args)
}

func (r *InterpRunner) prelude() (string, error) {
	modulesCmd := r.ModulesCmd
	if modulesCmd == "" {
		modulesCmd = "modulecmd"
	}

	quoted, err := quote(modulesCmd)
	if err != nil {
		return "", eris.Wrapf(err, "invalid module command %q", modulesCmd)
	}

	// modulecmd prints shell code which has to be evaluated in the current shell; its own
	// exit status decides whether the chain continues
	return "module() { _module_code=\"$(" + quoted + " sh \"$@\")\" || return; eval \"$_module_code\"; }\n", nil
}

// Run implements Runner.
func (r *InterpRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	script, err := cmd.Script()
	if err != nil {
		return Result{}, err
	}

	logging.Log(ctx).Info().
		Str("stage", cmd.Stage).
		Bool("command", true).
		Msg(script)

	source := script
	if len(cmd.Modules) > 0 {
		prelude, err := r.prelude()
		if err != nil {
			return Result{}, err
		}
		source = prelude + script
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(source), cmd.Stage)
	if err != nil {
		return Result{}, eris.Wrapf(err, "failed to parse command %s", script)
	}

	environ := r.Environ
	if environ == nil {
		environ = os.Environ()
	}

	limit := r.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	capture := &tailBuffer{limit: limit}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(environ...)),
		interp.ExecHandler(execHandler),
		interp.StdIO(nil, teeWriter(r.Stdout, capture), teeWriter(r.Stderr, capture)),
	}
	if cmd.Dir != "" {
		opts = append(opts, interp.Dir(cmd.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return Result{}, eris.Wrap(err, "failed to initialize runner")
	}

	err = runner.Run(ctx, file)
	if status, ok := interp.IsExitStatus(err); ok {
		return Result{ExitCode: int(status), Output: capture.String()}, nil
	}
	if err != nil {
		return Result{ExitCode: -1, Output: capture.String()}, eris.Wrapf(err, "failed to run %s", script)
	}

	return Result{ExitCode: 0, Output: capture.String()}, nil
}

func teeWriter(stream io.Writer, capture io.Writer) io.Writer {
	if stream == nil {
		return capture
	}

	return io.MultiWriter(stream, capture)
}

// tailBuffer keeps the last limit bytes written to it. Child processes write stdout and
// stderr from separate goroutines.
type tailBuffer struct {
	limit int
	buf   []byte
	lock  sync.Mutex
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = append(b.buf[:0], b.buf[len(b.buf)-b.limit:]...)
	}

	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()

	return string(b.buf)
}
