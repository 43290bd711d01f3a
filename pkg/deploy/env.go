package deploy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Environment variables set by the CI job.
const (
	EnvRelease      = "release"
	EnvCompiler     = "compiler"
	EnvMachine      = "slave"
	EnvDisableTests = "disable_tests"
)

// ErrMissingEnv is wrapped when a required environment variable is not set.
var ErrMissingEnv = eris.New("required environment variable not set")

// Request selects one matrix combination.
type Request struct {
	Release      string
	Compiler     string
	Machine      string
	DisableTests bool
}

// RequestFromEnv reads a Request through lookup (os.LookupEnv if nil). All missing variables
// are reported at once.
func RequestFromEnv(lookup func(string) (string, bool)) (Request, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var req Request
	var missing []string
	for _, item := range []struct {
		name   string
		target *string
	}{
		{EnvRelease, &req.Release},
		{EnvCompiler, &req.Compiler},
		{EnvMachine, &req.Machine},
	} {
		value, ok := lookup(item.name)
		if !ok || value == "" {
			missing = append(missing, item.name)
			continue
		}
		*item.target = value
	}

	if len(missing) > 0 {
		return req, eris.Wrapf(ErrMissingEnv, "%s not set. Are you running this from the CI job?", strings.Join(missing, ", "))
	}

	_, req.DisableTests = lookup(EnvDisableTests)
	return req, nil
}
