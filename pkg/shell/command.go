package shell

import (
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/syntax"
)

// EnvVar is a single NAME=value assignment placed in front of a command.
type EnvVar struct {
	Name  string
	Value string
}

// Command describes one invocation of an external tool.
type Command struct {
	// Stage labels the command in logs and parser errors.
	Stage string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Modules are environment modules loaded (after a purge) before Args run.
	Modules []string
	// Env is prepended to Args as assignments, in order.
	Env  []EnvVar
	Args []string
}

// Result is what a Runner reports for a finished command.
type Result struct {
	ExitCode int
	// Output holds the tail of the combined stdout and stderr.
	Output string
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// ModulePrefix returns the shell statements that reset the module environment and load the
// given modules, joined with &&. It returns an empty slice if no modules are given.
func ModulePrefix(modules []string) ([]string, error) {
	if len(modules) == 0 {
		return nil, nil
	}

	stmts := make([]string, 0, len(modules)+1)
	stmts = append(stmts, "module purge")
	for _, module := range modules {
		quoted, err := quote(module)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid module name %q", module)
		}
		stmts = append(stmts, "module load "+quoted)
	}

	return stmts, nil
}

// Script renders the command as a single shell line.
func (c Command) Script() (string, error) {
	if len(c.Args) == 0 {
		return "", eris.Errorf("command for stage %s has no arguments", c.Stage)
	}

	stmts, err := ModulePrefix(c.Modules)
	if err != nil {
		return "", err
	}

	words := make([]string, 0, len(c.Env)+len(c.Args))
	for _, item := range c.Env {
		if !syntax.ValidName(item.Name) {
			return "", eris.Errorf("invalid environment variable name %q", item.Name)
		}

		value, err := quote(item.Value)
		if err != nil {
			return "", eris.Wrapf(err, "invalid value for %s", item.Name)
		}
		words = append(words, item.Name+"="+value)
	}

	for _, arg := range c.Args {
		quoted, err := quote(arg)
		if err != nil {
			return "", eris.Wrapf(err, "invalid argument %q", arg)
		}
		words = append(words, quoted)
	}

	stmts = append(stmts, strings.Join(words, " "))
	return strings.Join(stmts, " && "), nil
}

// quote leaves plain words alone so the logged commands stay readable.
func quote(word string) (string, error) {
	if word != "" && strings.IndexFunc(word, needsQuoting) == -1 {
		return word, nil
	}

	return syntax.Quote(word, syntax.LangBash)
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}

	return !strings.ContainsRune("-_./=:,+@%", r)
}
