// Package source fetches the CLAW compiler sources and prepares them for the build.
package source

import (
	"context"
	"path/filepath"

	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

// CheckoutDir is the directory name the repository is cloned into.
const CheckoutDir = "claw-compiler"

// StageAcquire labels every command run by Acquire.
const StageAcquire = "acquire"

// Commands returns the git commands Acquire runs, in order.
func Commands(buildDir, repository, tag string) []shell.Command {
	srcDir := filepath.Join(buildDir, CheckoutDir)
	return []shell.Command{
		{Stage: StageAcquire, Dir: buildDir, Args: []string{"git", "clone", repository, CheckoutDir}},
		{Stage: StageAcquire, Dir: srcDir, Args: []string{"git", "checkout", tag}},
		{Stage: StageAcquire, Dir: srcDir, Args: []string{"git", "submodule", "init"}},
		{Stage: StageAcquire, Dir: srcDir, Args: []string{"git", "submodule", "update"}},
	}
}

// Acquire clones repository into buildDir, checks out tag and fetches the submodules.
// It returns the path of the source tree.
func Acquire(ctx context.Context, runner shell.Runner, buildDir, repository, tag string) (string, error) {
	for _, cmd := range Commands(buildDir, repository, tag) {
		if err := shell.Check(ctx, runner, cmd); err != nil {
			return "", err
		}
	}

	return filepath.Join(buildDir, CheckoutDir), nil
}
