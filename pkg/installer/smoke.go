package installer

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/meteoswiss/claw-release-tools/pkg/logging"
	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

// Files used by the smoke check.
const (
	SmokeInput     = "conftest.f90"
	SmokeOutput    = "conftest.claw.f90"
	SmokeInterface = "conftest_module.xmod"
	smokeSource    = "module conftest_module\nend module\n"
)

// SmokeCheck runs the installed clawfc on a trivial module in a scratch directory below
// tempDir (or the system default) and requires both the transformed source and the module
// interface file to be produced.
func SmokeCheck(ctx context.Context, runner shell.Runner, installDir string, modules []string, tempDir string) error {
	dir, err := ioutil.TempDir(tempDir, "claw-smoke-")
	if err != nil {
		return eris.Wrap(err, "Failed to create smoke check directory")
	}
	defer os.RemoveAll(dir)

	err = ioutil.WriteFile(filepath.Join(dir, SmokeInput), []byte(smokeSource), 0644)
	if err != nil {
		return eris.Wrapf(err, "Failed to write %s", SmokeInput)
	}

	err = shell.Check(ctx, runner, SmokeCommand(installDir, modules, dir))
	if err != nil {
		return err
	}

	for _, name := range []string{SmokeOutput, SmokeInterface} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				return eris.Errorf("clawfc exited successfully but did not produce %s", name)
			}
			return eris.Wrapf(err, "Failed to check %s", name)
		}

		if !info.Mode().IsRegular() {
			return eris.Errorf("%s is not a regular file", name)
		}
	}

	logging.Log(ctx).Debug().Str("stage", string(StageSmokeCheck)).Msg("clawfc produced all expected files")
	return nil
}
