package installer

import (
	"path/filepath"

	"github.com/meteoswiss/claw-release-tools/pkg/config"
	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

// ClawFCPath is the compiler driver inside an installation.
func ClawFCPath(installDir string) string {
	return filepath.Join(installDir, "bin", "clawfc")
}

// ConfigureCommand runs CMake in the source tree with the compilers and install prefix of cfg.
func ConfigureCommand(cfg config.BuildConfig, srcDir string) shell.Command {
	env := []shell.EnvVar{
		{Name: "CC", Value: cfg.CCompiler},
		{Name: "CXX", Value: cfg.CXXCompiler},
	}
	if cfg.AntHome != "" {
		env = append(env, shell.EnvVar{Name: "ANT_HOME", Value: cfg.AntHome})
	}

	return shell.Command{
		Stage:   string(StageConfigure),
		Dir:     srcDir,
		Modules: cfg.Modules(),
		Env:     env,
		Args: []string{
			"cmake",
			"-DCLAW_Fortran_COMPILER=" + cfg.FCompiler,
			"-DCMAKE_INSTALL_PREFIX=" + cfg.InstallDir,
			".",
		},
	}
}

// BuildCommand compiles the configured tree.
func BuildCommand(cfg config.BuildConfig, srcDir string) shell.Command {
	return shell.Command{
		Stage:   string(StageBuild),
		Dir:     srcDir,
		Modules: cfg.Modules(),
		Args:    []string{"make", "-j"},
	}
}

// TestCommand runs the upstream transformation test suite.
func TestCommand(cfg config.BuildConfig, srcDir string) shell.Command {
	return shell.Command{
		Stage:   string(StageTest),
		Dir:     srcDir,
		Modules: cfg.Modules(),
		Args:    []string{"make", "-j", "transformation", "test"},
	}
}

// InstallCommand copies the build into the install prefix.
func InstallCommand(cfg config.BuildConfig, srcDir string) shell.Command {
	return shell.Command{
		Stage:   string(StageInstall),
		Dir:     srcDir,
		Modules: cfg.Modules(),
		Args:    []string{"make", "install"},
	}
}

// SmokeCommand translates the smoke check input with the installed driver.
func SmokeCommand(installDir string, modules []string, dir string) shell.Command {
	return shell.Command{
		Stage:   string(StageSmokeCheck),
		Dir:     dir,
		Modules: modules,
		Args:    []string{ClawFCPath(installDir), "-f", "-o", SmokeOutput, SmokeInput},
	}
}
