package config

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/meteoswiss/claw-release-tools/pkg/logging"
	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

var (
	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = eris.New("invalid configuration")
	// ErrStaleSnapshot means a previous attempt left <install_dir>.old behind.
	ErrStaleSnapshot = eris.New("stale snapshot directory")
)

// ResolveExecutable turns a compiler name or path into the absolute path of an executable.
// If modules are given, the lookup happens in a shell that loaded them first.
func ResolveExecutable(ctx context.Context, runner shell.Runner, name string, modules []string) (string, error) {
	var path string
	if len(modules) == 0 {
		found, err := exec.LookPath(name)
		if err != nil {
			return "", eris.Wrapf(err, "could not find %s", name)
		}
		path = found
	} else {
		res, err := runner.Run(ctx, shell.Command{
			Stage:   "resolve",
			Modules: modules,
			Args:    []string{"command", "-v", name},
		})
		if err != nil {
			return "", err
		}
		if !res.Success() {
			return "", eris.Errorf("could not find %s after loading modules %s", name, strings.Join(modules, " "))
		}

		lines := strings.Split(strings.TrimSpace(res.Output), "\n")
		path = strings.TrimSpace(lines[len(lines)-1])
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", eris.Wrapf(err, "could not check %s", path)
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0111 == 0 {
		return "", eris.Errorf("%s is not an executable file", path)
	}

	return path, nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, eris.Wrapf(err, "failed to check %s", path)
	}

	return info.IsDir(), nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if eris.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, eris.Wrapf(err, "failed to check %s", path)
}

// Validate checks cfg and returns a copy with all compiler paths resolved. The checks that
// don't need processes or filesystem changes run first; the install directory is created last.
func Validate(ctx context.Context, runner shell.Runner, cfg BuildConfig) (BuildConfig, error) {
	if cfg.InstallDir == "" {
		return cfg, eris.Wrap(ErrInvalidConfig, "no install directory given")
	}

	if cfg.Repository == "" {
		return cfg, eris.Wrap(ErrInvalidConfig, "no source repository given")
	}

	if !IsSupportedRelease(cfg.ReleaseTag) {
		return cfg, eris.Wrapf(ErrInvalidConfig, "release %q is not supported, currently only the following releases are supported [%s]",
			cfg.ReleaseTag, strings.Join(SupportedReleases, ", "))
	}

	if cfg.AntHome != "" {
		ok, err := dirExists(cfg.AntHome)
		if err != nil {
			return cfg, err
		}
		if !ok {
			return cfg, eris.Wrapf(ErrInvalidConfig, "Ant dir %q not found", cfg.AntHome)
		}
	}

	stale, err := pathExists(cfg.SnapshotDir())
	if err != nil {
		return cfg, err
	}
	if stale {
		return cfg, eris.Wrapf(ErrStaleSnapshot, "%s exists, probably left over from an interrupted install; inspect and remove it first", cfg.SnapshotDir())
	}

	compilers := []struct {
		desc    string
		path    *string
		modules []string
	}{
		{"C compiler", &cfg.CCompiler, nil},
		{"C++ compiler", &cfg.CXXCompiler, nil},
		{"Fortran compiler", &cfg.FCompiler, cfg.FCModules},
	}
	for _, item := range compilers {
		resolved, err := ResolveExecutable(ctx, runner, *item.path, item.modules)
		if err != nil {
			return cfg, eris.Wrapf(ErrInvalidConfig, "%s %q not found: %s", item.desc, *item.path, eris.ToString(err, false))
		}

		logging.Log(ctx).Debug().Msgf("%s resolved to %s", item.desc, resolved)
		*item.path = resolved
	}

	err = os.MkdirAll(cfg.InstallDir, 0755)
	if err != nil {
		return cfg, eris.Wrapf(ErrInvalidConfig, "failed to create install dir %s: %s", cfg.InstallDir, err)
	}

	return cfg, nil
}
