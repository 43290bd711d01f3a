package deploy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/meteoswiss/claw-release-tools/pkg/config"
	"github.com/meteoswiss/claw-release-tools/pkg/logging"
)

// ErrRepoint is wrapped when the release symlink could not be switched to the new install.
var ErrRepoint = eris.New("failed to repoint release link")

// Suffixes used next to the standard install dir and the link.
const (
	alternateSuffix = ".new"
	retainedSuffix  = ".prev"
	linkBackup      = ".old"
)

var symlink = os.Symlink

// InstallFunc builds and installs cfg, restoring whatever was at cfg.InstallDir on failure.
type InstallFunc func(ctx context.Context, cfg config.BuildConfig) error

// Deployer installs matrix targets and maintains their release links.
type Deployer struct {
	Matrix  *Matrix
	Install InstallFunc
}

// Result describes a finished deployment.
type Result struct {
	Target Target
	// InstallDir is where this deployment installed to; the link points here.
	InstallDir string
	// Retained is where the previously linked install was moved, if there was one.
	Retained string
}

// Deploy builds req into a directory that is not currently linked, points the release link
// at it and keeps the previously linked installation as <install_dir>.prev.
func (d *Deployer) Deploy(ctx context.Context, req Request) (Result, error) {
	target, err := d.Matrix.Resolve(req.Release, req.Compiler, req.Machine)
	if err != nil {
		return Result{}, err
	}

	ctx = logging.WithFields(ctx, map[string]string{
		"release":  req.Release,
		"compiler": req.Compiler,
		"machine":  req.Machine,
	})
	logger := logging.Log(ctx)

	live, err := linkTarget(target.Link)
	if err != nil {
		return Result{}, err
	}

	installDir := target.InstallDir
	if live != "" {
		if live == installDir {
			installDir += alternateSuffix
		}

		info, err := os.Stat(installDir)
		if err == nil && info.IsDir() {
			logger.Warn().Str("path", installDir).Msgf("Removing stale build target %s", installDir)
			err = os.RemoveAll(installDir)
			if err != nil {
				return Result{}, eris.Wrapf(err, "Failed to remove %s", installDir)
			}
		}
	}

	logger.Info().Str("install_dir", installDir).Str("link", target.Link).Msg("Deploying")
	err = d.Install(ctx, target.BuildConfig(installDir, req.DisableTests))
	if err != nil {
		return Result{}, err
	}

	err = RepointLink(ctx, target.Link, installDir)
	if err != nil {
		return Result{}, err
	}

	result := Result{Target: target, InstallDir: installDir}
	retained := target.InstallDir + retainedSuffix
	if live == retained {
		// the link was pointed at the retained install by hand
		result.Retained = retained
	} else if live != "" && live != installDir {
		if _, err := os.Lstat(retained); err == nil {
			logger.Info().Str("path", retained).Msgf("Removing older install %s", retained)
			err = os.RemoveAll(retained)
			if err != nil {
				return result, eris.Wrapf(err, "Failed to remove %s", retained)
			}
		}

		err = os.Rename(live, retained)
		if err != nil {
			return result, eris.Wrapf(err, "Failed to move previous install %s to %s", live, retained)
		}
		result.Retained = retained
	}

	return result, nil
}

// linkTarget returns the absolute, cleaned directory link points to, or an empty string if link
// doesn't exist or points at nothing.
func linkTarget(link string) (string, error) {
	info, err := os.Lstat(link)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", eris.Wrapf(err, "Failed to check %s", link)
	}

	if info.Mode()&os.ModeSymlink == 0 {
		return "", eris.Errorf("%s exists but is not a symlink", link)
	}

	dest, err := os.Readlink(link)
	if err != nil {
		return "", eris.Wrapf(err, "Failed to read link %s", link)
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(link), dest)
	}
	dest = filepath.Clean(dest)

	info, err = os.Stat(dest)
	if err != nil || !info.IsDir() {
		return "", nil
	}

	return dest, nil
}

// RepointLink makes link point at dest. An existing link is moved aside first and moved back
// if the new link can't be created.
func RepointLink(ctx context.Context, link, dest string) error {
	logger := logging.Log(ctx)
	backup := link + linkBackup

	if _, err := os.Lstat(backup); err == nil {
		return eris.Wrapf(ErrRepoint, "%s already exists, refusing to overwrite it", backup)
	}

	hadLink := false
	info, err := os.Lstat(link)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink == 0:
		return eris.Wrapf(ErrRepoint, "%s exists but is not a symlink", link)
	case err == nil:
		hadLink = true
	case !eris.Is(err, os.ErrNotExist):
		return eris.Wrapf(err, "Failed to check %s", link)
	}

	if hadLink {
		err = os.Rename(link, backup)
		if err != nil {
			return eris.Wrapf(ErrRepoint, "failed to move %s aside: %s", link, err)
		}
	}

	err = symlink(dest, link)
	if err != nil {
		if hadLink {
			logger.Error().Str("path", link).Msg("Restoring old link")
			if rbErr := os.Rename(backup, link); rbErr != nil {
				return eris.Wrapf(ErrRepoint, "failed to link %s to %s (%s) and to restore the old link (%s)", link, dest, err, rbErr)
			}
		}
		return eris.Wrapf(ErrRepoint, "failed to link %s to %s: %s", link, dest, err)
	}

	if hadLink {
		err = os.Remove(backup)
		if err != nil {
			return eris.Wrapf(err, "Failed to remove %s", backup)
		}
	}

	logger.Info().Str("path", link).Msgf("%s -> %s", link, dest)
	return nil
}
