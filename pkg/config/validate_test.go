package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoswiss/claw-release-tools/pkg/shell/shelltest"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func testConfig(t *testing.T) BuildConfig {
	t.Helper()
	tools := t.TempDir()

	cfg := Default()
	cfg.InstallDir = filepath.Join(t.TempDir(), "claw")
	cfg.CCompiler = writeExecutable(t, tools, "gcc")
	cfg.CXXCompiler = writeExecutable(t, tools, "g++")
	cfg.FCompiler = writeExecutable(t, tools, "gfortran")
	return cfg
}

func TestValidateAcceptsSupportedReleases(t *testing.T) {
	for _, tag := range SupportedReleases {
		t.Run(tag, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.ReleaseTag = tag

			validated, err := Validate(context.Background(), shelltest.New(), cfg)
			require.NoError(t, err)
			assert.Equal(t, tag, validated.ReleaseTag)
			assert.DirExists(t, cfg.InstallDir)
		})
	}
}

func TestValidateRejectsUnsupportedReleaseWithoutSideEffects(t *testing.T) {
	for _, tag := range []string{"v2.0.0", "2.0.2", "master", ""} {
		t.Run(tag, func(t *testing.T) {
			runner := shelltest.New()
			cfg := testConfig(t)
			cfg.ReleaseTag = tag
			cfg.FCModules = []string{"pgi"}

			_, err := Validate(context.Background(), runner, cfg)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), "v2.0.1, v2.0.2")
			assert.Empty(t, runner.Calls())
			assert.NoDirExists(t, cfg.InstallDir)
		})
	}
}

func TestValidateMissingCompiler(t *testing.T) {
	cfg := testConfig(t)
	cfg.FCompiler = filepath.Join(t.TempDir(), "nope")

	_, err := Validate(context.Background(), shelltest.New(), cfg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "Fortran compiler")
	assert.NoDirExists(t, cfg.InstallDir)
}

func TestValidateNonExecutableCompiler(t *testing.T) {
	cfg := testConfig(t)
	plain := filepath.Join(t.TempDir(), "cc")
	require.NoError(t, os.WriteFile(plain, nil, 0o644))
	cfg.CCompiler = plain

	_, err := Validate(context.Background(), shelltest.New(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C compiler")
}

func TestValidateResolvesFortranCompilerThroughModules(t *testing.T) {
	cfg := testConfig(t)
	ftn := writeExecutable(t, t.TempDir(), "ftn")
	cfg.FCompiler = "ftn"
	cfg.FCModules = []string{"PrgEnv-pgi", "pgi/20.1.1"}

	runner := shelltest.New().Output("command -v ftn", ftn+"\n")
	validated, err := Validate(context.Background(), runner, cfg)
	require.NoError(t, err)
	assert.Equal(t, ftn, validated.FCompiler)
	assert.Equal(t, "ftn", cfg.FCompiler)

	require.Len(t, runner.Calls(), 1)
	assert.Equal(t, []string{"PrgEnv-pgi", "pgi/20.1.1"}, runner.Calls()[0].Modules)
}

func TestValidateModuleLookupFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.FCompiler = "ftn"
	cfg.FCModules = []string{"PrgEnv-pgi"}

	_, err := Validate(context.Background(), shelltest.New().Exit("command -v", 1), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PrgEnv-pgi")
}

func TestValidateAntHome(t *testing.T) {
	cfg := testConfig(t)
	cfg.AntHome = filepath.Join(t.TempDir(), "apache-ant-1.10.2")

	_, err := Validate(context.Background(), shelltest.New(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ant dir")

	require.NoError(t, os.Mkdir(cfg.AntHome, 0o755))
	_, err = Validate(context.Background(), shelltest.New(), cfg)
	assert.NoError(t, err)
}

func TestValidateStaleSnapshot(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.SnapshotDir(), 0o755))

	_, err := Validate(context.Background(), shelltest.New(), cfg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrStaleSnapshot))
	assert.DirExists(t, cfg.SnapshotDir())
}

func TestSnapshotDir(t *testing.T) {
	assert.Equal(t, "/x/claw.old", BuildConfig{InstallDir: "/x/claw/"}.SnapshotDir())
}

func TestModulesOrder(t *testing.T) {
	cfg := BuildConfig{CMakeModules: []string{"CMake"}, FCModules: []string{"PrgEnv-pgi", "pgi"}}
	assert.Equal(t, []string{"CMake", "PrgEnv-pgi", "pgi"}, cfg.Modules())
}
