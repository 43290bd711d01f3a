package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoswiss/claw-release-tools/pkg/config"
)

func TestSplitModules(t *testing.T) {
	assert.Equal(t, []string{"PrgEnv-gnu", "cmake", "java"}, splitModules([]string{"PrgEnv-gnu cmake", " java "}))
	assert.Empty(t, splitModules(nil))
}

func TestConfigFromFlags(t *testing.T) {
	cmd := newInstallCmd()
	err := cmd.ParseFlags([]string{
		"-i", "claw-install",
		"--release-tag", "v2.0.1",
		"-f", "pgfortran",
		"--fc-compiler-modules", "PrgEnv-pgi pgi/19.9",
		"--fc-compiler-modules", "cdt",
		"--cmake-modules", "CMake,git",
		"--ant-home-dir", "/opt/ant",
		"--disable-tests",
	})
	require.NoError(t, err)

	cfg, err := configFromFlags(cmd)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wd, "claw-install"), cfg.InstallDir)
	assert.Equal(t, "v2.0.1", cfg.ReleaseTag)
	assert.Equal(t, "pgfortran", cfg.FCompiler)
	assert.Equal(t, config.DefaultCCompiler, cfg.CCompiler)
	assert.Equal(t, config.DefaultRepository, cfg.Repository)
	assert.Equal(t, []string{"PrgEnv-pgi", "pgi/19.9", "cdt"}, cfg.FCModules)
	assert.Equal(t, []string{"CMake", "git"}, cfg.CMakeModules)
	assert.Equal(t, "/opt/ant", cfg.AntHome)
	assert.Empty(t, cfg.BuildDir)
	assert.True(t, cfg.DisableTests)
}

func TestConfigFromFlagsRequiresInstallDir(t *testing.T) {
	cmd := newInstallCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--release-tag", "v2.0.2"}))

	_, err := configFromFlags(cmd)
	assert.True(t, eris.Is(err, config.ErrInvalidConfig))
}

func TestStageCount(t *testing.T) {
	assert.Equal(t, 9, stageCount(false))
	assert.Equal(t, 8, stageCount(true))
}
