package source

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoswiss/claw-release-tools/pkg/shell"
	"github.com/meteoswiss/claw-release-tools/pkg/shell/shelltest"
)

func TestAcquireRunsGitInOrder(t *testing.T) {
	runner := shelltest.New()
	buildDir := t.TempDir()

	srcDir, err := Acquire(context.Background(), runner, buildDir, "https://example.com/claw.git", "v2.0.2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(buildDir, CheckoutDir), srcDir)
	assert.Equal(t, []string{
		"git clone https://example.com/claw.git claw-compiler",
		"git checkout v2.0.2",
		"git submodule init",
		"git submodule update",
	}, runner.Scripts())

	calls := runner.Calls()
	assert.Equal(t, buildDir, calls[0].Dir)
	assert.Equal(t, srcDir, calls[1].Dir)
}

func TestAcquireStopsOnFailure(t *testing.T) {
	runner := shelltest.New().Exit("git checkout", 1)

	_, err := Acquire(context.Background(), runner, t.TempDir(), "repo", "v2.0.9")
	require.Error(t, err)

	exitErr, ok := err.(*shell.ExitError)
	require.True(t, ok)
	assert.Equal(t, StageAcquire, exitErr.Stage)
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Len(t, runner.Calls(), 2)
}

func TestAcquireCloneFailureIsFatal(t *testing.T) {
	runner := shelltest.New().Exit("git clone", 128)

	_, err := Acquire(context.Background(), runner, t.TempDir(), "repo", "v2.0.2")
	require.Error(t, err)
	assert.Len(t, runner.Calls(), 1)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, ioutil.WriteFile(path, []byte(content), 0o640))
	}

	return root
}

func TestPatch(t *testing.T) {
	srcDir := writeTree(t, map[string]string{
		"CMakeLists.txt":            "set(FC ${CMAKE_Fortran_COMPILER})\nmessage(${CMAKE_Fortran_COMPILER})\n",
		"properties.cmake":          "# nothing to see here\n",
		"cmake/omni_compiler.cmake": "-DFC=${CMAKE_Fortran_COMPILER}",
	})

	counts, err := Patch(context.Background(), srcDir)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["CMakeLists.txt"])
	assert.Equal(t, 0, counts["properties.cmake"])
	assert.Equal(t, 1, counts[filepath.Join("cmake", "omni_compiler.cmake")])

	data, err := ioutil.ReadFile(filepath.Join(srcDir, "CMakeLists.txt"))
	require.NoError(t, err)
	assert.Equal(t, "set(FC ${CLAW_Fortran_COMPILER})\nmessage(${CLAW_Fortran_COMPILER})\n", string(data))

	info, err := os.Stat(filepath.Join(srcDir, "CMakeLists.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := ioutil.ReadDir(srcDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporary files are left behind")
}

func TestPatchMissingFile(t *testing.T) {
	srcDir := writeTree(t, map[string]string{
		"CMakeLists.txt":   "${CMAKE_Fortran_COMPILER}",
		"properties.cmake": "",
	})

	_, err := Patch(context.Background(), srcDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "omni_compiler.cmake")
}
