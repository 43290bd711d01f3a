package deploy

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUbuntuGCC(t *testing.T) {
	m, err := DefaultMatrix()
	require.NoError(t, err)

	target, err := m.Resolve("2.0.2", "gcc", "ubuntu20")
	require.NoError(t, err)
	assert.Equal(t, "/data/software/claw-release/gcc", target.TopDir)
	assert.Equal(t, "/data/software/claw-release/gcc/.installs/2.0.2", target.InstallDir)
	assert.Equal(t, "/data/software/claw-release/gcc/2.0.2", target.Link)
	assert.Empty(t, target.AntHome)

	cfg := target.BuildConfig(target.InstallDir, false)
	assert.Equal(t, "v2.0.2", cfg.ReleaseTag)
	assert.Equal(t, "/usr/bin/gcc", cfg.CCompiler)
	assert.Equal(t, "/usr/bin/g++", cfg.CXXCompiler)
	assert.Equal(t, "/usr/bin/gfortran", cfg.FCompiler)
	assert.Empty(t, cfg.FCModules)
	assert.Empty(t, cfg.AntHome)
	assert.False(t, cfg.DisableTests)
}

func TestResolveDaintPGI(t *testing.T) {
	m, err := DefaultMatrix()
	require.NoError(t, err)

	target, err := m.Resolve("2.0.1", "pgi", "daint")
	require.NoError(t, err)
	assert.Equal(t, "/project/c14/install/daint/claw/pgi/.installs/2.0.1", target.InstallDir)

	cfg := target.BuildConfig(target.InstallDir, true)
	assert.Equal(t, "ftn", cfg.FCompiler)
	assert.Equal(t, []string{"PrgEnv-pgi", "pgi/20.1.1"}, cfg.FCModules)
	assert.Equal(t, "/project/c14/install/daint/ant/apache-ant-1.10.2", cfg.AntHome)
	assert.True(t, cfg.DisableTests)
}

func TestResolveTsaAntHome(t *testing.T) {
	m, err := DefaultMatrix()
	require.NoError(t, err)

	target, err := m.Resolve("2.0.2", "gcc", "tsa")
	require.NoError(t, err)
	assert.Equal(t, "/project/c14/install/arolla/ant/apache-ant-1.10.2", target.AntHome)
	assert.Equal(t, "/project/c14/install/tsa/claw/gcc/2.0.2", target.Link)
}

func TestResolveUnsupported(t *testing.T) {
	m, err := DefaultMatrix()
	require.NoError(t, err)

	for _, tc := range [][3]string{
		{"2.0.0", "gcc", "ubuntu20"},
		{"2.0.2", "intel", "ubuntu20"},
		{"2.0.2", "gcc", "kesch"},
	} {
		_, err := m.Resolve(tc[0], tc[1], tc[2])
		require.Error(t, err, tc)
		assert.True(t, eris.Is(err, ErrUnsupported), tc)
	}
}

func TestTargetsSorted(t *testing.T) {
	m, err := DefaultMatrix()
	require.NoError(t, err)

	targets := m.Targets()
	require.Len(t, targets, 3*2*2)
	assert.Equal(t, "daint", targets[0].Machine)
	assert.Equal(t, "gcc", targets[0].Compiler)
	assert.Equal(t, "2.0.1", targets[0].Release)
	assert.Equal(t, "ubuntu20", targets[len(targets)-1].Machine)
}

func TestParseMatrixRejectsUnknownRelease(t *testing.T) {
	_, err := ParseMatrix([]byte("releases: [3.0.0]\n"))
	assert.Error(t, err)
}

func TestParseMatrixRejectsRelativeRoot(t *testing.T) {
	doc := `
releases: [2.0.2]
machines:
  local:
    installRoot: install
    compilers:
      gcc: {cc: gcc, cxx: g++, fc: gfortran}
`
	_, err := ParseMatrix([]byte(doc))
	assert.Error(t, err)
}

func TestLoadMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yml")
	doc := `
releases: [2.0.2]
machines:
  local:
    installRoot: /opt/claw
    compilers:
      gcc: {cc: gcc, cxx: g++, fc: gfortran, modules: [gcc/9]}
`
	require.NoError(t, ioutil.WriteFile(path, []byte(doc), 0o644))

	m, err := LoadMatrix(path)
	require.NoError(t, err)

	target, err := m.Resolve("2.0.2", "gcc", "local")
	require.NoError(t, err)
	assert.Equal(t, "/opt/claw/gcc/.installs/2.0.2", target.InstallDir)
	assert.Equal(t, []string{"gcc/9"}, target.Toolchain.Modules)
}

func TestRequestFromEnv(t *testing.T) {
	env := map[string]string{"release": "2.0.2", "compiler": "gcc", "slave": "ubuntu20"}
	lookup := func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}

	req, err := RequestFromEnv(lookup)
	require.NoError(t, err)
	assert.Equal(t, Request{Release: "2.0.2", Compiler: "gcc", Machine: "ubuntu20"}, req)

	env["disable_tests"] = ""
	req, err = RequestFromEnv(lookup)
	require.NoError(t, err)
	assert.True(t, req.DisableTests)

	delete(env, "compiler")
	delete(env, "slave")
	_, err = RequestFromEnv(lookup)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingEnv))
	assert.Contains(t, err.Error(), "compiler, slave")
}
