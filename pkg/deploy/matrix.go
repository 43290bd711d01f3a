// Package deploy derives build configurations from the release matrix and keeps a stable
// <top>/<release> symlink pointing at the active installation.
package deploy

import (
	_ "embed"
	"io/ioutil"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/meteoswiss/claw-release-tools/pkg/config"
)

//go:embed matrix.yml
var defaultMatrix []byte

// ErrUnsupported is wrapped by errors for combinations missing from the matrix.
var ErrUnsupported = eris.New("unsupported combination")

// InstallsDir holds the actual installations below a top install dir.
const InstallsDir = ".installs"

// Toolchain lists the compilers of one compiler family on one machine.
type Toolchain struct {
	CC      string   `yaml:"cc"`
	CXX     string   `yaml:"cxx"`
	FC      string   `yaml:"fc"`
	Modules []string `yaml:"modules,omitempty"`
}

// Machine describes one build host.
type Machine struct {
	InstallRoot string               `yaml:"installRoot"`
	AntHome     string               `yaml:"antHome,omitempty"`
	Compilers   map[string]Toolchain `yaml:"compilers"`
}

// Matrix is the set of deployable combinations.
type Matrix struct {
	Releases []string           `yaml:"releases"`
	Machines map[string]Machine `yaml:"machines"`
}

// Target is one fully resolved combination.
type Target struct {
	Release  string
	Compiler string
	Machine  string
	// TopDir is <installRoot>/<compiler>.
	TopDir string
	// InstallDir is the standard install location, <TopDir>/.installs/<release>.
	InstallDir string
	// Link is the stable path <TopDir>/<release>.
	Link      string
	Toolchain Toolchain
	AntHome   string
}

// DefaultMatrix returns the matrix compiled into the binary.
func DefaultMatrix() (*Matrix, error) {
	return ParseMatrix(defaultMatrix)
}

// LoadMatrix reads a matrix from a YAML file.
func LoadMatrix(path string) (*Matrix, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "Could not open file %s", path)
	}

	m, err := ParseMatrix(data)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to parse %s", path)
	}

	return m, nil
}

// ParseMatrix decodes and checks a matrix document.
func ParseMatrix(data []byte) (*Matrix, error) {
	var m Matrix
	err := yaml.Unmarshal(data, &m)
	if err != nil {
		return nil, eris.Wrap(err, "invalid YAML")
	}

	if len(m.Releases) == 0 {
		return nil, eris.New("matrix lists no releases")
	}

	for _, release := range m.Releases {
		if !config.IsSupportedRelease(ReleaseTag(release)) {
			return nil, eris.Errorf("release %s is listed in the matrix but not supported by the installer", release)
		}
	}

	for name, machine := range m.Machines {
		if machine.InstallRoot == "" || !filepath.IsAbs(machine.InstallRoot) {
			return nil, eris.Errorf("machine %s needs an absolute installRoot", name)
		}

		for compiler, tc := range machine.Compilers {
			if tc.CC == "" || tc.CXX == "" || tc.FC == "" {
				return nil, eris.Errorf("compiler %s on machine %s needs cc, cxx and fc", compiler, name)
			}
		}
	}

	return &m, nil
}

// ReleaseTag turns a release version into the git tag that is built.
func ReleaseTag(release string) string {
	return "v" + release
}

func (m *Matrix) hasRelease(release string) bool {
	for _, item := range m.Releases {
		if item == release {
			return true
		}
	}

	return false
}

// Resolve looks up one combination.
func (m *Matrix) Resolve(release, compiler, machineName string) (Target, error) {
	if !m.hasRelease(release) {
		return Target{}, eris.Wrapf(ErrUnsupported, "unsupported release %q", release)
	}

	machine, ok := m.Machines[machineName]
	if !ok {
		return Target{}, eris.Wrapf(ErrUnsupported, "unsupported machine %q", machineName)
	}

	tc, ok := machine.Compilers[compiler]
	if !ok {
		return Target{}, eris.Wrapf(ErrUnsupported, "compiler %q unsupported on machine %q", compiler, machineName)
	}

	top := filepath.Join(machine.InstallRoot, compiler)
	return Target{
		Release:    release,
		Compiler:   compiler,
		Machine:    machineName,
		TopDir:     top,
		InstallDir: filepath.Join(top, InstallsDir, release),
		Link:       filepath.Join(top, release),
		Toolchain:  tc,
		AntHome:    machine.AntHome,
	}, nil
}

// Targets returns every combination, sorted by machine, compiler and release.
func (m *Matrix) Targets() []Target {
	var targets []Target
	for machineName, machine := range m.Machines {
		for compiler := range machine.Compilers {
			for _, release := range m.Releases {
				target, err := m.Resolve(release, compiler, machineName)
				if err == nil {
					targets = append(targets, target)
				}
			}
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.Machine != b.Machine {
			return a.Machine < b.Machine
		}
		if a.Compiler != b.Compiler {
			return a.Compiler < b.Compiler
		}
		return a.Release < b.Release
	})

	return targets
}

// BuildConfig returns the installer configuration for building this target into installDir.
func (t Target) BuildConfig(installDir string, disableTests bool) config.BuildConfig {
	cfg := config.Default()
	cfg.InstallDir = installDir
	cfg.ReleaseTag = ReleaseTag(t.Release)
	cfg.CCompiler = t.Toolchain.CC
	cfg.CXXCompiler = t.Toolchain.CXX
	cfg.FCompiler = t.Toolchain.FC
	cfg.FCModules = append([]string(nil), t.Toolchain.Modules...)
	cfg.AntHome = t.AntHome
	cfg.DisableTests = disableTests
	return cfg
}
