// Package config describes and validates the options of a single CLAW release build.
package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Defaults used by the install command when the corresponding flag is not given.
const (
	DefaultRepository  = "https://github.com/claw-project/claw-compiler.git"
	DefaultReleaseTag  = "v2.0.2"
	DefaultCCompiler   = "/usr/bin/gcc"
	DefaultCXXCompiler = "/usr/bin/g++"
	DefaultFCompiler   = "/usr/bin/gfortran"
)

// SupportedReleases lists the tags whose source layout the patcher knows about.
var SupportedReleases = []string{"v2.0.1", "v2.0.2"}

// IsSupportedRelease reports whether tag is one of SupportedReleases.
func IsSupportedRelease(tag string) bool {
	for _, item := range SupportedReleases {
		if item == tag {
			return true
		}
	}

	return false
}

// BuildConfig holds everything needed to build and install one release.
type BuildConfig struct {
	InstallDir  string
	Repository  string
	ReleaseTag  string
	CCompiler   string
	CXXCompiler string
	FCompiler   string
	// FCModules are loaded before any command that needs the Fortran toolchain.
	FCModules []string
	// CMakeModules are loaded before FCModules.
	CMakeModules []string
	// ModulesCmd backs the module shell function (modulecmd or Lmod).
	ModulesCmd string
	// AntHome is optional; it is exported as ANT_HOME during configuration.
	AntHome string
	// BuildDir is optional; a temporary directory is used if it is empty.
	BuildDir     string
	DisableTests bool
}

// Default returns a config populated with the defaults for every optional field.
func Default() BuildConfig {
	return BuildConfig{
		Repository:  DefaultRepository,
		ReleaseTag:  DefaultReleaseTag,
		CCompiler:   DefaultCCompiler,
		CXXCompiler: DefaultCXXCompiler,
		FCompiler:   DefaultFCompiler,
		ModulesCmd:  DefaultModulesCmd(),
	}
}

// DefaultModulesCmd picks the module command advertised by the environment.
func DefaultModulesCmd() string {
	for _, name := range []string{"MODULES_CMD", "LMOD_CMD"} {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}

	return "modulecmd"
}

// Modules returns every module the build commands load, in load order.
func (c BuildConfig) Modules() []string {
	modules := make([]string, 0, len(c.CMakeModules)+len(c.FCModules))
	modules = append(modules, c.CMakeModules...)
	return append(modules, c.FCModules...)
}

// SnapshotDir is where an existing installation is moved while a new one is built.
func (c BuildConfig) SnapshotDir() string {
	return strings.TrimRight(c.InstallDir, string(os.PathSeparator)) + ".old"
}

// MarshalZerologObject logs the configuration as one structured event.
func (c BuildConfig) MarshalZerologObject(e *zerolog.Event) {
	e.Str("install_dir", c.InstallDir).
		Str("source_repo", c.Repository).
		Str("release_tag", c.ReleaseTag).
		Str("cc", c.CCompiler).
		Str("cxx", c.CXXCompiler).
		Str("fc", c.FCompiler).
		Strs("fc_modules", c.FCModules).
		Strs("cmake_modules", c.CMakeModules).
		Str("ant_dir", c.AntHome).
		Str("build_dir", c.BuildDir).
		Bool("disable_tests", c.DisableTests)
}
