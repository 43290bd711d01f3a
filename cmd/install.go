package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meteoswiss/claw-release-tools/pkg"
	"github.com/meteoswiss/claw-release-tools/pkg/config"
	"github.com/meteoswiss/claw-release-tools/pkg/installer"
	"github.com/meteoswiss/claw-release-tools/pkg/logging"
	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Builds, tests and installs one CLAW release",
		Long: `Checks out the requested release, patches and configures it, then builds, tests
and installs it into the install dir. An existing installation is moved to
<install-dir>.old first and restored if anything after that point fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}

			dryRun, err := cmd.Flags().GetBool("dry-run")
			if err != nil {
				return err
			}

			if dryRun {
				return printPlan(cfg)
			}

			return runInstall(commandContext(cmd), cfg)
		},
	}

	def := config.Default()
	flags := cmd.Flags()

	flags.StringP("install-dir", "i", "", "directory the release is installed into (required)")
	flags.String("source-repository", def.Repository, "git repository to clone")
	flags.String("release-tag", def.ReleaseTag, "release tag to build ("+strings.Join(config.SupportedReleases, ", ")+")")
	flags.String("c-compiler", def.CCompiler, "C compiler")
	flags.String("cxx-compiler", def.CXXCompiler, "C++ compiler")
	flags.StringP("fc-compiler", "f", def.FCompiler, "Fortran compiler")
	flags.StringSlice("fc-compiler-modules", nil, "environment modules providing the Fortran compiler")
	flags.StringSlice("cmake-modules", nil, "environment modules providing cmake, loaded before the Fortran modules")
	flags.String("ant-home-dir", "", "Ant installation exported as ANT_HOME")
	flags.String("build-dir", "", "build directory to use instead of a temporary one (kept afterwards)")
	flags.Bool("disable-tests", false, "skip the upstream test target")
	flags.Bool("dry-run", false, "print the commands that would run and exit")
	flags.String("modules-cmd", def.ModulesCmd, "command implementing the module shell function")

	return cmd
}

// splitModules accepts module lists given as repeated flags, comma separated values or
// whitespace separated values.
func splitModules(values []string) []string {
	var modules []string
	for _, value := range values {
		modules = append(modules, strings.Fields(value)...)
	}

	return modules
}

func configFromFlags(cmd *cobra.Command) (config.BuildConfig, error) {
	cfg := config.Default()
	flags := cmd.Flags()

	var err error
	for _, item := range []struct {
		name   string
		target *string
	}{
		{"install-dir", &cfg.InstallDir},
		{"source-repository", &cfg.Repository},
		{"release-tag", &cfg.ReleaseTag},
		{"c-compiler", &cfg.CCompiler},
		{"cxx-compiler", &cfg.CXXCompiler},
		{"fc-compiler", &cfg.FCompiler},
		{"ant-home-dir", &cfg.AntHome},
		{"build-dir", &cfg.BuildDir},
		{"modules-cmd", &cfg.ModulesCmd},
	} {
		*item.target, err = flags.GetString(item.name)
		if err != nil {
			return cfg, err
		}
	}

	if cfg.InstallDir == "" {
		return cfg, eris.Wrap(config.ErrInvalidConfig, "--install-dir is required")
	}

	// cmake and make run inside the checkout
	for _, path := range []*string{&cfg.InstallDir, &cfg.AntHome, &cfg.BuildDir} {
		if *path == "" {
			continue
		}

		*path, err = filepath.Abs(*path)
		if err != nil {
			return cfg, eris.Wrap(err, "Failed to resolve path")
		}
	}

	fcModules, err := flags.GetStringSlice("fc-compiler-modules")
	if err != nil {
		return cfg, err
	}
	cfg.FCModules = splitModules(fcModules)

	cmakeModules, err := flags.GetStringSlice("cmake-modules")
	if err != nil {
		return cfg, err
	}
	cfg.CMakeModules = splitModules(cmakeModules)

	cfg.DisableTests, err = flags.GetBool("disable-tests")
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

func printPlan(cfg config.BuildConfig) error {
	wf := installer.Workflow{Config: cfg}
	plan, err := wf.Plan()
	if err != nil {
		return err
	}

	var last installer.Stage
	for _, step := range plan {
		if step.Stage != last {
			pkg.PrintTask(step.Stage.Title())
			last = step.Stage
		}

		if step.Note != "" {
			pkg.PrintSubtask(step.Note)
		} else {
			pkg.PrintSubtask(fmt.Sprintf("(cd %s) %s", step.Dir, step.Script))
		}
	}

	return nil
}

// runInstall runs the full workflow for cfg with a stage progress bar.
func runInstall(ctx context.Context, cfg config.BuildConfig) error {
	bar := getProgressBar(os.Stderr, stageCount(cfg.DisableTests), "Installing CLAW "+cfg.ReleaseTag)
	wf := installer.Workflow{
		Config:  cfg,
		Runner:  shell.NewInterpRunner(cfg.ModulesCmd),
		OnStage: stageProgress(bar),
	}

	outcome, err := wf.Run(ctx)
	if err != nil {
		abortProgress(bar)
		switch {
		case outcome.RollbackErr != nil:
			pkg.PrintError("The previous installation could not be restored from " + outcome.Snapshot)
		case outcome.State == installer.RolledBack && outcome.Snapshot != "":
			pkg.PrintError("Restored the previous installation in " + cfg.InstallDir)
		}
		return err
	}

	_ = bar.Finish()
	logging.Log(ctx).Info().Str("state", outcome.State.String()).Msg("Done")
	pkg.PrintTask("CLAW " + cfg.ReleaseTag + " installed to " + cfg.InstallDir)
	return nil
}

func init() {
	rootCmd.AddCommand(newInstallCmd())
}
