package installer

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"

	"github.com/meteoswiss/claw-release-tools/pkg/config"
	"github.com/meteoswiss/claw-release-tools/pkg/logging"
	"github.com/meteoswiss/claw-release-tools/pkg/shell"
	"github.com/meteoswiss/claw-release-tools/pkg/source"
)

// Workflow builds and installs one release as described by Config.
type Workflow struct {
	Config config.BuildConfig
	Runner shell.Runner
	// TempDir is the parent for scratch directories; empty means the system default.
	TempDir string
	// OnStage is called whenever a stage starts.
	OnStage func(Stage)
}

func (w *Workflow) enter(ctx context.Context, stage Stage) {
	logging.Log(ctx).Info().Str("stage", string(stage)).Msg(stage.Title() + "...")
	if w.OnStage != nil {
		w.OnStage(stage)
	}
}

// prepareBuildDir returns the scratch directory and a function that disposes of it. An
// explicitly configured directory is created if needed and kept afterwards.
func (w *Workflow) prepareBuildDir(id string) (string, func(), error) {
	if w.Config.BuildDir != "" {
		err := os.MkdirAll(w.Config.BuildDir, 0755)
		if err != nil {
			return "", nil, eris.Wrapf(err, "Failed to create build dir %s", w.Config.BuildDir)
		}
		return w.Config.BuildDir, func() {}, nil
	}

	dir, err := ioutil.TempDir(w.TempDir, "claw-build-"+id+"-")
	if err != nil {
		return "", nil, eris.Wrap(err, "Failed to create temporary build dir")
	}

	return dir, func() { os.RemoveAll(dir) }, nil
}

// Run executes the whole workflow. Errors before the snapshot leave the installation
// untouched; errors after it are returned once the previous installation has been restored.
// The returned Outcome is the zero value if the attempt never reached the snapshot.
func (w *Workflow) Run(ctx context.Context) (Outcome, error) {
	id := nanoid.New()
	ctx = logging.WithFields(ctx, map[string]string{"attempt": id})
	logger := logging.Log(ctx)

	logger.Info().Object("config", w.Config).Msg("Parsed input arguments")

	w.enter(ctx, StageValidate)
	cfg, err := config.Validate(ctx, w.Runner, w.Config)
	if err != nil {
		return Outcome{}, stageErr(StageValidate, err)
	}

	buildDir, cleanup, err := w.prepareBuildDir(id)
	if err != nil {
		return Outcome{}, stageErr(StageAcquire, err)
	}
	defer cleanup()
	logger.Debug().Str("path", buildDir).Msgf("Build dir: %s", buildDir)

	w.enter(ctx, StageAcquire)
	srcDir, err := source.Acquire(ctx, w.Runner, buildDir, cfg.Repository, cfg.ReleaseTag)
	if err != nil {
		return Outcome{}, stageErr(StageAcquire, err)
	}
	logger.Debug().Str("path", srcDir).Msgf("Source dir: %s", srcDir)

	w.enter(ctx, StagePatch)
	_, err = source.Patch(ctx, srcDir)
	if err != nil {
		return Outcome{}, stageErr(StagePatch, err)
	}

	w.enter(ctx, StageConfigure)
	err = shell.Check(ctx, w.Runner, ConfigureCommand(cfg, srcDir))
	if err != nil {
		return Outcome{}, stageErr(StageConfigure, err)
	}

	w.enter(ctx, StageSnapshot)
	orch := Orchestrator{InstallDir: cfg.InstallDir, SnapshotDir: cfg.SnapshotDir()}
	outcome := orch.Attempt(ctx, w.steps(cfg, srcDir))
	if err := outcome.Error(); err != nil {
		return outcome, err
	}

	logger.Info().Str("install_dir", cfg.InstallDir).Msg("Installation complete")
	return outcome, nil
}

func (w *Workflow) steps(cfg config.BuildConfig, srcDir string) []Step {
	command := func(stage Stage, cmd shell.Command) Step {
		return Step{Stage: stage, Run: func(ctx context.Context) error {
			w.enter(ctx, stage)
			return shell.Check(ctx, w.Runner, cmd)
		}}
	}

	steps := []Step{command(StageBuild, BuildCommand(cfg, srcDir))}
	if !cfg.DisableTests {
		steps = append(steps, command(StageTest, TestCommand(cfg, srcDir)))
	}
	steps = append(steps,
		command(StageInstall, InstallCommand(cfg, srcDir)),
		Step{Stage: StageSmokeCheck, Run: func(ctx context.Context) error {
			w.enter(ctx, StageSmokeCheck)
			return SmokeCheck(ctx, w.Runner, cfg.InstallDir, cfg.Modules(), w.TempDir)
		}},
	)

	return steps
}

// PlannedStep is one entry of Plan.
type PlannedStep struct {
	Stage  Stage
	Dir    string
	Script string
	// Note describes a filesystem action for stages that don't run a command.
	Note string
}

// Plan lists what Run would do without touching anything. Compiler names are shown as
// given; Run resolves them during validation.
func (w *Workflow) Plan() ([]PlannedStep, error) {
	cfg := w.Config
	buildDir := cfg.BuildDir
	if buildDir == "" {
		buildDir = filepath.Join(os.TempDir(), "claw-build-XXXX")
	}
	srcDir := filepath.Join(buildDir, source.CheckoutDir)

	var plan []PlannedStep
	add := func(stage Stage, cmd shell.Command) error {
		script, err := cmd.Script()
		if err != nil {
			return err
		}
		plan = append(plan, PlannedStep{Stage: stage, Dir: cmd.Dir, Script: script})
		return nil
	}
	note := func(stage Stage, text string) {
		plan = append(plan, PlannedStep{Stage: stage, Note: text})
	}

	note(StageValidate, "check compilers, release tag and create "+cfg.InstallDir)
	for _, cmd := range source.Commands(buildDir, cfg.Repository, cfg.ReleaseTag) {
		if err := add(StageAcquire, cmd); err != nil {
			return nil, err
		}
	}
	for _, name := range source.PatchedFiles {
		note(StagePatch, "replace "+source.CompilerVar+" with "+source.CompilerVarNew+" in "+filepath.Join(srcDir, name))
	}

	if err := add(StageConfigure, ConfigureCommand(cfg, srcDir)); err != nil {
		return nil, err
	}
	note(StageSnapshot, "move "+cfg.InstallDir+" to "+cfg.SnapshotDir()+" if it holds an installation")

	cmds := []shell.Command{BuildCommand(cfg, srcDir)}
	if !cfg.DisableTests {
		cmds = append(cmds, TestCommand(cfg, srcDir))
	}
	cmds = append(cmds, InstallCommand(cfg, srcDir), SmokeCommand(cfg.InstallDir, cfg.Modules(), "<scratch>"))
	for _, cmd := range cmds {
		if err := add(Stage(cmd.Stage), cmd); err != nil {
			return nil, err
		}
	}
	note(StageCommit, "remove "+cfg.SnapshotDir()+" on success, move it back on failure")

	return plan, nil
}
