package installer

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/meteoswiss/claw-release-tools/pkg/logging"
)

// State is the position of an attempt in the snapshot life cycle.
type State int

// NoSnapshot -> Snapshotted -> Committed | RolledBack
const (
	NoSnapshot State = iota
	Snapshotted
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case NoSnapshot:
		return "no-snapshot"
	case Snapshotted:
		return "snapshotted"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	}

	return "unknown"
}

// Step is one action guarded by the snapshot.
type Step struct {
	Stage Stage
	Run   func(ctx context.Context) error
}

// Outcome is the typed result of Orchestrator.Attempt.
type Outcome struct {
	State State
	// Snapshot is where the previous installation was kept during the attempt; empty if the
	// install directory held nothing.
	Snapshot string
	// Failed is the stage whose error ended the attempt.
	Failed Stage
	// Err is the error that ended the attempt.
	Err error
	// RollbackErr is set if the previous installation could not be put back.
	RollbackErr error
}

// Error returns nil for a clean commit and otherwise an error describing what failed and
// whether the previous installation was restored.
func (o Outcome) Error() error {
	if o.Err == nil && o.RollbackErr == nil {
		return nil
	}

	err := stageErr(o.Failed, o.Err)
	if o.RollbackErr != nil {
		return eris.Wrapf(err, "restoring the previous installation from %s failed too (%s)", o.Snapshot, o.RollbackErr)
	}

	return err
}

// Orchestrator moves an existing installation aside, runs the guarded steps and either
// discards or restores the moved installation. Nothing else may modify InstallDir or
// SnapshotDir while an attempt is running.
type Orchestrator struct {
	InstallDir  string
	SnapshotDir string
}

// isEmptyDir reports whether path is a directory without entries. A missing path counts as
// empty.
func isEmptyDir(path string) (exists bool, empty bool, err error) {
	handle, err := os.Open(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return false, true, nil
		}
		return false, false, eris.Wrapf(err, "Failed to open %s", path)
	}
	defer handle.Close()

	info, err := handle.Stat()
	if err != nil {
		return false, false, eris.Wrapf(err, "Failed to check %s", path)
	}
	if !info.IsDir() {
		return true, false, eris.Errorf("%s is not a directory", path)
	}

	_, err = handle.Readdirnames(1)
	if err == io.EOF {
		return true, true, nil
	}
	if err != nil {
		return true, false, eris.Wrapf(err, "Failed to read %s", path)
	}

	return true, false, nil
}

// Attempt runs steps in order, each gating the next. Every step must belong to a stage that
// rolls back; otherwise nothing is touched.
func (o *Orchestrator) Attempt(ctx context.Context, steps []Step) Outcome {
	logger := logging.Log(ctx)
	outcome := Outcome{State: NoSnapshot}

	for _, step := range steps {
		if !step.Stage.RollsBack() {
			outcome.Failed = step.Stage
			outcome.Err = eris.Errorf("stage %s cannot be guarded by a snapshot", step.Stage)
			return outcome
		}
	}

	existed, empty, err := isEmptyDir(o.InstallDir)
	if err != nil {
		outcome.Failed, outcome.Err = StageSnapshot, err
		return outcome
	}

	if _, err := os.Lstat(o.SnapshotDir); err == nil {
		outcome.Failed = StageSnapshot
		outcome.Err = eris.Errorf("%s already exists, refusing to overwrite it", o.SnapshotDir)
		return outcome
	}

	if existed && !empty {
		logger.Info().Str("stage", string(StageSnapshot)).Msgf("Moving %s to %s", o.InstallDir, o.SnapshotDir)
		err = os.Rename(o.InstallDir, o.SnapshotDir)
		if err != nil {
			outcome.Failed = StageSnapshot
			outcome.Err = eris.Wrapf(err, "Failed to move %s to %s", o.InstallDir, o.SnapshotDir)
			return outcome
		}

		outcome.State = Snapshotted
		outcome.Snapshot = o.SnapshotDir
	}

	for _, step := range steps {
		if err = ctx.Err(); err == nil {
			err = step.Run(ctx)
		}

		if err != nil {
			outcome.Failed = step.Stage
			outcome.Err = err
			logger.Error().Str("stage", string(step.Stage)).Msg("Restoring old install")
			outcome.RollbackErr = o.rollback(outcome.Snapshot, existed)
			outcome.State = RolledBack
			return outcome
		}
	}

	outcome.State = Committed
	if outcome.Snapshot != "" {
		logger.Info().Str("stage", string(StageCommit)).Msgf("Removing %s", outcome.Snapshot)
		err = os.RemoveAll(outcome.Snapshot)
		if err != nil {
			outcome.Failed = StageCommit
			outcome.Err = eris.Wrapf(err, "installed successfully but failed to remove %s", outcome.Snapshot)
		}
	}

	return outcome
}

// rollback removes whatever the failed attempt left in the install directory and puts the
// snapshot back. Without a snapshot the directory is left as it was found: empty or absent.
func (o *Orchestrator) rollback(snapshot string, existed bool) error {
	err := os.RemoveAll(o.InstallDir)
	if err != nil {
		return eris.Wrapf(err, "Failed to remove partial install %s", o.InstallDir)
	}

	if snapshot != "" {
		err = os.Rename(snapshot, o.InstallDir)
		if err != nil {
			return eris.Wrapf(err, "Failed to move %s back to %s", snapshot, o.InstallDir)
		}
		return nil
	}

	if existed {
		err = os.Mkdir(o.InstallDir, 0755)
		if err != nil {
			return eris.Wrapf(err, "Failed to recreate %s", o.InstallDir)
		}
	}

	return nil
}
