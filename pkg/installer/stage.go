// Package installer builds, installs and smoke-tests a CLAW release, moving any previous
// installation aside first and putting it back if anything after that point fails.
package installer

import (
	"fmt"

	"github.com/meteoswiss/claw-release-tools/pkg/source"
)

// Stage names one step of the install workflow.
type Stage string

// Stages in the order the workflow runs them.
const (
	StageValidate   Stage = "validate"
	StageAcquire    Stage = source.StageAcquire
	StagePatch      Stage = "patch"
	StageConfigure  Stage = "configure"
	StageSnapshot   Stage = "snapshot"
	StageBuild      Stage = "build"
	StageTest       Stage = "test"
	StageInstall    Stage = "install"
	StageSmokeCheck Stage = "smoke-check"
	StageCommit     Stage = "commit"
)

var stageTitles = map[Stage]string{
	StageValidate:   "Checking input arguments",
	StageAcquire:    "Checking out source",
	StagePatch:      "Patching source",
	StageConfigure:  "Configuring build",
	StageSnapshot:   "Backing up old install",
	StageBuild:      "Building",
	StageTest:       "Testing",
	StageInstall:    "Installing",
	StageSmokeCheck: "Performing sanity check on install",
	StageCommit:     "Removing old install",
}

// Title is a short human-readable description of the stage.
func (s Stage) Title() string {
	if title, ok := stageTitles[s]; ok {
		return title
	}

	return string(s)
}

// RollsBack reports whether a failure in this stage restores the previous installation.
func (s Stage) RollsBack() bool {
	switch s {
	case StageBuild, StageTest, StageInstall, StageSmokeCheck:
		return true
	}

	return false
}

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage.Title(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}

	if se, ok := err.(*StageError); ok {
		return se
	}

	return &StageError{Stage: stage, Err: err}
}
