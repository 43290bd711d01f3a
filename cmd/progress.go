package cmd

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/meteoswiss/claw-release-tools/pkg"
	"github.com/meteoswiss/claw-release-tools/pkg/installer"
)

func getProgressBar(w io.Writer, length int, desc string) *progressbar.ProgressBar {
	if pkg.IsCI() {
		return progressbar.NewOptions(length, progressbar.OptionSetVisibility(false),
			progressbar.OptionSetWriter(io.Discard))
	}

	return progressbar.NewOptions(length, progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(w), progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}

// abortProgress removes a partially drawn bar so error output starts on a clean line.
func abortProgress(bar *progressbar.ProgressBar) {
	_ = bar.Clear()
}

// stageCount is the number of stages Workflow.Run reports through OnStage.
func stageCount(disableTests bool) int {
	if disableTests {
		return 8
	}
	return 9
}

// stageProgress advances bar once per started stage.
func stageProgress(bar *progressbar.ProgressBar) func(installer.Stage) {
	return func(stage installer.Stage) {
		bar.Describe(stage.Title())
		_ = bar.Add(1)
	}
}
