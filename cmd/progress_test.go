package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoswiss/claw-release-tools/pkg/installer"
)

func TestAbortProgressClearsBar(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("JENKINS_URL", "")

	var out bytes.Buffer
	bar := getProgressBar(&out, stageCount(false), "Installing CLAW v2.0.2")
	stageProgress(bar)(installer.StageValidate)
	require.Contains(t, out.String(), "Checking input arguments")

	abortProgress(bar)
	last := out.String()[strings.LastIndex(out.String(), "\r"):]
	assert.Equal(t, "\r", last, "the bar must end cleared with the cursor at the line start")
	assert.NotContains(t, out.String(), "\n")
}

func TestProgressHiddenOnCI(t *testing.T) {
	t.Setenv("CI", "true")

	var out bytes.Buffer
	bar := getProgressBar(&out, stageCount(true), "Installing CLAW v2.0.2")
	stageProgress(bar)(installer.StageBuild)
	abortProgress(bar)
	assert.Empty(t, out.String())
}
