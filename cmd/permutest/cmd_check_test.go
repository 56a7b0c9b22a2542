package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommand_ValidStudy(t *testing.T) {
	dir := writeStudyDir(t)

	out, err := executeCommand(t, "check", filepath.Join(dir, "study.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, `Study "mouse-survival" is valid.`)
	assert.Contains(t, out, "Sample")
	assert.Contains(t, out, "control")
	assert.Contains(t, out, "treatment")
	assert.Contains(t, out, "56.222222")
	assert.Contains(t, out, "86.857143")
	assert.Contains(t, out, "Trial budget: 10 workers x 500 trials = 5000 total")
}

func TestCheckCommand_SchemaViolations(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "study.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\nbudget: big\nsamples:\n  control: a.dat\n  treatment: b.dat\n"), 0o644))

	out, err := executeCommand(t, "check", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed schema validation")
	assert.Contains(t, out, "schema violations")
}

func TestCheckCommand_MissingSampleFile(t *testing.T) {
	dir := t.TempDir()
	study := filepath.Join(dir, "study.yaml")
	require.NoError(t, os.WriteFile(study, []byte("name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\n"), 0o644))

	_, err := executeCommand(t, "check", study)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control sample")
}

func TestCheckCommand_EmptySample(t *testing.T) {
	dir := writeStudyDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "control.dat"), nil, 0o644))

	_, err := executeCommand(t, "check", filepath.Join(dir, "study.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestCheckCommand_CSVColumn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trial.csv"),
		[]byte("days_c,days_t\n52,94\n104,197\n146,16\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "study.yaml"), []byte(`
name: csv-study
samples:
  control: {path: trial.csv, column: days_c}
  treatment: {path: trial.csv, column: days_t}
`), 0o644))

	out, err := executeCommand(t, "check", filepath.Join(dir, "study.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "trial.csv#days_c")
	assert.Contains(t, out, "trial.csv#days_t")
}
