package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangelabs/permutest/internal/models"
)

// executeCommand runs the CLI with a fresh command tree, so package-level
// flag variables are re-registered with their defaults between tests.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeStudyDir scaffolds a runnable seeded study with a small trial budget.
func writeStudyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"study.yaml": `name: mouse-survival
description: survival days
samples:
  control: control.dat
  treatment: treatment.dat
config:
  workers: 10
  trials_per_worker: 500
  seed: 42
`,
		"control.dat":   "52\n104\n146\n10\n51\n30\n40\n27\n46\n",
		"treatment.dat": "94\n197\n16\n38\n99\n141\n23\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestRunCommand_StudyFile(t *testing.T) {
	dir := writeStudyDir(t)
	out := filepath.Join(dir, "outcome.json")

	_, err := executeCommand(t, "run", filepath.Join(dir, "study.yaml"), "--output", out)
	require.NoError(t, err)

	outcome, err := models.LoadOutcome(out)
	require.NoError(t, err)
	assert.Equal(t, "mouse-survival", outcome.Study)
	assert.Equal(t, 9, outcome.Control.N)
	assert.Equal(t, 7, outcome.Treatment.N)
	assert.InDelta(t, 30.634921, outcome.ObservedDiff, 1e-5)
	assert.InDelta(t, 0.139, outcome.PValue, 0.03)
	assert.Equal(t, int64(5000), outcome.Trials)
	require.NotNil(t, outcome.Config.Seed)
	assert.Equal(t, int64(42), *outcome.Config.Seed)
}

func TestRunCommand_AdHocSamples(t *testing.T) {
	dir := writeStudyDir(t)
	out := filepath.Join(dir, "outcome.json")

	_, err := executeCommand(t, "run",
		filepath.Join(dir, "control.dat"), filepath.Join(dir, "treatment.dat"),
		"--workers", "10", "--trials-per-worker", "500", "--seed", "7",
		"--output", out)
	require.NoError(t, err)

	outcome, err := models.LoadOutcome(out)
	require.NoError(t, err)
	assert.Equal(t, "ad-hoc", outcome.Study)
	assert.Equal(t, int64(5000), outcome.Trials)
	require.NotNil(t, outcome.Config.Seed)
	assert.Equal(t, int64(7), *outcome.Config.Seed)
	assert.InDelta(t, 0.139, outcome.PValue, 0.03)
}

func TestRunCommand_SeededRunsAreReproducible(t *testing.T) {
	dir := writeStudyDir(t)
	outA := filepath.Join(dir, "a.json")
	outB := filepath.Join(dir, "b.json")

	_, err := executeCommand(t, "run", filepath.Join(dir, "study.yaml"), "--output", outA)
	require.NoError(t, err)
	_, err = executeCommand(t, "run", filepath.Join(dir, "study.yaml"), "--output", outB)
	require.NoError(t, err)

	a, err := models.LoadOutcome(outA)
	require.NoError(t, err)
	b, err := models.LoadOutcome(outB)
	require.NoError(t, err)
	assert.Equal(t, a.PValue, b.PValue)
	assert.Equal(t, a.Exceedances, b.Exceedances)
	assert.Equal(t, a.DiffCI, b.DiffCI)
}

func TestRunCommand_GateTripped(t *testing.T) {
	dir := writeStudyDir(t)
	junit := filepath.Join(dir, "junit.xml")

	// The mouse data sits around p=0.14, so a 0.05 gate must trip.
	_, err := executeCommand(t, "run", filepath.Join(dir, "study.yaml"),
		"--fail-above", "0.05", "--junit", junit)
	require.Error(t, err)

	var gateErr *GateError
	require.True(t, errors.As(err, &gateErr), "expected a GateError, got %T: %v", err, err)
	assert.Contains(t, gateErr.Message, "at or above threshold")

	data, err := os.ReadFile(junit)
	require.NoError(t, err)
	assert.Contains(t, string(data), `failures="1"`)
	assert.Contains(t, string(data), "SignificanceGate")
}

func TestRunCommand_GatePasses(t *testing.T) {
	dir := writeStudyDir(t)

	_, err := executeCommand(t, "run", filepath.Join(dir, "study.yaml"), "--fail-above", "0.5")
	assert.NoError(t, err)
}

func TestRunCommand_Cache(t *testing.T) {
	dir := writeStudyDir(t)
	cacheDir := filepath.Join(dir, "cache")

	_, err := executeCommand(t, "run", filepath.Join(dir, "study.yaml"),
		"--cache", "--cache-dir", cacheDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, filepath.Ext(entries[0].Name()) == ".gz")

	// A second run hits the cache; either way the result must be identical.
	out := filepath.Join(dir, "cached.json")
	_, err = executeCommand(t, "run", filepath.Join(dir, "study.yaml"),
		"--cache", "--cache-dir", cacheDir, "--output", out)
	require.NoError(t, err)

	outcome, err := models.LoadOutcome(out)
	require.NoError(t, err)
	assert.Equal(t, "mouse-survival", outcome.Study)
}

func TestRunCommand_Errors(t *testing.T) {
	dir := writeStudyDir(t)

	t.Run("missing study file", func(t *testing.T) {
		_, err := executeCommand(t, "run", filepath.Join(dir, "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load study")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := executeCommand(t, "run", filepath.Join(dir, "study.yaml"), "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})

	t.Run("invalid trial budget", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte(
			"name: x\nsamples:\n  control: control.dat\n  treatment: treatment.dat\nconfig:\n  workers: -1\n"), 0o644))
		_, err := executeCommand(t, "run", bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workers must be at least 1")
	})
}

func TestResolveStudy_FlagOverrides(t *testing.T) {
	dir := writeStudyDir(t)

	cmd := newRunCommand()
	require.NoError(t, cmd.Flags().Set("workers", "3"))
	require.NoError(t, cmd.Flags().Set("trials-per-worker", "77"))
	require.NoError(t, cmd.Flags().Set("seed", "99"))

	st, baseDir, err := resolveStudy(cmd, []string{filepath.Join(dir, "study.yaml")})
	require.NoError(t, err)
	assert.Equal(t, dir, baseDir)
	assert.Equal(t, 3, st.Config.Workers)
	assert.Equal(t, 77, st.Config.TrialsPerWorker)
	require.NotNil(t, st.Config.Seed)
	assert.Equal(t, int64(99), *st.Config.Seed)
}

func TestResolveStudy_StudySeedKeptWithoutFlag(t *testing.T) {
	dir := writeStudyDir(t)

	st, _, err := resolveStudy(newRunCommand(), []string{filepath.Join(dir, "study.yaml")})
	require.NoError(t, err)
	require.NotNil(t, st.Config.Seed)
	assert.Equal(t, int64(42), *st.Config.Seed)
}
