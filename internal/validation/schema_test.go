package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStudyBytes_Valid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "minimal scalar refs",
			yaml: "name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\n",
		},
		{
			name: "mapping refs with column and format",
			yaml: `
name: trial
description: csv columns
samples:
  control: {path: trial.csv, column: days_c, format: csv}
  treatment: {path: trial.csv, column: days_t, format: csv}
config:
  workers: 100
  trials_per_worker: 1000
  seed: 42
`,
		},
		{
			name: "negative seed is a valid integer",
			yaml: "name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\nconfig:\n  seed: -5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ValidateStudyBytes([]byte(tt.yaml)))
		})
	}
}

func TestValidateStudyBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "samples:\n  control: a.dat\n  treatment: b.dat\n"},
		{"missing samples", "name: x\n"},
		{"missing treatment", "name: x\nsamples:\n  control: a.dat\n"},
		{"empty sample path", "name: x\nsamples:\n  control: \"\"\n  treatment: b.dat\n"},
		{"unknown top-level key", "name: x\nbudget: big\nsamples:\n  control: a.dat\n  treatment: b.dat\n"},
		{"zero workers", "name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\nconfig:\n  workers: 0\n"},
		{"workers as string", "name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\nconfig:\n  workers: many\n"},
		{"bad format enum", "name: x\nsamples:\n  control: {path: a.bin, format: parquet}\n  treatment: b.dat\n"},
		{"mapping ref without path", "name: x\nsamples:\n  control: {column: days}\n  treatment: b.dat\n"},
		{"unparseable yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := ValidateStudyBytes([]byte(tt.yaml))
			assert.NotEmpty(t, problems)
		})
	}
}

func TestValidateStudyBytes_ReportsLocation(t *testing.T) {
	problems := ValidateStudyBytes([]byte("name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\nconfig:\n  workers: 0\n"))
	require.NotEmpty(t, problems)

	found := false
	for _, p := range problems {
		if strings.Contains(p, "/config/workers") {
			found = true
		}
	}
	assert.True(t, found, "expected a problem at /config/workers, got %v", problems)
}

func TestValidateStudyFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("name: x\nsamples:\n  control: a.dat\n  treatment: b.dat\n"), 0o644))

	problems, err := ValidateStudyFile(good)
	require.NoError(t, err)
	assert.Empty(t, problems)

	_, err = ValidateStudyFile(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading study file")
}
