package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/permutation"
	"github.com/exchangelabs/permutest/internal/stats"
)

func mouseOutcome() *models.Outcome {
	seed := int64(42)
	return &models.Outcome{
		Study:       "mouse-survival",
		Description: "Efron & Tibshirani Table 2.1",
		Timestamp:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Control: models.SampleReport{
			Label: "control", Source: "control.dat", N: 9, Mean: 56.222222,
			Summary: stats.SampleSummary{N: 9, Mean: 56.222222, StdDev: 42.476, Min: 10, Max: 146, Q1: 30, Median: 46, Q3: 52},
		},
		Treatment: models.SampleReport{
			Label: "treatment", Source: "treatment.dat", N: 7, Mean: 86.857143,
			Summary: stats.SampleSummary{N: 7, Mean: 86.857143, StdDev: 66.766, Min: 16, Max: 197, Q1: 23, Median: 94, Q3: 141},
		},
		ObservedDiff: 30.634921,
		PValue:       0.1404,
		Evidence:     EvidenceNone,
		Exceedances:  140400,
		Trials:       1000000,
		DiffCI: stats.ConfidenceInterval{
			Lower: -10.5, Upper: 70.2, Point: 30.634921,
			ConfidenceLevel: 0.95, NumBootstraps: 10000,
		},
		Config:     permutation.Config{Workers: 1000, TrialsPerWorker: 1000, Seed: &seed},
		DurationMs: 1234,
	}
}

func TestFormatReport_Contents(t *testing.T) {
	out := FormatReport(mouseOutcome(), false)

	assert.Contains(t, out, "Study: mouse-survival")
	assert.Contains(t, out, "Efron & Tibshirani Table 2.1")
	assert.Contains(t, out, "mu_control = 56.222222")
	assert.Contains(t, out, "N_control = 9")
	assert.Contains(t, out, "mu_treatment = 86.857143")
	assert.Contains(t, out, "N_treatment = 7")
	assert.Contains(t, out, "(mu_treatment - mu_control) = 30.634921")
	assert.Contains(t, out, "p-value = 0.140400")
	assert.Contains(t, out, "result = "+EvidenceNone)
	assert.Contains(t, out, "trials = 1,000,000")
	assert.Contains(t, out, "exceedances = 140,400")
	assert.Contains(t, out, "95% CI on diff = [-10.500000, 70.200000]")
	assert.Contains(t, out, "seed = 42")
	assert.NotContains(t, out, "stddev=", "summaries only appear in verbose mode")
}

func TestFormatReport_Alignment(t *testing.T) {
	out := FormatReport(mouseOutcome(), false)

	// Every key/value line is right-aligned on a shared " = " column.
	col := -1
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, " = ")
		if idx < 0 {
			continue
		}
		if col == -1 {
			col = idx
		}
		assert.Equal(t, col, idx, "misaligned line: %q", line)
	}
	require.NotEqual(t, -1, col, "report should contain aligned key/value lines")
}

func TestFormatReport_Verbose(t *testing.T) {
	out := FormatReport(mouseOutcome(), true)

	assert.Contains(t, out, "control (control.dat):")
	assert.Contains(t, out, "treatment (treatment.dat):")
	assert.Contains(t, out, "n=9")
	assert.Contains(t, out, "median=46.000000")
}

func TestFormatReport_NoSeedNoStudyName(t *testing.T) {
	o := mouseOutcome()
	o.Study = ""
	o.Description = ""
	o.Config.Seed = nil

	out := FormatReport(o, false)
	assert.NotContains(t, out, "Study:")
	assert.NotContains(t, out, "seed =")
}

func TestFormatMarkdown(t *testing.T) {
	out := FormatMarkdown(mouseOutcome())

	assert.True(t, strings.HasPrefix(out, "# mouse-survival\n"))
	assert.Contains(t, out, "| Quantity | Value |")
	assert.Contains(t, out, "| p-value | 0.140400 |")
	assert.Contains(t, out, "| observed difference | 30.634921 |")
	assert.Contains(t, out, "1,000,000 trials")
	assert.Contains(t, out, "| seed | 42 |")
	assert.Contains(t, out, "**"+EvidenceNone+"**")
}
