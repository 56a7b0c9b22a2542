package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/exchangelabs/permutest/internal/permutation"
	"github.com/exchangelabs/permutest/internal/stats"
)

// SampleReport describes one observed sample as it entered the test.
type SampleReport struct {
	Label   string              `json:"label"`
	Source  string              `json:"source"`
	N       int                 `json:"n"`
	Mean    float64             `json:"mean"`
	Summary stats.SampleSummary `json:"summary"`
}

// Outcome is the complete result of one study run.
type Outcome struct {
	Study       string    `json:"study"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	Control   SampleReport `json:"control"`
	Treatment SampleReport `json:"treatment"`

	// ObservedDiff is mean(treatment) - mean(control) of the real labeling.
	ObservedDiff float64 `json:"observed_diff"`

	PValue      float64 `json:"p_value"`
	Evidence    string  `json:"evidence"`
	Exceedances int64   `json:"exceedances"`
	Trials      int64   `json:"trials"`

	// DiffCI is a bootstrap confidence interval on the observed difference,
	// reported alongside the p-value as effect-size uncertainty.
	DiffCI stats.ConfidenceInterval `json:"diff_ci"`

	// Config is the effective engine configuration, including the seed the
	// run actually used when one was set.
	Config permutation.Config `json:"config"`

	DurationMs int64 `json:"duration_ms"`
}

// SaveOutcome writes the outcome as indented JSON.
func SaveOutcome(o *Outcome, path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadOutcome reads an outcome saved by SaveOutcome.
func LoadOutcome(path string) (*Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outcome file: %w", err)
	}
	var o Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &o, nil
}
