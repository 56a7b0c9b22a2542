package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/exchangelabs/permutest/internal/models"
)

var compareOutputFormat string

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <result1.json> <result2.json> [result3.json ...]",
		Short: "Compare multiple saved study results",
		Long: `Compare results from multiple study runs side by side.

Loads two or more result JSON files (written with 'run --output') and shows
the p-values, means, observed differences, and evidence classifications next
to each other, with deltas between the first and last file.`,
		Args: cobra.MinimumNArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareOutputFormat, "format", "f", "table", "Output format: table or json")

	return cmd
}

// comparisonReport is the full comparison output.
type comparisonReport struct {
	Files       []string  `json:"files"`
	Studies     []string  `json:"studies"`
	PValues     []float64 `json:"p_values"`
	Diffs       []float64 `json:"observed_diffs"`
	Evidence    []string  `json:"evidence"`
	Trials      []int64   `json:"trials"`
	PValueDelta float64   `json:"p_value_delta"`
	DiffDelta   float64   `json:"observed_diff_delta"`
}

func compareCommandE(_ *cobra.Command, args []string) error {
	if compareOutputFormat != "table" && compareOutputFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", compareOutputFormat)
	}

	outcomes := make([]*models.Outcome, 0, len(args))
	for _, path := range args {
		o, err := models.LoadOutcome(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		outcomes = append(outcomes, o)
	}

	report := buildComparisonReport(args, outcomes)

	if compareOutputFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printComparisonTable(report)
	return nil
}

func buildComparisonReport(files []string, outcomes []*models.Outcome) *comparisonReport {
	r := &comparisonReport{Files: files}
	for _, o := range outcomes {
		r.Studies = append(r.Studies, o.Study)
		r.PValues = append(r.PValues, o.PValue)
		r.Diffs = append(r.Diffs, o.ObservedDiff)
		r.Evidence = append(r.Evidence, o.Evidence)
		r.Trials = append(r.Trials, o.Trials)
	}
	first, last := outcomes[0], outcomes[len(outcomes)-1]
	r.PValueDelta = last.PValue - first.PValue
	r.DiffDelta = last.ObservedDiff - first.ObservedDiff
	return r
}

func printComparisonTable(r *comparisonReport) {
	fmt.Println()
	fmt.Println("═" + strings.Repeat("═", 70))
	fmt.Println(" RESULT COMPARISON")
	fmt.Println("═" + strings.Repeat("═", 70))
	fmt.Println()
	fmt.Printf("%-24s %-10s %-12s %-10s %s\n", "Study", "p-value", "diff", "trials", "evidence")
	fmt.Println("─" + strings.Repeat("─", 70))

	for i := range r.Studies {
		fmt.Printf("%-24s %-10.6f %-12.6f %-10d %s\n",
			truncateName(r.Studies[i], 24), r.PValues[i], r.Diffs[i], r.Trials[i], r.Evidence[i])
	}

	fmt.Println()
	fmt.Printf("p-value delta (last - first): %+.6f\n", r.PValueDelta)
	fmt.Printf("observed diff delta:          %+.6f\n", r.DiffDelta)
	if math.Signbit(r.PValueDelta) {
		fmt.Println("Evidence strengthened between first and last run.")
	} else if r.PValueDelta > 0 {
		fmt.Println("Evidence weakened between first and last run.")
	}
	fmt.Println()
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}
