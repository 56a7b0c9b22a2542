package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/stats"
	"github.com/exchangelabs/permutest/internal/study"
	"github.com/exchangelabs/permutest/internal/validation"
)

var checkDataDir string

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <study.yaml>",
		Short: "Validate a study file and its samples",
		Long: `Validate a study file without running any trials.

The study file is checked against the embedded JSON schema, then every
referenced sample source is opened and fully parsed. A summary table of the
loaded samples is printed on success.`,
		Args: cobra.ExactArgs(1),
		RunE: checkCommandE,
	}

	cmd.Flags().StringVar(&checkDataDir, "data-dir", "", "Base directory for relative sample paths (default: study file directory)")

	return cmd
}

func checkCommandE(cmd *cobra.Command, args []string) error {
	studyPath := args[0]

	schemaErrs, err := validation.ValidateStudyFile(studyPath)
	if err != nil {
		return err
	}
	if len(schemaErrs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: schema violations:\n", studyPath) //nolint:errcheck
		for _, e := range schemaErrs {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e) //nolint:errcheck
		}
		return fmt.Errorf("%s failed schema validation", studyPath)
	}

	st, err := models.LoadStudy(studyPath)
	if err != nil {
		return fmt.Errorf("failed to load study: %w", err)
	}

	baseDir := filepath.Dir(studyPath)
	if checkDataDir != "" {
		baseDir = checkDataDir
	}

	type checkedSample struct {
		label   string
		source  string
		summary stats.SampleSummary
	}

	var checked []checkedSample
	refs := []struct {
		label string
		ref   models.SampleRef
	}{
		{"control", st.Samples.Control},
		{"treatment", st.Samples.Treatment},
	}
	for _, s := range refs {
		src, err := study.Resolve(s.ref, s.label, baseDir)
		if err != nil {
			return err
		}
		data, err := src.Load(context.Background())
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("%s sample (%s) is empty", s.label, src.Describe())
		}
		checked = append(checked, checkedSample{
			label:   s.label,
			source:  src.Describe(),
			summary: stats.Describe(data),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Study %q is valid.\n\n", st.Name) //nolint:errcheck

	headers := []string{"Sample", "Source", "N", "Mean", "StdDev", "Min", "Max"}
	table := make([][]string, 0, len(checked))
	for _, c := range checked {
		table = append(table, []string{
			c.label,
			c.source,
			fmt.Sprintf("%d", c.summary.N),
			fmt.Sprintf("%.6f", c.summary.Mean),
			fmt.Sprintf("%.6f", c.summary.StdDev),
			fmt.Sprintf("%.6f", c.summary.Min),
			fmt.Sprintf("%.6f", c.summary.Max),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = padRight(cell, widths[i])
		}
		fmt.Fprintln(out, strings.TrimRight(strings.Join(parts, "  "), " ")) //nolint:errcheck
	}

	printRow(headers)
	for i, w := range widths {
		widthsLine := strings.Repeat("-", w)
		if i == 0 {
			fmt.Fprint(out, widthsLine) //nolint:errcheck
		} else {
			fmt.Fprint(out, "  "+widthsLine) //nolint:errcheck
		}
	}
	fmt.Fprintln(out) //nolint:errcheck
	for _, row := range table {
		printRow(row)
	}

	fmt.Fprintf(out, "\nTrial budget: %d workers x %d trials = %d total\n",
		st.Config.Workers, st.Config.TrialsPerWorker, st.Config.TotalTrials()) //nolint:errcheck

	return nil
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
