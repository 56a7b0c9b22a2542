package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/exchangelabs/permutest/internal/models"
)

// countPrinter groups digits in large counts (1,000,000) for readability.
var countPrinter = message.NewPrinter(language.English)

// FormatReport renders the column-aligned key/value report block. Verbose
// mode appends descriptive summaries for both samples.
func FormatReport(o *models.Outcome, verbose bool) string {
	rows := []struct {
		key   string
		value string
	}{
		{"mu_control", fmt.Sprintf("%f", o.Control.Mean)},
		{"N_control", fmt.Sprintf("%d", o.Control.N)},
		{"mu_treatment", fmt.Sprintf("%f", o.Treatment.Mean)},
		{"N_treatment", fmt.Sprintf("%d", o.Treatment.N)},
		{"(mu_treatment - mu_control)", fmt.Sprintf("%f", o.ObservedDiff)},
		{"p-value", fmt.Sprintf("%f", o.PValue)},
		{"result", o.Evidence},
	}

	extras := []struct {
		key   string
		value string
	}{
		{"trials", countPrinter.Sprintf("%d", o.Trials)},
		{"exceedances", countPrinter.Sprintf("%d", o.Exceedances)},
		{fmt.Sprintf("%.0f%% CI on diff", o.DiffCI.ConfidenceLevel*100), fmt.Sprintf("[%f, %f]", o.DiffCI.Lower, o.DiffCI.Upper)},
		{"elapsed", (time.Duration(o.DurationMs) * time.Millisecond).String()},
	}
	if o.Config.Seed != nil {
		extras = append(extras, struct{ key, value string }{"seed", fmt.Sprintf("%d", *o.Config.Seed)})
	}

	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.key); w > width {
			width = w
		}
	}
	for _, r := range extras {
		if w := runewidth.StringWidth(r.key); w > width {
			width = w
		}
	}

	var b strings.Builder
	if o.Study != "" {
		fmt.Fprintf(&b, "Study: %s\n", o.Study)
		if o.Description != "" {
			fmt.Fprintf(&b, "%s\n", o.Description)
		}
		b.WriteString("\n")
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s = %s\n", padLeft(r.key, width), r.value)
	}
	b.WriteString("\n")
	for _, r := range extras {
		fmt.Fprintf(&b, "%s = %s\n", padLeft(r.key, width), r.value)
	}

	if verbose {
		b.WriteString("\n")
		writeSummary(&b, o.Control)
		writeSummary(&b, o.Treatment)
	}

	return b.String()
}

func writeSummary(b *strings.Builder, s models.SampleReport) {
	fmt.Fprintf(b, "%s (%s):\n", s.Label, s.Source)
	fmt.Fprintf(b, "  n=%d  mean=%.6f  stddev=%.6f\n", s.Summary.N, s.Summary.Mean, s.Summary.StdDev)
	fmt.Fprintf(b, "  min=%.6f  q1=%.6f  median=%.6f  q3=%.6f  max=%.6f\n",
		s.Summary.Min, s.Summary.Q1, s.Summary.Median, s.Summary.Q3, s.Summary.Max)
}

// padLeft pads s with leading spaces so its terminal display width reaches width.
func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}

// FormatMarkdown renders the outcome as a markdown document; the dashboard
// converts it to HTML.
func FormatMarkdown(o *models.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", o.Study)
	if o.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", o.Description)
	}
	fmt.Fprintf(&b, "Run at %s over %s trials.\n\n",
		o.Timestamp.Format(time.RFC3339), countPrinter.Sprintf("%d", o.Trials))

	b.WriteString("| Quantity | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| mu_control | %f |\n", o.Control.Mean)
	fmt.Fprintf(&b, "| N_control | %d |\n", o.Control.N)
	fmt.Fprintf(&b, "| mu_treatment | %f |\n", o.Treatment.Mean)
	fmt.Fprintf(&b, "| N_treatment | %d |\n", o.Treatment.N)
	fmt.Fprintf(&b, "| observed difference | %f |\n", o.ObservedDiff)
	fmt.Fprintf(&b, "| p-value | %f |\n", o.PValue)
	fmt.Fprintf(&b, "| exceedances | %s |\n", countPrinter.Sprintf("%d", o.Exceedances))
	fmt.Fprintf(&b, "| %.0f%% CI on diff | [%f, %f] |\n",
		o.DiffCI.ConfidenceLevel*100, o.DiffCI.Lower, o.DiffCI.Upper)
	if o.Config.Seed != nil {
		fmt.Fprintf(&b, "| seed | %d |\n", *o.Config.Seed)
	}

	fmt.Fprintf(&b, "\n**%s**\n", o.Evidence)

	return b.String()
}
