package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/permutation"
	"github.com/exchangelabs/permutest/internal/wizard"
)

// The scaffold datasets are the mouse survival data from Table 2.1 of
// Efron & Tibshirani, "An Introduction to the Bootstrap".
const (
	initControlData = `52
104
146
10
51
30
40
27
46
`
	initTreatmentData = `94
197
16
38
99
141
23
`
)

func newInitCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new study",
		Long: `Initialize a new study directory.

Creates a study.yaml spec file plus control.dat and treatment.dat sample
files populated with a classic textbook dataset, ready to run.

Use --interactive to collect the study name, description, and trial budget
through a guided form.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run guided study creation form")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	st := &models.Study{
		Name:        "mouse-survival",
		Description: "Survival days, treatment vs control (Efron & Tibshirani Table 2.1).",
		Samples: models.Samples{
			Control:   models.SampleRef{Path: "control.dat"},
			Treatment: models.SampleRef{Path: "treatment.dat"},
		},
		Config: permutation.Config{
			Workers:         permutation.DefaultWorkers,
			TrialsPerWorker: permutation.DefaultTrialsPerWorker,
		},
	}

	if interactive {
		wizStudy, err := wizard.RunStudyWizard(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		st = wizStudy
	}

	specData, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal study spec: %w", err)
	}

	specPath := filepath.Join(dir, "study.yaml")
	if err := os.WriteFile(specPath, specData, 0o644); err != nil {
		return fmt.Errorf("failed to write study.yaml: %w", err)
	}

	controlPath := filepath.Join(dir, "control.dat")
	if err := os.WriteFile(controlPath, []byte(initControlData), 0o644); err != nil {
		return fmt.Errorf("failed to write control.dat: %w", err)
	}

	treatmentPath := filepath.Join(dir, "treatment.dat")
	if err := os.WriteFile(treatmentPath, []byte(initTreatmentData), 0o644); err != nil {
		return fmt.Errorf("failed to write treatment.dat: %w", err)
	}

	// Print summary
	fmt.Fprintln(cmd.OutOrStdout(), "Initialized study:")          //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", specPath)             //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", controlPath)          //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", treatmentPath)        //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun it: permutest run %s\n", specPath) //nolint:errcheck

	return nil
}
