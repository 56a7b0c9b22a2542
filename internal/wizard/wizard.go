// Package wizard collects study metadata through an interactive form.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/permutation"
)

// RunStudyWizard runs an interactive huh form to collect study settings.
// The returned study references control.dat and treatment.dat, which the
// init command writes next to study.yaml.
func RunStudyWizard(in io.Reader, out io.Writer) (*models.Study, error) {
	var (
		name        = "my-study"
		description string
		workersRaw  = strconv.Itoa(permutation.DefaultWorkers)
		trialsRaw   = strconv.Itoa(permutation.DefaultTrialsPerWorker)
		seedRaw     string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Study name").
				Description("A short name for this study").
				Placeholder("my-study").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("study name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Description("What is being compared?").
				Placeholder("Treatment vs control").
				Value(&description),
			huh.NewInput().
				Title("Workers").
				Description("Number of parallel workers").
				Value(&workersRaw).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Trials per worker").
				Description("Permutation trials per worker").
				Value(&trialsRaw).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Seed").
				Description("Optional run seed for reproducible results (leave empty for entropy)").
				Value(&seedRaw).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
						return fmt.Errorf("seed must be an integer")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	workers, _ := strconv.Atoi(strings.TrimSpace(workersRaw))
	trials, _ := strconv.Atoi(strings.TrimSpace(trialsRaw))

	st := &models.Study{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Samples: models.Samples{
			Control:   models.SampleRef{Path: "control.dat"},
			Treatment: models.SampleRef{Path: "treatment.dat"},
		},
		Config: permutation.Config{
			Workers:         workers,
			TrialsPerWorker: trials,
		},
	}
	if s := strings.TrimSpace(seedRaw); s != "" {
		seed, _ := strconv.ParseInt(s, 10, 64)
		st.Config.Seed = &seed
	}

	return st, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
