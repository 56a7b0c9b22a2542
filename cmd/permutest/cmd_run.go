package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/exchangelabs/permutest/internal/cache"
	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/reporting"
	"github.com/exchangelabs/permutest/internal/study"
)

var (
	runWorkers    int
	runTrials     int
	runSeed       int64
	runOutputPath string
	runFormat     string
	runVerbose    bool
	runDataDir    string
	enableCache   bool
	disableCache  bool
	runCacheDir   string
	runCacheClear bool
	runJUnitPath  string
	runFailAbove  float64
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <study.yaml> | run <control.dat> <treatment.dat>",
		Short: "Run a permutation test",
		Long: `Run a two-sample permutation test.

With one argument, the study file defines the samples and the trial budget.
With two arguments, the files are read directly as control and treatment
observations (one float per line) and an ad-hoc study is run with defaults.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCommandE,
	}

	cmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of parallel workers (overrides study config)")
	cmd.Flags().IntVar(&runTrials, "trials-per-worker", 0, "Trials per worker (overrides study config)")
	cmd.Flags().Int64Var(&runSeed, "seed", 0, "Run seed for reproducible results (overrides study config)")
	cmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "Output JSON file for the full result")
	cmd.Flags().StringVar(&runFormat, "format", "default", "Output format: default, json")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output with progress and sample summaries")
	cmd.Flags().StringVar(&runDataDir, "data-dir", "", "Base directory for relative sample paths (default: study file directory)")
	cmd.Flags().BoolVar(&enableCache, "cache", false, "Enable result caching (seeded runs only)")
	cmd.Flags().BoolVar(&disableCache, "no-cache", false, "Disable result caching (default)")
	cmd.Flags().StringVar(&runCacheDir, "cache-dir", ".permutest-cache", "Cache directory for storing results")
	cmd.Flags().BoolVar(&runCacheClear, "cache-clear", false, "Clear the cache directory before running")
	cmd.Flags().StringVar(&runJUnitPath, "junit", "", "Write a JUnit XML report to this path")
	cmd.Flags().Float64Var(&runFailAbove, "fail-above", -1, "Exit 1 when the p-value is at or above this threshold")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	st, baseDir, err := resolveStudy(cmd, args)
	if err != nil {
		return err
	}

	// Setup cache if enabled. Unseeded runs are not reproducible, so their
	// outcomes are never cached.
	var resultCache *cache.Cache
	useCaching := enableCache && !disableCache

	if useCaching && st.Config.Seed == nil {
		fmt.Println("Note: Caching disabled for unseeded runs (results are not reproducible)")
		useCaching = false
	}

	if useCaching || runCacheClear {
		absCacheDir, err := filepath.Abs(runCacheDir)
		if err != nil {
			return fmt.Errorf("resolving cache directory: %w", err)
		}
		resultCache = cache.New(absCacheDir)
		if runCacheClear {
			if err := resultCache.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
		}
		if runVerbose && useCaching {
			fmt.Printf("Cache enabled: %s\n", absCacheDir)
		}
	}

	fmt.Printf("Running study: %s\n", st.Name)
	fmt.Printf("Control: %s\n", st.Samples.Control.Path)
	fmt.Printf("Treatment: %s\n", st.Samples.Treatment.Path)
	fmt.Printf("Trials: %d workers x %d = %d\n",
		st.Config.Workers, st.Config.TrialsPerWorker, st.Config.TotalTrials())
	fmt.Println()

	var outcome *models.Outcome

	var cacheKey string
	if useCaching {
		cacheKey, err = cache.Key(st, baseDir)
		if err != nil {
			return fmt.Errorf("computing cache key: %w", err)
		}
		if hit, ok := resultCache.Get(cacheKey); ok {
			outcome = hit
			fmt.Println("Result loaded from cache.")
		}
	}

	if outcome == nil {
		runner := study.NewRunner(st, study.WithBaseDir(baseDir))
		if runVerbose {
			runner.OnProgress(verboseProgressListener)
		}

		outcome, err = runner.Run(context.Background())
		if err != nil {
			return err
		}

		if useCaching {
			if err := resultCache.Put(cacheKey, outcome); err != nil {
				return fmt.Errorf("caching result: %w", err)
			}
		}
	}

	switch runFormat {
	case "default":
		fmt.Print(reporting.FormatReport(outcome, runVerbose))
	case "json":
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("unknown output format: %s (supported: default, json)", runFormat)
	}

	if runOutputPath != "" {
		if err := models.SaveOutcome(outcome, runOutputPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Printf("\nResult saved to: %s\n", runOutputPath)
	}

	// Significance gate: trips when the p-value fails to clear the threshold.
	gateTripped := runFailAbove >= 0 && outcome.PValue >= runFailAbove
	gateMessage := ""
	if gateTripped {
		gateMessage = fmt.Sprintf("p-value %f is at or above threshold %f", outcome.PValue, runFailAbove)
	}

	if runJUnitPath != "" {
		if err := reporting.WriteJUnitXML(outcome, gateTripped, gateMessage, runJUnitPath); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		fmt.Printf("JUnit report saved to: %s\n", runJUnitPath)
	}

	if gateTripped {
		return &GateError{Message: gateMessage}
	}

	return nil
}

// resolveStudy builds the study to run from the command arguments: a study
// file, or two observation files run as an ad-hoc study.
func resolveStudy(cmd *cobra.Command, args []string) (*models.Study, string, error) {
	var st *models.Study
	var baseDir string

	if len(args) == 1 {
		loaded, err := models.LoadStudy(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("failed to load study: %w", err)
		}
		st = loaded
		baseDir = filepath.Dir(args[0])
	} else {
		st = &models.Study{
			Name: "ad-hoc",
			Samples: models.Samples{
				Control:   models.SampleRef{Path: args[0]},
				Treatment: models.SampleRef{Path: args[1]},
			},
		}
		st.ApplyDefaults()
	}

	if runDataDir != "" {
		baseDir = runDataDir
	}

	// CLI flags override study config
	if runWorkers > 0 {
		st.Config.Workers = runWorkers
	}
	if runTrials > 0 {
		st.Config.TrialsPerWorker = runTrials
	}
	if cmd.Flags().Changed("seed") {
		seed := runSeed
		st.Config.Seed = &seed
	}

	if err := st.Validate(); err != nil {
		return nil, "", err
	}

	return st, baseDir, nil
}

func verboseProgressListener(event study.ProgressEvent) {
	switch event.EventType {
	case study.EventLoadStart:
		fmt.Printf("Loading %s sample: %s\n", event.Sample, event.Source)
	case study.EventLoadComplete:
		fmt.Printf("  %d observations (%v)\n", event.N, time.Duration(event.DurationMs)*time.Millisecond)
	case study.EventTrialsStart:
		fmt.Printf("Running %d permutation trials...\n", event.Trials)
	case study.EventTrialsComplete:
		fmt.Printf("  done (%v)\n\n", time.Duration(event.DurationMs)*time.Millisecond)
	}
}
