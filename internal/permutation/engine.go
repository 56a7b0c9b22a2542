package permutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/exchangelabs/permutest/internal/stats"
)

// Default trial budget: 1000 workers times 1000 trials per worker for
// 1,000,000 total trials.
const (
	DefaultWorkers         = 1000
	DefaultTrialsPerWorker = 1000
)

// ErrEmptySample is returned when either observation sequence is empty;
// the mean, and therefore the test statistic, is undefined.
var ErrEmptySample = errors.New("sample is empty: mean is undefined")

// Config controls the trial budget and randomization of one engine run.
type Config struct {
	// Workers is the number of independent parallel tasks. Each is a
	// goroutine, so the default of 1000 is a task count handed to the
	// runtime scheduler, not an OS thread count.
	Workers int `yaml:"workers,omitempty" json:"workers"`

	// TrialsPerWorker is the number of permutation trials each worker runs.
	TrialsPerWorker int `yaml:"trials_per_worker,omitempty" json:"trials_per_worker"`

	// Seed makes the run reproducible: each worker's generator is seeded
	// deterministically from the run seed and the worker index. When nil,
	// worker seeds are drawn from a non-deterministic source.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// DefaultConfig returns the default trial budget with non-deterministic seeding.
func DefaultConfig() Config {
	return Config{
		Workers:         DefaultWorkers,
		TrialsPerWorker: DefaultTrialsPerWorker,
	}
}

// Validate checks that the trial budget is usable.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.TrialsPerWorker < 1 {
		return fmt.Errorf("trials_per_worker must be at least 1, got %d", c.TrialsPerWorker)
	}
	return nil
}

// TotalTrials returns the total trial budget Workers * TrialsPerWorker.
func (c Config) TotalTrials() int64 {
	return int64(c.Workers) * int64(c.TrialsPerWorker)
}

// Result carries the aggregate outcome of one engine run.
type Result struct {
	// PValue is the tail-corrected one-sided p-value.
	PValue float64 `json:"p_value"`

	// Exceedances is the number of trials whose permuted mean difference
	// strictly exceeded the observed difference, summed over all workers.
	Exceedances int64 `json:"exceedances"`

	// Trials is the total number of trials run.
	Trials int64 `json:"trials"`
}

// Engine runs two-sample permutation tests.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine with the given config. The config is validated once
// here so a misconfigured budget fails before any samples are loaded.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{cfg: cfg, logger: slog.Default()}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// EstimatePValue runs the full trial budget and returns the tail-corrected
// p-value. observedDiff is mean(treatment) - mean(control), computed once by
// the caller.
func (e *Engine) EstimatePValue(ctx context.Context, control, treatment []float64, observedDiff float64) (float64, error) {
	res, err := e.Run(ctx, control, treatment, observedDiff)
	if err != nil {
		return 0, err
	}
	return res.PValue, nil
}

// Run executes Workers independent parallel tasks of TrialsPerWorker permutation
// trials each and aggregates their exceedance counts.
//
// The two input slices are shared read-only with every worker; only the
// per-worker label assignment is mutable, and it is private to its worker.
// Workers do not communicate: each writes its local count into its own slot
// of a preallocated slice, and the slots are summed after the join. The
// reduction is a plain sum, so scheduling order cannot affect the result.
//
// Cancellation is cooperative: ctx is checked periodically between trials,
// and a cancelled run returns ctx's error.
func (e *Engine) Run(ctx context.Context, control, treatment []float64, observedDiff float64) (Result, error) {
	if len(control) == 0 {
		return Result{}, fmt.Errorf("control: %w", ErrEmptySample)
	}
	if len(treatment) == 0 {
		return Result{}, fmt.Errorf("treatment: %w", ErrEmptySample)
	}

	seeds := e.workerSeeds()
	e.logger.Debug("permutation engine starting",
		"workers", e.cfg.Workers,
		"trials_per_worker", e.cfg.TrialsPerWorker,
		"total_trials", e.cfg.TotalTrials(),
		"seeded", e.cfg.Seed != nil,
	)

	counts := make([]int64, e.cfg.Workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < e.cfg.Workers; w++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[w]))
			labels := NewAssignment(len(control), len(treatment))

			var local int64
			for t := 0; t < e.cfg.TrialsPerWorker; t++ {
				// The stride is well below the default 1000 trials per
				// worker, so every budget shape polls more than once.
				if t%128 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				labels.Shuffle(rng)
				if permutedDiff(control, treatment, labels) > observedDiff {
					local++
				}
			}
			counts[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("permutation run: %w", err)
	}

	var count int64
	for _, c := range counts {
		count += c
	}

	total := e.cfg.TotalTrials()
	pRaw := float64(count) / float64(total)

	// Tail correction: a negative observed effect means the test is for a
	// decrease, so the complementary tail carries the evidence.
	p := pRaw
	if observedDiff < 0 {
		p = 1.0 - pRaw
	}

	return Result{PValue: p, Exceedances: count, Trials: total}, nil
}

// permutedDiff walks the logical concatenation of control then treatment
// once, routing each value into one of two streaming means according to the
// label at its position, and returns mean(Treatment) - mean(Control). The
// underlying data is never copied.
func permutedDiff(control, treatment []float64, labels Assignment) float64 {
	var muC, muT stats.StreamingMean

	i := 0
	for _, x := range control {
		if labels[i] == Control {
			muC.Add(x)
		} else {
			muT.Add(x)
		}
		i++
	}
	for _, x := range treatment {
		if labels[i] == Control {
			muC.Add(x)
		} else {
			muT.Add(x)
		}
		i++
	}

	return muT.Mean() - muC.Mean()
}

// workerSeeds derives one RNG seed per worker. With a run seed set, seeds
// are a splitmix64 mix of the run seed and the worker index so that a run
// is reproducible for a fixed (workers, trials) shape while neighboring
// workers still get well-spread streams. Without a run seed, each worker
// gets an independent seed from the shared entropy-seeded source.
func (e *Engine) workerSeeds() []int64 {
	seeds := make([]int64, e.cfg.Workers)
	for w := range seeds {
		if e.cfg.Seed != nil {
			seeds[w] = int64(splitmix64(uint64(*e.cfg.Seed) + uint64(w) + 1)) & (1<<63 - 1)
		} else {
			seeds[w] = rand.Int63()
		}
	}
	return seeds
}

// splitmix64 is the finalizer from Steele et al.'s SplitMix generator; it
// spreads consecutive inputs into well-distributed 64-bit outputs.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
