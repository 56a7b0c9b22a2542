package study

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/permutation"
	"github.com/exchangelabs/permutest/internal/reporting"
	"github.com/exchangelabs/permutest/internal/stats"
)

// DiffCIConfidence is the confidence level of the bootstrap interval
// reported next to the p-value.
const DiffCIConfidence = 0.95

// ProgressListener receives progress events during a run.
type ProgressListener func(event ProgressEvent)

// EventType identifies a progress event.
type EventType string

// Progress event types, in the order they occur during a run.
const (
	EventLoadStart      EventType = "load_start"
	EventLoadComplete   EventType = "load_complete"
	EventTrialsStart    EventType = "trials_start"
	EventTrialsComplete EventType = "trials_complete"
	EventRunComplete    EventType = "run_complete"
)

// ProgressEvent is one progress update.
type ProgressEvent struct {
	EventType  EventType
	Sample     string // for load events: which sample
	Source     string // for load events: where it came from
	N          int    // for load_complete: observations loaded
	Trials     int64  // for trials events: total trial budget
	DurationMs int64  // for *_complete events
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithBaseDir resolves relative sample paths against dir.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithSources injects pre-resolved sources, bypassing path resolution.
func WithSources(control, treatment Source) RunnerOption {
	return func(r *Runner) {
		r.control = control
		r.treatment = treatment
	}
}

// Runner executes one study end to end. It holds no state between runs:
// calling Run twice with a seeded config produces identical outcomes apart
// from timestamps and timings.
type Runner struct {
	study   *models.Study
	baseDir string

	control   Source
	treatment Source

	progressMu sync.Mutex
	listeners  []ProgressListener

	logger *slog.Logger
}

// NewRunner creates a runner for the given study.
func NewRunner(study *models.Study, opts ...RunnerOption) *Runner {
	r := &Runner{
		study:  study,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run loads both samples, runs the permutation test, and assembles the
// outcome. Load and format errors abort before any trial runs; empty
// samples are rejected with permutation.ErrEmptySample before the means
// are consumed.
func (r *Runner) Run(ctx context.Context) (*models.Outcome, error) {
	start := time.Now()

	// The engine config is validated before any I/O happens.
	engine, err := permutation.New(r.study.Config)
	if err != nil {
		return nil, err
	}

	if r.control == nil || r.treatment == nil {
		control, err := Resolve(r.study.Samples.Control, "control", r.baseDir)
		if err != nil {
			return nil, err
		}
		treatment, err := Resolve(r.study.Samples.Treatment, "treatment", r.baseDir)
		if err != nil {
			return nil, err
		}
		r.control, r.treatment = control, treatment
	}

	controlData, err := r.loadSample(ctx, r.control)
	if err != nil {
		return nil, err
	}
	treatmentData, err := r.loadSample(ctx, r.treatment)
	if err != nil {
		return nil, err
	}

	if len(controlData) == 0 {
		return nil, fmt.Errorf("control (%s): %w", r.control.Describe(), permutation.ErrEmptySample)
	}
	if len(treatmentData) == 0 {
		return nil, fmt.Errorf("treatment (%s): %w", r.treatment.Describe(), permutation.ErrEmptySample)
	}

	meanControl := stats.Mean(controlData)
	meanTreatment := stats.Mean(treatmentData)
	observedDiff := meanTreatment - meanControl

	r.logger.Debug("samples loaded",
		"n_control", len(controlData),
		"n_treatment", len(treatmentData),
		"observed_diff", observedDiff,
	)

	r.notifyProgress(ProgressEvent{
		EventType: EventTrialsStart,
		Trials:    r.study.Config.TotalTrials(),
	})

	trialsStart := time.Now()
	result, err := engine.Run(ctx, controlData, treatmentData, observedDiff)
	if err != nil {
		return nil, err
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventTrialsComplete,
		Trials:     result.Trials,
		DurationMs: time.Since(trialsStart).Milliseconds(),
	})

	bootSeed := int64(-1)
	if r.study.Config.Seed != nil {
		bootSeed = *r.study.Config.Seed
	}
	diffCI := stats.DiffCI(controlData, treatmentData, DiffCIConfidence, bootSeed)

	outcome := &models.Outcome{
		Study:        r.study.Name,
		Description:  r.study.Description,
		Timestamp:    start.UTC(),
		Control:      sampleReport("control", r.control.Describe(), controlData),
		Treatment:    sampleReport("treatment", r.treatment.Describe(), treatmentData),
		ObservedDiff: observedDiff,
		PValue:       result.PValue,
		Evidence:     reporting.EvidenceLabel(result.PValue),
		Exceedances:  result.Exceedances,
		Trials:       result.Trials,
		DiffCI:       diffCI,
		Config:       r.study.Config,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		DurationMs: outcome.DurationMs,
	})

	return outcome, nil
}

func (r *Runner) loadSample(ctx context.Context, src Source) ([]float64, error) {
	r.notifyProgress(ProgressEvent{
		EventType: EventLoadStart,
		Sample:    src.Label(),
		Source:    src.Describe(),
	})

	start := time.Now()
	data, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventLoadComplete,
		Sample:     src.Label(),
		Source:     src.Describe(),
		N:          len(data),
		DurationMs: time.Since(start).Milliseconds(),
	})

	return data, nil
}

func sampleReport(label, source string, data []float64) models.SampleReport {
	return models.SampleReport{
		Label:   label,
		Source:  source,
		N:       len(data),
		Mean:    stats.Mean(data),
		Summary: stats.Describe(data),
	}
}
