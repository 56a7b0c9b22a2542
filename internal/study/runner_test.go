package study

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/permutation"
	"github.com/exchangelabs/permutest/internal/reporting"
)

var (
	mouseControl   = []float64{52, 104, 146, 10, 51, 30, 40, 27, 46}
	mouseTreatment = []float64{94, 197, 16, 38, 99, 141, 23}
)

func testStudy(seed int64) *models.Study {
	return &models.Study{
		Name:        "mouse-survival",
		Description: "survival days",
		Samples: models.Samples{
			Control:   models.SampleRef{Path: "control.dat"},
			Treatment: models.SampleRef{Path: "treatment.dat"},
		},
		Config: permutation.Config{Workers: 40, TrialsPerWorker: 500, Seed: &seed},
	}
}

func mockSource(ctrl *gomock.Controller, label, locator string, data []float64, loadErr error) *MockSource {
	src := NewMockSource(ctrl)
	src.EXPECT().Label().Return(label).AnyTimes()
	src.EXPECT().Describe().Return(locator).AnyTimes()
	src.EXPECT().Load(gomock.Any()).Return(data, loadErr).AnyTimes()
	return src
}

func TestRunner_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	control := mockSource(ctrl, "control", "control.dat", mouseControl, nil)
	treatment := mockSource(ctrl, "treatment", "treatment.dat", mouseTreatment, nil)

	r := NewRunner(testStudy(42), WithSources(control, treatment))
	outcome, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "mouse-survival", outcome.Study)
	assert.Equal(t, 9, outcome.Control.N)
	assert.Equal(t, 7, outcome.Treatment.N)
	assert.Equal(t, "control.dat", outcome.Control.Source)
	assert.InDelta(t, 56.222222, outcome.Control.Mean, 1e-5)
	assert.InDelta(t, 86.857143, outcome.Treatment.Mean, 1e-5)
	assert.InDelta(t, 30.634921, outcome.ObservedDiff, 1e-5)
	assert.InDelta(t, 0.139, outcome.PValue, 0.02)
	assert.Equal(t, reporting.EvidenceLabel(outcome.PValue), outcome.Evidence)
	assert.Equal(t, int64(20_000), outcome.Trials)
	assert.Equal(t, DiffCIConfidence, outcome.DiffCI.ConfidenceLevel)
	assert.LessOrEqual(t, outcome.DiffCI.Lower, outcome.ObservedDiff)
	assert.GreaterOrEqual(t, outcome.DiffCI.Upper, outcome.ObservedDiff)
	require.NotNil(t, outcome.Config.Seed)
	assert.Equal(t, int64(42), *outcome.Config.Seed)
}

// Two seeded runs must agree on everything except timestamps and timings.
func TestRunner_SeededRunsAreIdempotent(t *testing.T) {
	run := func() *models.Outcome {
		ctrl := gomock.NewController(t)
		r := NewRunner(testStudy(7), WithSources(
			mockSource(ctrl, "control", "control.dat", mouseControl, nil),
			mockSource(ctrl, "treatment", "treatment.dat", mouseTreatment, nil),
		))
		outcome, err := r.Run(context.Background())
		require.NoError(t, err)
		return outcome
	}

	a, b := run(), run()
	assert.Equal(t, a.PValue, b.PValue)
	assert.Equal(t, a.Exceedances, b.Exceedances)
	assert.Equal(t, a.DiffCI, b.DiffCI)
	assert.Equal(t, a.ObservedDiff, b.ObservedDiff)
}

func TestRunner_EmptySample(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewRunner(testStudy(1), WithSources(
		mockSource(ctrl, "control", "control.dat", nil, nil),
		mockSource(ctrl, "treatment", "treatment.dat", mouseTreatment, nil),
	))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, permutation.ErrEmptySample)
	assert.Contains(t, err.Error(), "control (control.dat)")
}

func TestRunner_LoadErrorAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	loadErr := errors.New("connection reset")
	control := mockSource(ctrl, "control", "control.dat", nil, loadErr)

	// The treatment source must never be loaded when control fails.
	treatment := NewMockSource(ctrl)
	treatment.EXPECT().Label().Return("treatment").AnyTimes()
	treatment.EXPECT().Describe().Return("treatment.dat").AnyTimes()

	r := NewRunner(testStudy(1), WithSources(control, treatment))
	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
}

func TestRunner_InvalidConfigBeforeIO(t *testing.T) {
	ctrl := gomock.NewController(t)
	// Sources with no expectations: the runner must fail before touching them.
	r := NewRunner(&models.Study{
		Name:    "bad-config",
		Samples: models.Samples{Control: models.SampleRef{Path: "a"}, Treatment: models.SampleRef{Path: "b"}},
		Config:  permutation.Config{Workers: 0, TrialsPerWorker: 0},
	}, WithSources(NewMockSource(ctrl), NewMockSource(ctrl)))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid engine config")
}

func TestRunner_ProgressEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewRunner(testStudy(3), WithSources(
		mockSource(ctrl, "control", "control.dat", mouseControl, nil),
		mockSource(ctrl, "treatment", "treatment.dat", mouseTreatment, nil),
	))

	var events []ProgressEvent
	r.OnProgress(func(e ProgressEvent) {
		events = append(events, e)
	})

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	assert.Equal(t, []EventType{
		EventLoadStart, EventLoadComplete,
		EventLoadStart, EventLoadComplete,
		EventTrialsStart, EventTrialsComplete,
		EventRunComplete,
	}, types)

	assert.Equal(t, "control", events[0].Sample)
	assert.Equal(t, 9, events[1].N)
	assert.Equal(t, "treatment", events[2].Sample)
	assert.Equal(t, 7, events[3].N)
	assert.Equal(t, int64(20_000), events[4].Trials)
}

func TestRunner_ResolvesFromStudyRefs(t *testing.T) {
	dir := t.TempDir()
	writeDAT(t, dir, "control.dat", "52\n104\n146\n10\n51\n30\n40\n27\n46\n")
	writeDAT(t, dir, "treatment.dat", "94\n197\n16\n38\n99\n141\n23\n")

	r := NewRunner(testStudy(42), WithBaseDir(dir))
	outcome, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, outcome.Control.N)
	assert.Equal(t, 7, outcome.Treatment.N)
	assert.InDelta(t, 0.139, outcome.PValue, 0.02)
}
