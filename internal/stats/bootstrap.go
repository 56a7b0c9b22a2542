package stats

import (
	"math"
	"math/rand"

	moremath "github.com/aclements/go-moremath/stats"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval
// computation over the difference of group means.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Point           float64 `json:"point"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// DiffCI computes a percentile-method bootstrap confidence interval for
// mean(treatment) - mean(control): each group is resampled with replacement
// independently and the difference of resample means forms the bootstrap
// distribution. confidenceLevel should be in (0, 1), e.g. 0.95.
//
// A negative seed uses a non-deterministic source. When either group has
// fewer than 2 points the interval collapses to a zero-width interval at
// the observed difference.
func DiffCI(control, treatment []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	point := Mean(treatment) - Mean(control)
	if len(control) < 2 || len(treatment) < 2 {
		return ConfidenceInterval{
			Lower:           point,
			Upper:           point,
			Point:           point,
			ConfidenceLevel: confidenceLevel,
			NumBootstraps:   0,
		}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	iters := DefaultBootstrapIterations
	diffs := make([]float64, iters)
	resC := make([]float64, len(control))
	resT := make([]float64, len(treatment))
	for i := 0; i < iters; i++ {
		for j := range resC {
			resC[j] = control[rng.Intn(len(control))]
		}
		for j := range resT {
			resT[j] = treatment[rng.Intn(len(treatment))]
		}
		diffs[i] = Mean(resT) - Mean(resC)
	}

	samp := moremath.Sample{Xs: diffs}
	samp.Sort()

	alpha := 1.0 - confidenceLevel
	return ConfidenceInterval{
		Lower:           samp.Quantile(alpha / 2.0),
		Upper:           samp.Quantile(1.0 - alpha/2.0),
		Point:           point,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

// Excludes reports whether the interval excludes zero, i.e. the effect is
// distinguishable from no effect at the interval's confidence level.
func (ci ConfidenceInterval) Excludes(v float64) bool {
	return ci.Lower > v || ci.Upper < v
}

// Width returns the width of the interval.
func (ci ConfidenceInterval) Width() float64 {
	return math.Abs(ci.Upper - ci.Lower)
}
