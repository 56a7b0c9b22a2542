package stats

import (
	"math"

	moremath "github.com/aclements/go-moremath/stats"
)

// SampleSummary holds descriptive statistics for one observation sequence.
type SampleSummary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// Describe computes a descriptive summary of xs. Order statistics use the
// same quantile definition as benchstat (go-moremath stats.Sample).
// Returns a zero summary for empty input.
func Describe(xs []float64) SampleSummary {
	if len(xs) == 0 {
		return SampleSummary{}
	}

	var acc StreamingMean
	min, max := xs[0], xs[0]
	for _, x := range xs {
		acc.Add(x)
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	m := acc.Mean()

	// Sample standard deviation (Bessel's correction).
	sd := 0.0
	if len(xs) > 1 {
		sumSq := 0.0
		for _, x := range xs {
			d := x - m
			sumSq += d * d
		}
		sd = math.Sqrt(sumSq / float64(len(xs)-1))
	}

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	samp := moremath.Sample{Xs: sorted}
	samp.Sort()

	return SampleSummary{
		N:      len(xs),
		Mean:   m,
		StdDev: sd,
		Min:    min,
		Max:    max,
		Q1:     samp.Quantile(0.25),
		Median: samp.Quantile(0.5),
		Q3:     samp.Quantile(0.75),
	}
}
