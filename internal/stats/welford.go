// Package stats provides the numerical kernels for the permutation test:
// streaming means, descriptive sample summaries, and bootstrap confidence
// intervals for the difference of group means.
package stats

// StreamingMean accumulates an arithmetic mean one observation at a time
// using Welford's update, which stays numerically stable without keeping
// a running sum. The zero value is ready to use.
type StreamingMean struct {
	n  int
	mu float64
}

// Add folds one observation into the running mean.
func (s *StreamingMean) Add(x float64) {
	s.n++
	s.mu += (x - s.mu) / float64(s.n)
}

// Mean returns the current running mean. With no observations the mean is
// undefined; callers that cannot tolerate that must check N() first (the
// study runner rejects empty samples before any mean is consumed).
// For a zero-count accumulator Mean returns 0.
func (s *StreamingMean) Mean() float64 {
	return s.mu
}

// N returns the number of observations accumulated so far.
func (s *StreamingMean) N() int {
	return s.n
}

// Reset returns the accumulator to its zero state so it can be reused.
func (s *StreamingMean) Reset() {
	s.n = 0
	s.mu = 0
}

// Mean computes the arithmetic mean of xs via the streaming update.
// Returns 0 for empty input.
func Mean(xs []float64) float64 {
	var s StreamingMean
	for _, x := range xs {
		s.Add(x)
	}
	return s.Mean()
}
