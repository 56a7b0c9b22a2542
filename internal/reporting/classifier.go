// Package reporting renders study outcomes: the qualitative evidence label,
// the plain-text and markdown reports, and JUnit XML for CI pipelines.
package reporting

// Evidence labels, ordered from strongest to weakest.
const (
	EvidenceVeryStrong       = "very strong evidence against null hypothesis"
	EvidenceStrong           = "strong evidence against null hypothesis"
	EvidenceReasonablyStrong = "reasonably strong evidence against null hypothesis"
	EvidenceBorderline       = "borderline evidence against null hypothesis"
	EvidenceNone             = "no evidence against null hypothesis"
)

// EvidenceLabel maps a p-value to the conventional qualitative phrase via
// exclusive ascending thresholds. It is total: out-of-range input (including
// NaN, which fails every comparison) falls through to the last case.
func EvidenceLabel(p float64) string {
	switch {
	case p < 0.01:
		return EvidenceVeryStrong
	case p < 0.025:
		return EvidenceStrong
	case p < 0.05:
		return EvidenceReasonablyStrong
	case p < 0.10:
		return EvidenceBorderline
	default:
		return EvidenceNone
	}
}
