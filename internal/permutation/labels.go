// Package permutation implements the Monte-Carlo permutation-test engine:
// group labels are reshuffled across many independent trials running on
// parallel workers, and the fraction of trials whose permuted mean
// difference exceeds the observed difference yields the p-value.
package permutation

import "math/rand"

// Label tags one position of the concatenated control++treatment sequence
// with its current group membership.
type Label uint8

// Group membership values.
const (
	Control Label = iota
	Treatment
)

// Assignment is a mutable sequence of group labels, one per observation.
// Each worker owns exactly one Assignment and reshuffles it in place across
// that worker's trials; assignments are never shared.
type Assignment []Label

// NewAssignment builds an assignment of nControl Control labels followed by
// nTreatment Treatment labels. Shuffling permutes positions only, so the
// label multiplicities are invariant for the lifetime of the assignment.
func NewAssignment(nControl, nTreatment int) Assignment {
	a := make(Assignment, nControl+nTreatment)
	for i := nControl; i < len(a); i++ {
		a[i] = Treatment
	}
	return a
}

// Shuffle permutes the assignment uniformly at random in place.
func (a Assignment) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(a), func(i, j int) {
		a[i], a[j] = a[j], a[i]
	})
}

// Counts returns the number of Control and Treatment labels.
func (a Assignment) Counts() (nControl, nTreatment int) {
	for _, l := range a {
		if l == Control {
			nControl++
		} else {
			nTreatment++
		}
	}
	return nControl, nTreatment
}
