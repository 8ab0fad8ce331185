package mpo

import (
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
)

// Epsilon is the tolerance used to decide that two parameter values denote
// the same sample: |a-b| <= Epsilon*max(|a|, |b|, 1).
const Epsilon = 1e-5

// NearlyEqual reports whether a and b are the same parameter sample.
func NearlyEqual(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, Epsilon, Epsilon)
}

// nearestIndex returns the position of the value in sorted that is nearly
// equal to v. sorted must be strictly increasing with neighbours further
// apart than the tolerance, so only the two values around the insertion
// point can match.
func nearestIndex(sorted []float64, v float64) (int, bool) {
	i := sort.SearchFloat64s(sorted, v)
	if i > 0 && NearlyEqual(sorted[i-1], v) {
		return i - 1, true
	}
	if i < len(sorted) && NearlyEqual(sorted[i], v) {
		return i, true
	}
	return 0, false
}
