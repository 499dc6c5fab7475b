package mathx

import "golang.org/x/exp/constraints"

// SatInc returns v+1, or v unchanged once it has reached hi.
func SatInc[T constraints.Integer](v, hi T) T {
	if v >= hi {
		return hi
	}
	return v + 1
}

// SatDec returns v-1, or v unchanged once it has reached lo.
func SatDec[T constraints.Integer](v, lo T) T {
	if v <= lo {
		return lo
	}
	return v - 1
}
