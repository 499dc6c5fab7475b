package mathx

import "golang.org/x/exp/constraints"

// DivOr returns a/b, or fallback when b is zero.
// Firmware maths must never trap on a zero divisor read back from hardware.
func DivOr[T constraints.Unsigned](a, b, fallback T) T {
	if b == 0 {
		return fallback
	}
	return a / b
}
