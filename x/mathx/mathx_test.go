package mathx

import (
	"math"
	"testing"
)

func TestMinMax(t *testing.T) {
	if got := Min[uint32](7, 5); got != 5 {
		t.Fatalf("Min = %d", got)
	}
	if got := Max(-3, 2); got != 2 {
		t.Fatalf("Max = %d", got)
	}
}

func TestSaturatingStepsStopAtBounds(t *testing.T) {
	var v int16 = math.MaxInt16 - 1
	v = SatInc(v, math.MaxInt16)
	v = SatInc(v, math.MaxInt16)
	if v != math.MaxInt16 {
		t.Fatalf("SatInc wrapped: %d", v)
	}

	v = math.MinInt16 + 1
	v = SatDec(v, math.MinInt16)
	v = SatDec(v, math.MinInt16)
	if v != math.MinInt16 {
		t.Fatalf("SatDec wrapped: %d", v)
	}
}

func TestDivOrZeroDivisor(t *testing.T) {
	if got := DivOr[uint32](80, 0, 7); got != 7 {
		t.Fatalf("DivOr with zero divisor = %d, want fallback 7", got)
	}
	if got := DivOr[uint32](80, 16, 7); got != 5 {
		t.Fatalf("DivOr(80,16) = %d, want 5", got)
	}
}
