package eventloop

import (
	"errors"
	"testing"
	"time"

	"clockcycle-go/errcode"
)

func TestBlinkInterval(t *testing.T) {
	cases := []struct {
		hclk uint32
		want uint32
	}{
		{4_000_000, 40},
		{16_000_000, 10},
		{48_000_000, 3},
		{80_000_000, 2},
		{400_000_000, 1},
		{0, 40},
	}
	for _, c := range cases {
		if got := BlinkInterval(c.hclk, 40, 4_000_000); got != c.want {
			t.Errorf("BlinkInterval(%d) = %d, want %d", c.hclk, got, c.want)
		}
	}
}

func TestSysTickReload(t *testing.T) {
	cases := []struct {
		hclk   uint32
		period time.Duration
		want   uint32
	}{
		{4_000_000, 100 * time.Millisecond, 49_999},
		{80_000_000, 100 * time.Millisecond, 999_999},
		{4_000_000, 20 * time.Millisecond, 9_999},
		{80_000_000, 20 * time.Millisecond, 199_999},
	}
	for _, c := range cases {
		got, err := SysTickReload(c.hclk, c.period)
		if err != nil || got != c.want {
			t.Errorf("SysTickReload(%d, %v) = %d, %v; want %d", c.hclk, c.period, got, err, c.want)
		}
	}
	if _, err := SysTickReload(80_000_000, 2*time.Second); !errors.Is(err, errcode.InvalidParams) {
		t.Errorf("oversized period: err = %v", err)
	}
	if _, err := SysTickReload(80_000_000, 0); !errors.Is(err, errcode.InvalidParams) {
		t.Errorf("zero period: err = %v", err)
	}
}
