package eventloop

import (
	"time"

	"clockcycle-go/errcode"
	"clockcycle-go/x/mathx"
)

// SysTick counts the AHB clock divided by eight and has a 24-bit reload.
const (
	SysTickDiv       = 8
	SysTickMaxReload = 1<<24 - 1
)

// Timing fixes the wall-clock behaviour of a listen session.
type Timing struct {
	TickPeriod  time.Duration // one debounce tick
	BlinkBase   uint32        // LED half-period in ticks at BlinkRefHz
	BlinkRefHz  uint32
	SettleDelay time.Duration
}

// DefaultTiming: 100 ms ticks, 4 s half-period at 4 MHz, 20 ms settle.
var DefaultTiming = Timing{
	TickPeriod:  100 * time.Millisecond,
	BlinkBase:   40,
	BlinkRefHz:  4_000_000,
	SettleDelay: 20 * time.Millisecond,
}

// SysTickReload returns the reload value that makes SysTick fire every
// period at core clock hclk.
func SysTickReload(hclk uint32, period time.Duration) (uint32, error) {
	counts := uint64(hclk/SysTickDiv) * uint64(period) / uint64(time.Second)
	if counts == 0 || counts-1 > SysTickMaxReload {
		return 0, errcode.Wrap(errcode.InvalidParams, "systick.reload", "period out of range", nil)
	}
	return uint32(counts - 1), nil
}

// BlinkInterval is the LED half-period in ticks at hclk. It shrinks as the
// clock speeds up, so the blink rate shows the active speed: 40, 10, 3 and 2
// ticks at 4, 16, 48 and 80 MHz.
func BlinkInterval(hclk, base, refHz uint32) uint32 {
	n := mathx.DivOr(uint64(base)*uint64(refHz), uint64(hclk), uint64(base))
	return uint32(mathx.Max(n, 1))
}
