// Package debounce filters a bouncing push-button against a fixed-rate tick.
//
// Two counters move once per tick: the quiet counter counts down from the
// bounce window set by an accepted press, and the refractory counter counts
// up from the last edge. Both saturate at the int16 range.
package debounce

import (
	"math"

	"clockcycle-go/x/mathx"
)

// Counter bounds.
const (
	QuietMin      int16 = math.MinInt16
	RefractoryMax int16 = math.MaxInt16
)

// Windows are measured in ticks.
type Windows struct {
	Debounce    int16 // edges after an accepted press are ignored this long
	DoubleClick int16 // a second edge sooner than this is a double click
}

// DefaultWindows at a 100 ms tick.
var DefaultWindows = Windows{Debounce: 2, DoubleClick: 4}

// Decision is the outcome of a raw edge.
type Decision uint8

const (
	Ignored Decision = iota
	Accepted
	Rejected
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return "ignored"
}

// Filter is not safe for concurrent use; the event loop owns it.
type Filter struct {
	win        Windows
	quiet      int16
	refractory int16
	armed      bool
}

func New(w Windows) *Filter {
	f := &Filter{win: w}
	f.Reset()
	return f
}

// Reset starts a listen session: both counters at zero, edges armed.
func (f *Filter) Reset() {
	f.quiet = 0
	f.refractory = 0
	f.armed = true
}

// Tick advances both counters by one tick.
func (f *Filter) Tick() {
	f.quiet = mathx.SatDec(f.quiet, QuietMin)
	f.refractory = mathx.SatInc(f.refractory, RefractoryMax)
}

// Ready reports that the bounce window after an accepted press has just
// run out with the double-click window also elapsed. The loop uses it as
// its exit condition.
func (f *Filter) Ready() bool {
	return f.quiet == 0 && f.refractory >= f.win.DoubleClick
}

// Edge classifies a raw button edge. An accepted edge disarms the filter;
// the caller is expected to stop edge delivery until the next session.
func (f *Filter) Edge() Decision {
	if !f.armed {
		return Ignored
	}
	if f.refractory > f.win.DoubleClick {
		f.armed = false
		f.quiet = f.win.Debounce
		return Accepted
	}
	f.refractory = 0
	return Rejected
}

// Armed reports whether raw edges are still being classified.
func (f *Filter) Armed() bool { return f.armed }

// State returns the raw counters.
func (f *Filter) State() (quiet, refractory int16) { return f.quiet, f.refractory }
