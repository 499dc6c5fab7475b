// Package halcore holds the pin abstractions the control loop consumes.
package halcore

import "time"

// OutputPin drives one digital output.
type OutputPin interface {
	Set(level bool)
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin is an input whose edges raise an interrupt. The handler runs in
// interrupt context and must not block.
type IRQPin interface {
	Get() bool
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Timer is a periodic interrupt source whose counter clock derives from HCLK.
type Timer interface {
	// Start (re)programs the timer so that handler-visible ticks arrive
	// every period at core clock hclk.
	Start(hclk uint32, period time.Duration) error
	Stop()
}
