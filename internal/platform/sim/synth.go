package sim

import (
	"sync"

	"clockcycle-go/errcode"
	"clockcycle-go/internal/rcc"
)

// Synth is an external clock generator on I2C1 feeding HSE. It can only be
// programmed while the I2C1 clock is enabled, and HSE never becomes ready
// until it has been.
type Synth struct {
	chip *Chip

	mu      sync.Mutex
	on      bool
	enables []uint32
}

// AttachSynth wires a synthesizer to c's HSE input and enables I2C1, as
// board bring-up does when it configures the bus.
func AttachSynth(c *Chip) *Synth {
	s := &Synth{chip: c}
	c.mu.Lock()
	c.hseFeed = s
	c.mu.Unlock()
	c.APB1ENR1.SetBits(rcc.APB1ENR1_I2C1EN)
	return s
}

// Enable programs the output frequency.
func (s *Synth) Enable(hz uint32) error {
	if !s.chip.I2C1Clocked() {
		return errcode.Wrap(errcode.HardwareNotReady, "synth.enable", "i2c1 clock gated", nil)
	}
	s.mu.Lock()
	s.on = true
	s.enables = append(s.enables, hz)
	s.mu.Unlock()
	return nil
}

// Enables lists every programmed frequency.
func (s *Synth) Enables() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.enables...)
}

// running is called with the chip lock held.
func (s *Synth) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}
