package sim

import "clockcycle-go/internal/clockmodel"

// Board is an emulated Nucleo-144: the chip, the three user LEDs, the user
// button and SysTick.
type Board struct {
	Chip   *Chip
	LD1    *LED // green, mode indicator bit 0
	LD2    *LED // blue, mode indicator bit 1
	LD3    *LED // red, status blink
	Button *Button
	Timer  *Timer
	Synth  *Synth // nil unless Options.ExternalHSE
}

// Options for NewBoard.
type Options struct {
	Osc         clockmodel.Oscillators
	SettlePolls uint32
	// Scale speeds SysTick up relative to wall-clock time.
	Scale uint32
	// ExternalHSE feeds HSE from a synthesizer on I2C1.
	ExternalHSE bool
	// MaxLatency is the widest FLASH_ACR.LATENCY the device has; 0 for none.
	MaxLatency uint32
}

// NewBoard builds a board whose SysTick expiries call tick.
func NewBoard(opt Options, tick func()) *Board {
	b := &Board{
		Chip:   NewChip(opt.Osc, opt.SettlePolls),
		LD1:    NewLED("PC7", 39),
		LD2:    NewLED("PB7", 23),
		LD3:    NewLED("PB14", 30),
		Button: NewButton("PC13", 45),
		Timer:  NewTimer(tick, opt.Scale),
	}
	if opt.ExternalHSE {
		b.Synth = AttachSynth(b.Chip)
	}
	if opt.MaxLatency != 0 {
		b.Chip.LimitLatency(opt.MaxLatency)
	}
	return b
}
