// Package clockmodel derives the core clock frequency and the flash wait
// states of an STM32L4 clock tree from its selector and PLL factor fields.
//
// Everything here is pure arithmetic so it can be checked on the host
// against a fixture table and reused on live register readback.
package clockmodel

import (
	"clockcycle-go/errcode"

	"periph.io/x/conn/v3/physic"
)

// Source is the SYSCLK selector, encoded as RCC_CFGR.SW / SWS.
type Source uint32

const (
	SourceMSI   Source = 0b00
	SourceHSI16 Source = 0b01
	SourceHSE   Source = 0b10
	SourcePLL   Source = 0b11
)

func (s Source) String() string {
	switch s {
	case SourceMSI:
		return "MSI"
	case SourceHSI16:
		return "HSI16"
	case SourceHSE:
		return "HSE"
	case SourcePLL:
		return "PLL"
	}
	return "?"
}

// PLLSource is the PLL input selector, encoded as RCC_PLLCFGR.PLLSRC.
type PLLSource uint32

const (
	PLLNone  PLLSource = 0b00
	PLLMSI   PLLSource = 0b01
	PLLHSI16 PLLSource = 0b10
	PLLHSE   PLLSource = 0b11
)

func (s PLLSource) String() string {
	switch s {
	case PLLNone:
		return "none"
	case PLLMSI:
		return "MSI"
	case PLLHSI16:
		return "HSI16"
	case PLLHSE:
		return "HSE"
	}
	return "?"
}

// MSIRanges is the number of MSIRANGE settings.
const MSIRanges = 12

// MSITable maps MSIRANGE to frequency in Hz.
type MSITable [MSIRanges]uint32

// DefaultMSITable is the RM0432 MSI range table.
var DefaultMSITable = MSITable{
	100_000, 200_000, 400_000, 800_000, 1_000_000, 2_000_000,
	4_000_000, 8_000_000, 16_000_000, 24_000_000, 32_000_000, 48_000_000,
}

const (
	HSI16Hz uint32 = 16_000_000
	// HSE on this board is fed at 48 MHz.
	BoardHSEHz uint32 = 48_000_000

	// One flash wait state per started 16 MHz band.
	WaitStateBandHz uint32 = 16_000_000
)

// Oscillators holds the fixed input frequencies of the board.
type Oscillators struct {
	MSI   MSITable
	HSI16 uint32
	HSE   uint32
	// MaxHCLK bounds valid configurations; 0 disables the check.
	MaxHCLK uint32
}

// DefaultOscillators returns the Nucleo-144 board constants.
func DefaultOscillators() Oscillators {
	return Oscillators{
		MSI:     DefaultMSITable,
		HSI16:   HSI16Hz,
		HSE:     BoardHSEHz,
		MaxHCLK: 120_000_000,
	}
}

// Config is one clock tree operating point. It is a value: build it once
// and replace it wholesale.
type Config struct {
	Source    Source
	PLLSource PLLSource
	PLLM      uint32 // input divider, >= 1
	PLLN      uint32 // VCO multiplier
	PLLR      uint32 // SYSCLK divider, even and >= 2
	MSIRange  uint32 // 0..11
}

// Derived is what a Config produces.
type Derived struct {
	HCLK            uint32
	FlashWaitStates uint32
}

// Frequency returns HCLK as a physic.Frequency, mostly for logging.
func (d Derived) Frequency() physic.Frequency {
	return physic.Frequency(d.HCLK) * physic.Hertz
}

func (d Derived) String() string { return d.Frequency().String() }

// Derive computes HCLK and the flash wait states for cfg.
// A PLL without input yields 0 Hz rather than a panic; an out-of-range
// MSIRANGE or a zero divisor likewise collapse to 0 Hz. Validate rejects
// all of these before a config is ever applied.
func Derive(cfg Config, osc Oscillators) Derived {
	msi := uint32(0)
	if cfg.MSIRange < MSIRanges {
		msi = osc.MSI[cfg.MSIRange]
	}

	var hclk uint32
	switch cfg.Source {
	case SourceMSI:
		hclk = msi
	case SourceHSI16:
		hclk = osc.HSI16
	case SourceHSE:
		hclk = osc.HSE
	case SourcePLL:
		var in uint32
		switch cfg.PLLSource {
		case PLLMSI:
			in = msi
		case PLLHSI16:
			in = osc.HSI16
		case PLLHSE:
			in = osc.HSE
		}
		if cfg.PLLM == 0 || cfg.PLLR == 0 {
			break
		}
		vco := uint64(in/cfg.PLLM) * uint64(cfg.PLLN)
		hclk = uint32(vco / uint64(cfg.PLLR))
	default:
		hclk = msi
	}
	return Derived{HCLK: hclk, FlashWaitStates: WaitStates(hclk)}
}

// WaitStates returns the flash latency needed at hclk. Callers clamp the
// result to the width of their latency field.
func WaitStates(hclk uint32) uint32 { return hclk / WaitStateBandHz }

// PLL field limits of the L4+ RCC_PLLCFGR.
const (
	MinPLLN = 8
	MaxPLLN = 127
	MaxPLLM = 16
	MaxPLLR = 8
)

// Validate rejects configurations that would produce a degenerate or
// undefined frequency. It is meant to run once over a fixed mode table.
func Validate(cfg Config, osc Oscillators) error {
	fault := func(msg string) error {
		return errcode.Wrap(errcode.ConfigurationFault, "clockmodel.validate", msg, nil)
	}
	if cfg.Source > SourcePLL {
		return fault("unknown clock source")
	}
	if cfg.PLLSource > PLLHSE {
		return fault("unknown pll source")
	}
	if cfg.MSIRange >= MSIRanges {
		return fault("msi range out of table")
	}
	if cfg.PLLM < 1 || cfg.PLLM > MaxPLLM {
		return fault("pll m out of range")
	}
	if cfg.PLLR < 2 || cfg.PLLR > MaxPLLR || cfg.PLLR%2 != 0 {
		return fault("pll r must be even in 2..8")
	}
	if cfg.Source == SourcePLL {
		if cfg.PLLSource == PLLNone {
			return fault("pll selected without input")
		}
		if cfg.PLLN < MinPLLN || cfg.PLLN > MaxPLLN {
			return fault("pll n out of range")
		}
	}
	d := Derive(cfg, osc)
	if d.HCLK == 0 {
		return fault("derived frequency is zero")
	}
	if osc.MaxHCLK != 0 && d.HCLK > osc.MaxHCLK {
		return fault("derived frequency above device maximum")
	}
	return nil
}

// UsesHSI16 reports whether cfg needs HSI16 running.
func (c Config) UsesHSI16() bool {
	return c.Source == SourceHSI16 || (c.Source == SourcePLL && c.PLLSource == PLLHSI16)
}

// UsesHSE reports whether cfg needs HSE running.
func (c Config) UsesHSE() bool {
	return c.Source == SourceHSE || (c.Source == SourcePLL && c.PLLSource == PLLHSE)
}
