// Package modeseq cycles the clock tree through its operating points.
package modeseq

import (
	"clockcycle-go/errcode"
	"clockcycle-go/internal/clockmodel"
)

// Mode names one operating point.
type Mode uint8

const (
	Reset4MHz Mode = iota
	Slow16MHz
	Medium48MHz
	Full80MHz

	NumModes
)

// Next returns the successor; the sequence wraps after Full80MHz.
func (m Mode) Next() Mode { return (m + 1) % NumModes }

func (m Mode) String() string {
	switch m {
	case Reset4MHz:
		return "reset-4MHz"
	case Slow16MHz:
		return "slow-16MHz"
	case Medium48MHz:
		return "medium-48MHz"
	case Full80MHz:
		return "full-80MHz"
	}
	return "unknown"
}

// Entry is the fixed per-mode data: the clock configuration and the
// indicator pattern shown while the mode is active.
type Entry struct {
	Config    clockmodel.Config
	Indicator [2]bool
}

// Table is indexed by Mode.
type Table [NumModes]Entry

// DefaultTable is the board's sequence. The PLL factors are the same in
// every entry; only the 80 MHz mode feeds the PLL.
var DefaultTable = Table{
	Reset4MHz: {
		Config: pllDefaults(clockmodel.Config{Source: clockmodel.SourceMSI, MSIRange: 6}),
	},
	Slow16MHz: {
		Config:    pllDefaults(clockmodel.Config{Source: clockmodel.SourceHSI16, MSIRange: 6}),
		Indicator: [2]bool{true, false},
	},
	Medium48MHz: {
		Config:    pllDefaults(clockmodel.Config{Source: clockmodel.SourceMSI, MSIRange: 11}),
		Indicator: [2]bool{false, true},
	},
	Full80MHz: {
		Config: pllDefaults(clockmodel.Config{
			Source:    clockmodel.SourcePLL,
			PLLSource: clockmodel.PLLHSI16,
			MSIRange:  6,
		}),
		Indicator: [2]bool{true, true},
	},
}

func pllDefaults(c clockmodel.Config) clockmodel.Config {
	c.PLLM, c.PLLN, c.PLLR = 1, 10, 2
	return c
}

// WithPLLSource returns a copy of t whose PLL entries take their input
// from src.
func (t Table) WithPLLSource(src clockmodel.PLLSource) Table {
	for m := range t {
		if t[m].Config.Source == clockmodel.SourcePLL {
			t[m].Config.PLLSource = src
		}
	}
	return t
}

// Validate checks every entry once, before any of them reaches hardware.
func (t *Table) Validate(osc clockmodel.Oscillators) error {
	for m := Mode(0); m < NumModes; m++ {
		if err := clockmodel.Validate(t[m].Config, osc); err != nil {
			return errcode.Wrap(errcode.ConfigurationFault, "modeseq.table", m.String(), err)
		}
	}
	return nil
}
