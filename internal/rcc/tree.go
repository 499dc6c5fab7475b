package rcc

import "clockcycle-go/internal/clocktree"

// Tree wires the drivers over m into the controller's hardware handles.
// ext may be nil when HSE is fed by a free-running source.
func Tree(m Map, ext ExternalClock) clocktree.Hardware {
	return clocktree.Hardware{
		Flash:  NewFlash(m),
		LSE:    NewLSE(m),
		MSI:    NewMSI(m),
		HSI16:  NewHSI16(m),
		HSE:    NewHSE(m, ext),
		PLL:    NewPLL(m),
		Switch: NewSwitch(m),
	}
}
