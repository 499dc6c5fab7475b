//go:build stm32l4

package stm32l4

import (
	"device/arm"
	"time"

	"clockcycle-go/internal/eventloop"
)

// SysTick runs from the external reference (HCLK/8) so that a 100 ms period
// fits the 24-bit reload at every core clock the board reaches.
type SysTick struct{}

var tickHook func()

//export SysTick_Handler
func sysTickHandler() {
	if h := tickHook; h != nil {
		h()
	}
}

// NewSysTick routes every expiry to pulse. Only one SysTick exists.
func NewSysTick(pulse func()) SysTick {
	tickHook = pulse
	return SysTick{}
}

func (SysTick) Start(hclk uint32, period time.Duration) error {
	reload, err := eventloop.SysTickReload(hclk, period)
	if err != nil {
		return err
	}
	arm.SYST.SYST_CSR.ClearBits(arm.SYST_CSR_TICKINT | arm.SYST_CSR_ENABLE)
	arm.SYST.SYST_RVR.Set(reload)
	arm.SYST.SYST_CVR.Set(0)
	// CLKSOURCE left clear: HCLK/8.
	arm.SYST.SYST_CSR.SetBits(arm.SYST_CSR_TICKINT | arm.SYST_CSR_ENABLE)
	return nil
}

func (SysTick) Stop() {
	arm.SYST.SYST_CSR.ClearBits(arm.SYST_CSR_TICKINT | arm.SYST_CSR_ENABLE)
}
