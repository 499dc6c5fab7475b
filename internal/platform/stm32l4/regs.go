//go:build stm32l4

// Package stm32l4 binds the firmware to a Nucleo-144 STM32L4+ board: the
// RCC, PWR and FLASH registers, SysTick, the user LEDs and button, the SWO
// console and the optional Si5351 on I2C1.
package stm32l4

import (
	"device/stm32"

	"clockcycle-go/internal/rcc"
)

// Map returns the live clock registers.
func Map() rcc.Map {
	return rcc.Map{
		CR:       &stm32.RCC.CR,
		CFGR:     &stm32.RCC.CFGR,
		PLLCFGR:  &stm32.RCC.PLLCFGR,
		BDCR:     &stm32.RCC.BDCR,
		APB1ENR1: &stm32.RCC.APB1ENR1,
		PWRCR1:   &stm32.PWR.CR1,
		PWRCR4:   &stm32.PWR.CR4,
		FlashACR: &stm32.FLASH.ACR,
	}
}
