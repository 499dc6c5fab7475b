// Package rcc drives the STM32L4+ reset and clock control block (plus the
// flash and power bits the clock tree depends on) through regs.Register32.
//
// Bit positions follow RM0432. Each driver only holds the registers it
// touches.
package rcc

import "clockcycle-go/internal/regs"

// Map is the set of registers the clock tree uses.
type Map struct {
	CR       regs.Register32 // RCC_CR
	CFGR     regs.Register32 // RCC_CFGR
	PLLCFGR  regs.Register32 // RCC_PLLCFGR
	BDCR     regs.Register32 // RCC_BDCR
	APB1ENR1 regs.Register32 // RCC_APB1ENR1
	PWRCR1   regs.Register32 // PWR_CR1
	PWRCR4   regs.Register32 // PWR_CR4
	FlashACR regs.Register32 // FLASH_ACR
}

// RCC_CR
const (
	CR_MSION    = 1 << 0
	CR_MSIRDY   = 1 << 1
	CR_MSIPLLEN = 1 << 2
	CR_MSIRGSEL = 1 << 3
	CR_HSION    = 1 << 8
	CR_HSIRDY   = 1 << 10
	CR_HSEON    = 1 << 16
	CR_HSERDY   = 1 << 17
	CR_HSEBYP   = 1 << 18
	CR_PLLON    = 1 << 24
	CR_PLLRDY   = 1 << 25
)

var CR_MSIRANGE = regs.Field{Pos: 4, Mask: 0xF}

// RCC_CFGR
var (
	CFGR_SW    = regs.Field{Pos: 0, Mask: 0x3}
	CFGR_SWS   = regs.Field{Pos: 2, Mask: 0x3}
	CFGR_PPRE1 = regs.Field{Pos: 8, Mask: 0x7}
)

// RCC_PLLCFGR
var (
	PLLCFGR_PLLSRC = regs.Field{Pos: 0, Mask: 0x3}
	PLLCFGR_PLLM   = regs.Field{Pos: 4, Mask: 0xF}
	PLLCFGR_PLLN   = regs.Field{Pos: 8, Mask: 0x7F}
	PLLCFGR_PLLR   = regs.Field{Pos: 25, Mask: 0x3}
)

const PLLCFGR_PLLREN = 1 << 24

// RCC_BDCR
const (
	BDCR_LSEON  = 1 << 0
	BDCR_LSERDY = 1 << 1
	BDCR_LSEBYP = 1 << 2
)

var BDCR_LSEDRV = regs.Field{Pos: 3, Mask: 0x3}

// RCC_APB1ENR1
const (
	APB1ENR1_I2C1EN = 1 << 21
	APB1ENR1_PWREN  = 1 << 28
)

// PWR_CR1 / PWR_CR4
const (
	PWRCR1_DBP  = 1 << 8
	PWRCR4_VBE  = 1 << 8
	PWRCR4_VBRS = 1 << 9
)

var PWRCR1_LPMS = regs.Field{Pos: 0, Mask: 0x7}

// FLASH_ACR
const (
	ACR_PRFTEN = 1 << 8
	ACR_ICEN   = 1 << 9
	ACR_DCEN   = 1 << 10
)

var ACR_LATENCY = regs.Field{Pos: 0, Mask: 0xF}

// Power-on reset values.
const (
	ResetCR      = 0x0000_0063 // MSION, MSIRDY, MSIRANGE=6
	ResetCFGR    = 0x0000_0000
	ResetPLLCFGR = 0x0000_1000 // PLLN=16
	ResetACR     = 0x0000_0600 // ICEN, DCEN
)

const (
	// MaxLatency is the widest FLASH_ACR.LATENCY value.
	MaxLatency = 15
	// APB1 prescaler code written with every SYSCLK switch (HCLK/16).
	PPRE1Div16 = 0b110
	// LSE drive capability "medium low".
	LSEDriveMediumLow = 0b01
	// Low-power mode selection written during LSE bring-up.
	LPMSStop2 = 0b010
	// MSI range after reset (4 MHz).
	MSIResetRange = 0b0110
)
