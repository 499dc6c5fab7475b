//go:build stm32l4

package stm32l4

import (
	"runtime/volatile"
	"unsafe"
)

// ARMv7-M debug blocks.
var (
	itmStim0  = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0000000)))
	itmStim0b = (*volatile.Register8)(unsafe.Pointer(uintptr(0xE0000000)))
	itmTER    = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0000E00)))
	itmTCR    = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0000E80)))
	itmLAR    = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0000FB0)))
	demcr     = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000EDFC)))
	tpiACPR   = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0040010)))
	tpiSPPR   = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE00400F0)))
	tpiFFCR   = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0040304)))
	dbgmcuCR  = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0042004)))
)

const (
	demcrTRCENA   = 1 << 24
	dbgTraceIOEN  = 1 << 5
	itmTCRITMENA  = 1 << 0
	itmTCRSWOENA  = 1 << 4
	itmTCRTraceID = 1 << 16
	itmTCRBusy    = 1 << 23
	sppNRZ        = 2
	ffcrTrigIn    = 0x100
	itmUnlock     = 0xC5ACCE55
)

// SWO writes console text to ITM stimulus port 0 as asynchronous NRZ
// trace. The pin rate follows HCLK, so Retune must be called whenever the
// core clock changes.
type SWO struct {
	Baud uint32
}

// NewSWO enables the trace path at the given HCLK.
func NewSWO(hclk, baud uint32) *SWO {
	demcr.SetBits(demcrTRCENA)
	dbgmcuCR.SetBits(dbgTraceIOEN)
	tpiSPPR.Set(sppNRZ)
	tpiFFCR.Set(ffcrTrigIn)
	itmLAR.Set(itmUnlock)
	itmTCR.Set(itmTCRTraceID | itmTCRSWOENA | itmTCRITMENA)
	itmTER.SetBits(1)
	s := &SWO{Baud: baud}
	s.Retune(hclk)
	return s
}

// Flush waits until the stimulus port has taken the last byte and the ITM
// has handed everything to the TPIU.
func (s *SWO) Flush() {
	if !s.enabled() {
		return
	}
	for itmStim0.Get()&1 == 0 {
	}
	for itmTCR.HasBits(itmTCRBusy) {
	}
}

// Retune reprograms the asynchronous clock prescaler for hclk. Flush
// first, or bytes queued at the old rate come out garbled.
func (s *SWO) Retune(hclk uint32) {
	if s.Baud == 0 || hclk < s.Baud {
		return
	}
	tpiACPR.Set(hclk/s.Baud - 1)
}

// Write drops output when no probe has enabled the port.
func (s *SWO) Write(p []byte) (int, error) {
	if !s.enabled() {
		return len(p), nil
	}
	for _, b := range p {
		for itmStim0.Get()&1 == 0 {
		}
		itmStim0b.Set(b)
	}
	return len(p), nil
}

func (s *SWO) enabled() bool {
	return itmTCR.HasBits(itmTCRITMENA) && itmTER.HasBits(1)
}
