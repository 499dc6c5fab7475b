package rcc

import (
	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/regs"
	"clockcycle-go/x/mathx"
	"clockcycle-go/x/logx"
)

// Flash sets the flash read latency.
type Flash struct{ acr regs.Register32 }

func NewFlash(m Map) Flash { return Flash{acr: m.FlashACR} }

// SetLatency stores the wait-state count with prefetch and both caches on.
// The value is clamped to the LATENCY field.
func (f Flash) SetLatency(ws uint32) {
	ws = mathx.Min(ws, MaxLatency)
	logx.Debug("Set latency to", ws)
	f.acr.Set(ACR_PRFTEN | ACR_ICEN | ACR_DCEN | ACR_LATENCY.Bits(ws))
}

func (f Flash) Latency() uint32 { return ACR_LATENCY.Read(f.acr) }

// MSI is the multispeed internal oscillator.
type MSI struct{ cr regs.Register32 }

func NewMSI(m Map) MSI { return MSI{cr: m.CR} }

// Start selects rng from RCC_CR, enables LSE auto-calibration and waits for
// MSIRDY.
func (o MSI) Start(rng uint32, w regs.WaitPolicy) error {
	o.cr.SetBits(CR_MSION)
	// MSIRANGE may only be rewritten while MSI is off or ready.
	if err := w.Set("msi.ready", o.cr, CR_MSIRDY); err != nil {
		return err
	}
	v := o.cr.Get()
	v = v&^(CR_MSIRANGE.Mask<<CR_MSIRANGE.Pos) | CR_MSIRANGE.Bits(rng)
	o.cr.Set(v | CR_MSIPLLEN | CR_MSIRGSEL)
	return w.Set("msi.ready", o.cr, CR_MSIRDY)
}

// Reset drops calibration and requests MSI off. Hardware keeps MSI running
// while it is the system clock.
func (o MSI) Reset() {
	o.cr.ClearBits(CR_MSIPLLEN | CR_MSION)
	CR_MSIRANGE.Write(o.cr, MSIResetRange)
}

func (o MSI) Range() uint32 { return CR_MSIRANGE.Read(o.cr) }

// HSI16 is the 16 MHz internal oscillator.
type HSI16 struct{ cr regs.Register32 }

func NewHSI16(m Map) HSI16 { return HSI16{cr: m.CR} }

func (o HSI16) Start(w regs.WaitPolicy) error {
	logx.Debug("HSI16 init")
	o.cr.SetBits(CR_HSION)
	return w.Set("hsi16.ready", o.cr, CR_HSIRDY)
}

func (o HSI16) Reset() { o.cr.ClearBits(CR_HSION) }

// HSE is the external high-speed clock input. The board feeds it from an
// oscillator that may itself need programming first.
type HSE struct {
	cr     regs.Register32
	source ExternalClock
}

// ExternalClock is a board part that generates the HSE input.
type ExternalClock interface {
	Enable(hz uint32) error
}

func NewHSE(m Map, src ExternalClock) HSE { return HSE{cr: m.CR, source: src} }

// Start brings up the external source (if any) and HSE in bypass mode.
func (o HSE) Start(hz uint32, w regs.WaitPolicy) error {
	if o.source != nil {
		if err := o.source.Enable(hz); err != nil {
			return err
		}
	}
	o.cr.SetBits(CR_HSEBYP)
	o.cr.SetBits(CR_HSEON)
	return w.Set("hse.ready", o.cr, CR_HSERDY)
}

func (o HSE) Reset() { o.cr.ClearBits(CR_HSEON | CR_HSEBYP) }

// LSE is the 32.768 kHz crystal in the backup domain.
type LSE struct {
	bdcr, apb1enr1, pwrCR1, pwrCR4 regs.Register32
}

func NewLSE(m Map) LSE {
	return LSE{bdcr: m.BDCR, apb1enr1: m.APB1ENR1, pwrCR1: m.PWRCR1, pwrCR4: m.PWRCR4}
}

// Start unlocks the backup domain, switches the crystal on and waits for
// LSERDY.
func (o LSE) Start(w regs.WaitPolicy) error {
	o.apb1enr1.SetBits(APB1ENR1_PWREN)
	o.pwrCR1.SetBits(PWRCR1_DBP)
	PWRCR1_LPMS.Write(o.pwrCR1, LPMSStop2)
	o.pwrCR4.SetBits(PWRCR4_VBRS | PWRCR4_VBE)

	v := o.bdcr.Get()
	v &^= BDCR_LSEBYP | BDCR_LSEDRV.Mask<<BDCR_LSEDRV.Pos
	o.bdcr.Set(v | BDCR_LSEON | BDCR_LSEDRV.Bits(LSEDriveMediumLow))

	o.apb1enr1.ClearBits(APB1ENR1_PWREN)
	return w.Set("lse.ready", o.bdcr, BDCR_LSERDY)
}

func (o LSE) Reset() { o.bdcr.ClearBits(BDCR_LSEON) }

// PLL is the main PLL.
type PLL struct{ cr, cfgr regs.Register32 }

func NewPLL(m Map) PLL { return PLL{cr: m.CR, cfgr: m.PLLCFGR} }

// Configure programs the factor fields. PLL must be off.
func (p PLL) Configure(src clockmodel.PLLSource, m, n, r uint32) {
	p.cfgr.Set(PLLCFGR_PLLSRC.Bits(uint32(src)) |
		PLLCFGR_PLLM.Bits(m-1) |
		PLLCFGR_PLLN.Bits(n) |
		PLLCFGR_PLLR.Bits(r/2-1) |
		PLLCFGR_PLLREN)
}

func (p PLL) Enable(w regs.WaitPolicy) error {
	logx.Debug("PLL enable")
	p.cr.SetBits(CR_PLLON)
	return w.Set("pll.ready", p.cr, CR_PLLRDY)
}

func (p PLL) Disable(w regs.WaitPolicy) error {
	p.cr.ClearBits(CR_PLLON)
	return w.Clear("pll.off", p.cr, CR_PLLRDY)
}

// Reset switches the PLL off, waits for PLLRDY to drop and restores
// PLLCFGR, which is only writable while the PLL is stopped.
func (p PLL) Reset(w regs.WaitPolicy) error {
	p.cr.ClearBits(CR_PLLON)
	if err := w.Clear("pll.off", p.cr, CR_PLLRDY); err != nil {
		return err
	}
	p.cfgr.Set(ResetPLLCFGR)
	return nil
}

// Readback decodes the live factor fields.
func (p PLL) Readback() (src clockmodel.PLLSource, m, n, r uint32) {
	v := p.cfgr.Get()
	src = clockmodel.PLLSource((v >> PLLCFGR_PLLSRC.Pos) & PLLCFGR_PLLSRC.Mask)
	m = (v>>PLLCFGR_PLLM.Pos)&PLLCFGR_PLLM.Mask + 1
	n = (v >> PLLCFGR_PLLN.Pos) & PLLCFGR_PLLN.Mask
	r = ((v>>PLLCFGR_PLLR.Pos)&PLLCFGR_PLLR.Mask + 1) * 2
	return
}

// Switch is the SYSCLK multiplexer and bus prescaler block.
type Switch struct{ cfgr, apb1enr1 regs.Register32 }

func NewSwitch(m Map) Switch { return Switch{cfgr: m.CFGR, apb1enr1: m.APB1ENR1} }

// Select switches SYSCLK to src.
func (s Switch) Select(src clockmodel.Source) {
	s.cfgr.Set(CFGR_SW.Bits(uint32(src)) | CFGR_PPRE1.Bits(PPRE1Div16))
}

// Status reads the SYSCLK switch status.
func (s Switch) Status() clockmodel.Source { return clockmodel.Source(CFGR_SWS.Read(s.cfgr)) }

// Reset selects MSI and gates the PWR interface clock. The other APB1
// enables belong to their peripherals (I2C1 feeds the HSE synthesizer) and
// are left as they are.
func (s Switch) Reset() {
	s.Select(clockmodel.SourceMSI)
	s.apb1enr1.ClearBits(APB1ENR1_PWREN)
}
