// Package sim emulates the parts of an STM32L4+ the clock firmware touches:
// the RCC, PWR and FLASH_ACR registers, the SysTick timer, the user LEDs
// and the user button. It lets the whole firmware run under go test.
package sim

import (
	"sync"

	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/rcc"
	"clockcycle-go/internal/regs"
	"clockcycle-go/x/mathx"
)

// Osc names an emulated oscillator.
type Osc uint8

const (
	OscMSI Osc = iota
	OscHSI16
	OscHSE
	OscPLL
	OscLSE
	numOsc
)

func (o Osc) String() string {
	return [...]string{"MSI", "HSI16", "HSE", "PLL", "LSE"}[o]
}

// on/ready bit pairs; LSE lives in BDCR, the rest in CR.
var oscBits = [numOsc]struct{ on, rdy uint32 }{
	OscMSI:   {rcc.CR_MSION, rcc.CR_MSIRDY},
	OscHSI16: {rcc.CR_HSION, rcc.CR_HSIRDY},
	OscHSE:   {rcc.CR_HSEON, rcc.CR_HSERDY},
	OscPLL:   {rcc.CR_PLLON, rcc.CR_PLLRDY},
	OscLSE:   {rcc.BDCR_LSEON, rcc.BDCR_LSERDY},
}

const crReady = rcc.CR_MSIRDY | rcc.CR_HSIRDY | rcc.CR_HSERDY | rcc.CR_PLLRDY

// Violation records a moment when the flash latency was too small for the
// core clock.
type Violation struct {
	Op      string
	HCLK    uint32
	Latency uint32
}

type lag struct {
	pending bool
	left    uint32
}

// Chip is the emulated register file. Ready flags follow their enable bits
// after SettlePolls reads of the owning register.
//
// Hooks run under the owning register's lock and only touch chip state, so
// registers never lock each other.
type Chip struct {
	CR, CFGR, PLLCFGR, BDCR, APB1ENR1, PWRCR1, PWRCR4, ACR *regs.Reg

	mu          sync.Mutex
	osc         clockmodel.Oscillators
	settlePolls uint32

	cr, pllcfgr, bdcr, apb1, pwr1 uint32 // shadows
	latency                       uint32
	sw, sws                       clockmodel.Source
	lags                          [numOsc]lag
	stuck                         [numOsc]bool
	hseFeed                       *Synth // nil: HSE input always present
	maxLatency                    uint32 // 0: no device limit
	switches                      int
	violations                    []Violation
}

func NewChip(osc clockmodel.Oscillators, settlePolls uint32) *Chip {
	c := &Chip{
		CR:       regs.NewReg(rcc.ResetCR),
		CFGR:     regs.NewReg(rcc.ResetCFGR),
		PLLCFGR:  regs.NewReg(rcc.ResetPLLCFGR),
		BDCR:     regs.NewReg(0),
		APB1ENR1: regs.NewReg(0),
		PWRCR1:   regs.NewReg(0),
		PWRCR4:   regs.NewReg(0),
		ACR:      regs.NewReg(rcc.ResetACR),

		osc:         osc,
		settlePolls: settlePolls,
		cr:          rcc.ResetCR,
		pllcfgr:     rcc.ResetPLLCFGR,
		latency:     field(rcc.ResetACR, rcc.ACR_LATENCY),
	}

	c.CR.OnWrite = c.writeCR
	c.CR.OnRead = c.readCR
	c.CFGR.OnWrite = c.writeCFGR
	c.CFGR.OnRead = c.readCFGR
	c.PLLCFGR.OnWrite = c.writePLLCFGR
	c.BDCR.OnWrite = c.writeBDCR
	c.BDCR.OnRead = c.readBDCR
	c.APB1ENR1.OnWrite = c.writeAPB1
	c.PWRCR1.OnWrite = c.writePWR(true)
	c.PWRCR4.OnWrite = c.writePWR(false)
	c.ACR.OnWrite = c.writeACR
	return c
}

// Map exposes the register file to the rcc drivers.
func (c *Chip) Map() rcc.Map {
	return rcc.Map{
		CR: c.CR, CFGR: c.CFGR, PLLCFGR: c.PLLCFGR, BDCR: c.BDCR,
		APB1ENR1: c.APB1ENR1, PWRCR1: c.PWRCR1, PWRCR4: c.PWRCR4, FlashACR: c.ACR,
	}
}

// Stick makes o's ready flag never set, as a dead oscillator would.
func (c *Chip) Stick(o Osc, stuck bool) {
	c.mu.Lock()
	c.stuck[o] = stuck
	c.mu.Unlock()
}

// HCLK is the core clock the emulated switch is currently delivering.
func (c *Chip) HCLK() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hclk()
}

func (c *Chip) SysClk() clockmodel.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sws
}

func (c *Chip) Latency() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// Switches counts completed SYSCLK switches.
func (c *Chip) Switches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switches
}

// LimitLatency caps the wait states the chip asks for (L49x: 4).
func (c *Chip) LimitLatency(ws uint32) {
	c.mu.Lock()
	c.maxLatency = ws
	c.mu.Unlock()
}

func (c *Chip) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Violation(nil), c.violations...)
}

// I2C1Clocked reports whether the I2C1 kernel clock is enabled.
func (c *Chip) I2C1Clocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apb1&rcc.APB1ENR1_I2C1EN != 0
}

func field(v uint32, f regs.Field) uint32 { return (v >> f.Pos) & f.Mask }

// ---- RCC_CR ----

func (c *Chip) writeCR(old, v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v = v&^crReady | old&crReady
	// The oscillator driving SYSCLK (and the PLL's input) cannot be stopped.
	switch c.sws {
	case clockmodel.SourceMSI:
		v |= rcc.CR_MSION
	case clockmodel.SourceHSI16:
		v |= rcc.CR_HSION
	case clockmodel.SourceHSE:
		v |= rcc.CR_HSEON
	case clockmodel.SourcePLL:
		v |= rcc.CR_PLLON
		if in, ok := c.pllInput(); ok {
			v |= oscBits[in].on
		}
	}
	c.cr = v
	c.check("cr")
	return v
}

func (c *Chip) readCR(v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for o := OscMSI; o <= OscPLL; o++ {
		v = c.follow(o, v)
	}
	c.cr = v
	return v
}

// follow moves o's ready bit in v toward its enable bit.
func (c *Chip) follow(o Osc, v uint32) uint32 {
	b := oscBits[o]
	want := v&b.on != 0 && !c.stuck[o]
	if o == OscHSE && c.hseFeed != nil {
		want = want && c.hseFeed.running()
	}
	if o == OscPLL && want {
		in, ok := c.pllInput()
		want = ok && v&oscBits[in].rdy != 0
	}
	have := v&b.rdy != 0
	l := &c.lags[o]
	if want == have {
		l.pending = false
		return v
	}
	if !l.pending {
		l.pending, l.left = true, c.settlePolls
	}
	if l.left > 0 {
		l.left--
		return v
	}
	l.pending = false
	if want {
		return v | b.rdy
	}
	return v &^ b.rdy
}

func (c *Chip) pllInput() (Osc, bool) {
	switch clockmodel.PLLSource(field(c.pllcfgr, rcc.PLLCFGR_PLLSRC)) {
	case clockmodel.PLLMSI:
		return OscMSI, true
	case clockmodel.PLLHSI16:
		return OscHSI16, true
	case clockmodel.PLLHSE:
		return OscHSE, true
	}
	return 0, false
}

// ---- RCC_CFGR ----

var swsMask = rcc.CFGR_SWS.Mask << rcc.CFGR_SWS.Pos

func (c *Chip) writeCFGR(old, v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sw = clockmodel.Source(field(v, rcc.CFGR_SW))
	return v&^swsMask | old&swsMask
}

// The switch completes on the first read after the target is ready.
func (c *Chip) readCFGR(v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sw != c.sws && c.cr&oscBits[sourceOsc(c.sw)].rdy != 0 {
		c.sws = c.sw
		c.switches++
		c.check("sysclk.switch")
	}
	return v&^swsMask | rcc.CFGR_SWS.Bits(uint32(c.sws))
}

func sourceOsc(s clockmodel.Source) Osc {
	switch s {
	case clockmodel.SourceHSI16:
		return OscHSI16
	case clockmodel.SourceHSE:
		return OscHSE
	case clockmodel.SourcePLL:
		return OscPLL
	}
	return OscMSI
}

// ---- RCC_PLLCFGR ----

// Factor writes are ignored while the PLL runs.
func (c *Chip) writePLLCFGR(old, v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cr&(rcc.CR_PLLON|rcc.CR_PLLRDY) != 0 {
		return old
	}
	c.pllcfgr = v
	return v
}

// ---- Backup domain and PWR ----

func (c *Chip) writeBDCR(old, v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pwr1&rcc.PWRCR1_DBP == 0 {
		return old // write protected
	}
	v = v&^rcc.BDCR_LSERDY | old&rcc.BDCR_LSERDY
	c.bdcr = v
	return v
}

func (c *Chip) readBDCR(v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v = c.follow(OscLSE, v)
	c.bdcr = v
	return v
}

func (c *Chip) writeAPB1(_, v uint32) uint32 {
	c.mu.Lock()
	c.apb1 = v
	c.mu.Unlock()
	return v
}

// PWR registers ignore writes while the PWR clock is gated.
func (c *Chip) writePWR(cr1 bool) func(old, v uint32) uint32 {
	return func(old, v uint32) uint32 {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.apb1&rcc.APB1ENR1_PWREN == 0 {
			return old
		}
		if cr1 {
			c.pwr1 = v
		}
		return v
	}
}

// ---- FLASH_ACR ----

func (c *Chip) writeACR(_, v uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency = field(v, rcc.ACR_LATENCY)
	c.check("flash.latency")
	return v
}

// ---- clock derivation ----

func (c *Chip) hclk() uint32 {
	cfg := clockmodel.Config{
		Source:    c.sws,
		PLLSource: clockmodel.PLLSource(field(c.pllcfgr, rcc.PLLCFGR_PLLSRC)),
		PLLM:      field(c.pllcfgr, rcc.PLLCFGR_PLLM) + 1,
		PLLN:      field(c.pllcfgr, rcc.PLLCFGR_PLLN),
		PLLR:      (field(c.pllcfgr, rcc.PLLCFGR_PLLR) + 1) * 2,
		MSIRange:  field(c.cr, rcc.CR_MSIRANGE),
	}
	return clockmodel.Derive(cfg, c.osc).HCLK
}

func (c *Chip) check(op string) {
	h := c.hclk()
	need := clockmodel.WaitStates(h)
	if c.maxLatency != 0 {
		need = mathx.Min(need, c.maxLatency)
	}
	if c.latency < need {
		c.violations = append(c.violations, Violation{Op: op, HCLK: h, Latency: c.latency})
	}
}
