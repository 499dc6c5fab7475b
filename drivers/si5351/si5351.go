// Package si5351 programs an Si5351A clock generator as the HSE source of
// the MCU. Only CLK0 is used, driven from PLLA through multisynth 0.
//
//	d := si5351.New(bus)
//	d.Configure(si5351.Config{})
//	err := d.Enable(16_000_000) // CLK0 = 16 MHz
//
// All divider maths is integer; fractional parts are exact rationals
// reduced to fit the 20-bit denominator.
package si5351

import (
	"errors"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x60

// Registers (AN619).
const (
	regStatus       = 0
	regOutputEnable = 3
	regCLK0Control  = 16
	regPLLA         = 26
	regMS0          = 42
	regPLLReset     = 177
	regXtalLoad     = 183

	statusSysInit = 0x80
	statusLOLA    = 0x20

	clkPowerDown = 0x80
	clkIntMode   = 0x40
	clkSrcMS     = 0x0C
	clkDrive8mA  = 0x03

	pllResetA = 0x20
	xtalLoad  = 0x12 // reserved bits as documented
)

// Limits.
const (
	MinVCO   = 600_000_000
	MaxVCO   = 900_000_000
	MinOut   = 1_000_000
	MaxOut   = 150_000_000
	maxDenom = 1<<20 - 1
)

var (
	ErrRange    = errors.New("si5351: frequency out of range")
	ErrNotReady = errors.New("si5351: not ready")
)

// XtalLoad selects the crystal load capacitance.
type XtalLoad uint8

const (
	Load6pF  XtalLoad = 1
	Load8pF  XtalLoad = 2
	Load10pF XtalLoad = 3
)

type Config struct {
	// Address defaults to 0x60 if zero.
	Address uint16
	// XtalHz defaults to 25 MHz.
	XtalHz uint32
	// Load defaults to 10 pF.
	Load XtalLoad
}

// Ratio is a + b/c.
type Ratio struct{ A, B, C uint32 }

// NewRatio reduces num/den to a + b/c with c inside the 20-bit field.
func NewRatio(num, den uint64) Ratio {
	a := num / den
	rem := num % den
	if rem == 0 {
		return Ratio{A: uint32(a), B: 0, C: 1}
	}
	g := gcd(rem, den)
	b, c := rem/g, den/g
	if c > maxDenom {
		b = rem * maxDenom / den
		c = maxDenom
	}
	return Ratio{A: uint32(a), B: uint32(b), C: uint32(c)}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Params encodes the ratio as the chip's P1, P2, P3.
func (r Ratio) Params() (p1, p2, p3 uint32) {
	f := 128 * r.B / r.C
	p1 = 128*r.A + f - 512
	p2 = 128*r.B - r.C*f
	p3 = r.C
	return
}

// Plan is one CLK0 setting: VCO = xtal * Feedback, out = VCO / Output.
type Plan struct {
	VCO      uint32
	Feedback Ratio
	Output   uint32 // even integer multisynth divider
}

// PlanFor picks an even integer output divider that puts the VCO in range,
// then derives the fractional feedback ratio.
func PlanFor(xtal, hz uint32) (Plan, error) {
	if hz < MinOut || hz > MaxOut || xtal == 0 {
		return Plan{}, ErrRange
	}
	div := (MinVCO + hz - 1) / hz
	if div%2 != 0 {
		div++
	}
	if div < 6 {
		div = 6
	}
	vco := uint64(div) * uint64(hz)
	if vco > MaxVCO {
		return Plan{}, ErrRange
	}
	fb := NewRatio(vco, uint64(xtal))
	if fb.A < 15 || fb.A > 90 {
		return Plan{}, ErrRange
	}
	return Plan{VCO: uint32(vco), Feedback: fb, Output: div}, nil
}

// Device wraps an I2C connection to an Si5351.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	buf [9]byte
}

// New creates the device object; it does not touch the bus.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure applies cfg and sets the crystal load.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	if cfg.XtalHz == 0 {
		cfg.XtalHz = 25_000_000
	}
	if cfg.Load == 0 {
		cfg.Load = Load10pF
	}
	d.cfg = cfg
	return d.write(regXtalLoad, byte(cfg.Load)<<6|xtalLoad)
}

// Status reads the device status byte.
func (d *Device) Status() (byte, error) {
	r := d.buf[:1]
	if err := d.bus.Tx(d.Address, []byte{regStatus}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// Enable programs CLK0 to hz and switches it on. It satisfies the clock
// drivers' external HSE source interface.
func (d *Device) Enable(hz uint32) error {
	if d.cfg.XtalHz == 0 {
		if err := d.Configure(Config{}); err != nil {
			return err
		}
	}
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusSysInit != 0 {
		return ErrNotReady
	}
	p, err := PlanFor(d.cfg.XtalHz, hz)
	if err != nil {
		return err
	}

	if err := d.write(regOutputEnable, 0xFF); err != nil {
		return err
	}
	if err := d.write(regCLK0Control, clkPowerDown); err != nil {
		return err
	}
	if err := d.writeRatio(regPLLA, p.Feedback, 0); err != nil {
		return err
	}
	if err := d.writeRatio(regMS0, Ratio{A: p.Output, C: 1}, 0); err != nil {
		return err
	}
	if err := d.write(regPLLReset, pllResetA); err != nil {
		return err
	}
	if err := d.write(regCLK0Control, clkIntMode|clkSrcMS|clkDrive8mA); err != nil {
		return err
	}
	if st, err = d.Status(); err != nil {
		return err
	}
	if st&statusLOLA != 0 {
		return ErrNotReady
	}
	return d.write(regOutputEnable, 0xFE)
}

// Disable stops all outputs.
func (d *Device) Disable() error {
	return d.write(regOutputEnable, 0xFF)
}

func (d *Device) write(reg, v byte) error {
	return d.bus.Tx(d.Address, []byte{reg, v}, nil)
}

// writeRatio writes the eight-register P1/P2/P3 block at base.
func (d *Device) writeRatio(base byte, r Ratio, rdiv byte) error {
	p1, p2, p3 := r.Params()
	b := d.buf[:9]
	b[0] = base
	b[1] = byte(p3 >> 8)
	b[2] = byte(p3)
	b[3] = rdiv<<4 | byte(p1>>16)&0x03
	b[4] = byte(p1 >> 8)
	b[5] = byte(p1)
	b[6] = byte(p3>>16)<<4 | byte(p2>>16)&0x0F
	b[7] = byte(p2 >> 8)
	b[8] = byte(p2)
	return d.bus.Tx(d.Address, b, nil)
}
