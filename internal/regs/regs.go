// Package regs is the narrow register interface the clock drivers are
// written against. *volatile.Register32 from TinyGo satisfies Register32,
// and Reg backs the same drivers with plain memory on the host.
package regs

import "sync"

// Register32 is one 32-bit memory-mapped register.
type Register32 interface {
	Get() uint32
	Set(value uint32)
	SetBits(value uint32)
	ClearBits(value uint32)
	HasBits(value uint32) bool
	ReplaceBits(value uint32, mask uint32, pos uint8)
}

// Field is a bit field inside a register.
type Field struct {
	Pos  uint8
	Mask uint32 // unshifted
}

// Read returns the field value of r.
func (f Field) Read(r Register32) uint32 { return (r.Get() >> f.Pos) & f.Mask }

// Write replaces the field in r with v (read-modify-write).
func (f Field) Write(r Register32, v uint32) { r.ReplaceBits(v&f.Mask, f.Mask, f.Pos) }

// Bits returns v placed in the field, for composing whole-register stores.
func (f Field) Bits(v uint32) uint32 { return (v & f.Mask) << f.Pos }

// Reg is a memory-backed Register32. Hooks let a simulator model hardware
// side effects: OnWrite sees the old and proposed value and returns what is
// actually stored, OnRead may rewrite the value being observed.
type Reg struct {
	mu      sync.Mutex
	v       uint32
	OnWrite func(old, proposed uint32) uint32
	OnRead  func(v uint32) uint32
}

// NewReg returns a Reg holding the given reset value.
func NewReg(reset uint32) *Reg { return &Reg{v: reset} }

func (r *Reg) Get() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.OnRead != nil {
		r.v = r.OnRead(r.v)
	}
	return r.v
}

func (r *Reg) store(v uint32) {
	if r.OnWrite != nil {
		v = r.OnWrite(r.v, v)
	}
	r.v = v
}

func (r *Reg) Set(v uint32) {
	r.mu.Lock()
	r.store(v)
	r.mu.Unlock()
}

func (r *Reg) SetBits(v uint32) {
	r.mu.Lock()
	r.store(r.v | v)
	r.mu.Unlock()
}

func (r *Reg) ClearBits(v uint32) {
	r.mu.Lock()
	r.store(r.v &^ v)
	r.mu.Unlock()
}

func (r *Reg) HasBits(v uint32) bool { return r.Get()&v != 0 }

func (r *Reg) ReplaceBits(value, mask uint32, pos uint8) {
	r.mu.Lock()
	r.store(r.v&^(mask<<pos) | value<<pos)
	r.mu.Unlock()
}

// Peek returns the stored value without running OnRead.
func (r *Reg) Peek() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v
}
