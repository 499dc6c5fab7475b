package regs

import "clockcycle-go/errcode"

// WaitPolicy bounds hardware readiness polling.
//
// MaxPolls == 0 spins until the flag sets, which is the hardware contract:
// a flag that never sets hangs the core. A positive MaxPolls turns the hang
// into an errcode.HardwareNotReady that the caller escalates to its fault
// handler.
type WaitPolicy struct {
	MaxPolls uint32
}

// Unbounded spins forever.
var Unbounded = WaitPolicy{}

// Until polls cond until it reports true.
func (w WaitPolicy) Until(op string, cond func() bool) error {
	if w.MaxPolls == 0 {
		for !cond() {
		}
		return nil
	}
	for i := uint32(0); i < w.MaxPolls; i++ {
		if cond() {
			return nil
		}
	}
	return errcode.Wrap(errcode.HardwareNotReady, op, "ready flag never settled", nil)
}

// Set waits for bit mask in r to read 1.
func (w WaitPolicy) Set(op string, r Register32, mask uint32) error {
	return w.Until(op, func() bool { return r.HasBits(mask) })
}

// Clear waits for bit mask in r to read 0.
func (w WaitPolicy) Clear(op string, r Register32, mask uint32) error {
	return w.Until(op, func() bool { return !r.HasBits(mask) })
}
