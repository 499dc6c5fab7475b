package regs

import (
	"errors"
	"testing"

	"clockcycle-go/errcode"
)

func TestFieldReadWrite(t *testing.T) {
	r := NewReg(0xFFFF_0000)
	f := Field{Pos: 4, Mask: 0xF}
	f.Write(r, 0xB)
	if got := r.Get(); got != 0xFFFF_00B0 {
		t.Fatalf("register = %#x", got)
	}
	if got := f.Read(r); got != 0xB {
		t.Fatalf("field = %#x", got)
	}
	// Values wider than the field are truncated, never spill.
	f.Write(r, 0x1F)
	if got := r.Get(); got != 0xFFFF_00F0 {
		t.Fatalf("register after wide write = %#x", got)
	}
	if got := f.Bits(3); got != 0x30 {
		t.Fatalf("Bits(3) = %#x", got)
	}
}

func TestRegHooks(t *testing.T) {
	r := NewReg(0)
	r.OnWrite = func(_, v uint32) uint32 { return v | 0x100 }
	r.SetBits(0x1)
	if got := r.Peek(); got != 0x101 {
		t.Fatalf("OnWrite ignored: %#x", got)
	}
	r.OnRead = func(v uint32) uint32 { return v &^ 0x100 }
	if r.HasBits(0x100) {
		t.Fatal("OnRead ignored")
	}
}

func TestWaitPolicyBounded(t *testing.T) {
	r := NewReg(0)
	err := WaitPolicy{MaxPolls: 10}.Set("hsi16.ready", r, 1<<10)
	if !errors.Is(err, errcode.HardwareNotReady) {
		t.Fatalf("expected hardware_not_ready, got %v", err)
	}

	polls := 0
	r.OnRead = func(v uint32) uint32 {
		polls++
		if polls == 3 {
			return v | 1<<10
		}
		return v
	}
	if err := (WaitPolicy{MaxPolls: 10}).Set("hsi16.ready", r, 1<<10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitPolicyUnboundedReturnsOnceSet(t *testing.T) {
	r := NewReg(0)
	n := 0
	r.OnRead = func(v uint32) uint32 {
		n++
		if n > 100 {
			return v | 1
		}
		return v
	}
	if err := Unbounded.Set("x", r, 1); err != nil {
		t.Fatal(err)
	}
	if err := Unbounded.Clear("x", NewReg(0), 1); err != nil {
		t.Fatal(err)
	}
}
