package riscv

import "testing"

func TestIntRegistersZeroHardwired(t *testing.T) {
	var r IntRegisters
	r.Write(0, 0xdeadbeef)
	if got := r.Read(0); got != 0 {
		t.Fatalf("x0 = %#x, want 0", got)
	}
	r.Write(5, 42)
	if got := r.Read(5); got != 42 {
		t.Fatalf("x5 = %d, want 42", got)
	}
}

func TestFloatRegistersNaNBoxRoundTrip(t *testing.T) {
	var r FloatRegisters
	r.WriteSingle(1, 3.5)
	if got := r.ReadSingle(1); got != 3.5 {
		t.Fatalf("single round-trip = %v, want 3.5", got)
	}
	r.WriteBits(2, 0x1234) // not NaN-boxed
	got := r.ReadSingle(2)
	if got == got { // NaN never equals itself
		t.Fatalf("unboxed read of a non-boxed value should be NaN, got %v", got)
	}
}

func TestFloatRegistersDoubleRoundTrip(t *testing.T) {
	var r FloatRegisters
	r.Write(3, 1.25)
	if got := r.Read(3); got != 1.25 {
		t.Fatalf("double round-trip = %v, want 1.25", got)
	}
}
