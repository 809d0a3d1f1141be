package riscv

import "testing"

func TestBusReadWriteRoundTrip(t *testing.T) {
	b := NewBus(PageSize)
	sizes := []int{Byte, Halfword, Word, Doubleword}
	for _, size := range sizes {
		if exc := b.Write(DRAMBase+8, 0x0102030405060708, size); exc != nil {
			t.Fatalf("write size %d: %v", size, exc)
		}
		v, exc := b.Read(DRAMBase+8, size)
		if exc != nil {
			t.Fatalf("read size %d: %v", size, exc)
		}
		mask := uint64(1)<<size - 1
		if mask == 0 {
			mask = ^uint64(0)
		}
		if v != 0x0102030405060708&mask {
			t.Fatalf("round trip size %d = %#x, want %#x", size, v, 0x0102030405060708&mask)
		}
	}
}

func TestBusOutOfRangeFaults(t *testing.T) {
	b := NewBus(PageSize)
	if _, exc := b.Read(DRAMBase+PageSize, Byte); exc == nil {
		t.Fatal("expected fault reading past end of RAM")
	}
	if exc := b.Write(DRAMBase-8, 1, Byte); exc == nil {
		t.Fatal("expected fault writing below DRAM base")
	}
}

func TestBusSliceViewIsShared(t *testing.T) {
	b := NewBus(PageSize)
	s, ok := b.Slice(DRAMBase, 4)
	if !ok {
		t.Fatal("slice should succeed within range")
	}
	s[0] = 0xAA
	v, exc := b.Read(DRAMBase, Byte)
	if exc != nil {
		t.Fatalf("read: %v", exc)
	}
	if v != 0xAA {
		t.Fatalf("slice did not alias underlying RAM: got %#x", v)
	}
}
