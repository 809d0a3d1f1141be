package syscall

import (
	"testing"

	"github.com/hybridvm/hybridvm/pkg/host"
)

func TestPackAddressRoundTrip(t *testing.T) {
	cases := []host.Address{
		{},
		{0xf3, 0x9f, 0xd6, 0xe5, 0x1a, 0xad, 0x88, 0xf6, 0xf4, 0xce, 0x6a, 0xb8, 0x82, 0x72, 0x79, 0xcf, 0xff, 0xb9, 0x22, 0x66},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	}
	for _, addr := range cases {
		l0, l1, l2 := PackAddress(addr)
		got := UnpackAddress(l0, l1, l2)
		if got != addr {
			t.Fatalf("round trip %x -> %x", addr, got)
		}
	}
}

func TestPackAddressHighBytesConvention(t *testing.T) {
	addr := host.Address{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x11, 0x22, 0x33, 0x44}
	_, _, l2 := PackAddress(addr)
	const want = uint64(0x11223344) << 32
	if l2 != want {
		t.Fatalf("limb2 = %#x, want %#x (high 4 bytes = payload, low 4 bytes zero)", l2, want)
	}
}
