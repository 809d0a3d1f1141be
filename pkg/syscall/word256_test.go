package syscall

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestPack256RoundTrip(t *testing.T) {
	cases := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(1),
		uint256.NewInt(3628800),
		new(uint256.Int).Not(uint256.NewInt(0)), // all-ones
	}
	for _, v := range cases {
		r0, r1, r2, r3 := Pack256(v)
		got := Unpack256(r0, r1, r2, r3)
		if !got.Eq(v) {
			t.Fatalf("round trip %s -> %s", v, got)
		}
	}
}
