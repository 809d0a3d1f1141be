package syscall

import "github.com/hybridvm/hybridvm/pkg/host"

// PackAddress encodes a 20-byte address across three 64-bit registers per
// spec.md §4.2: limb0 = bytes[0:8] big-endian, limb1 = bytes[8:16]
// big-endian, limb2 = bytes[16:20] in its high four bytes with the low four
// bytes zero. This is the "high four bytes = payload, low four bytes =
// zero" reference convention called out in spec.md §9.
func PackAddress(addr host.Address) (limb0, limb1, limb2 uint64) {
	var b [20]byte = addr
	limb0 = beToU64(b[0:8])
	limb1 = beToU64(b[8:16])
	limb2 = uint64(b[16])<<56 | uint64(b[17])<<48 | uint64(b[18])<<40 | uint64(b[19])<<32
	return
}

// UnpackAddress reverses PackAddress. The low 32 bits of limb2 are ignored
// on read, matching the packer's "low four bytes undefined on read, written
// zero" convention.
func UnpackAddress(limb0, limb1, limb2 uint64) host.Address {
	var b [20]byte
	putU64BE(b[0:8], limb0)
	putU64BE(b[8:16], limb1)
	b[16] = byte(limb2 >> 56)
	b[17] = byte(limb2 >> 48)
	b[18] = byte(limb2 >> 40)
	b[19] = byte(limb2 >> 32)
	return host.Address(b)
}

func beToU64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func putU64BE(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}
