package syscall

import "github.com/holiman/uint256"

// Pack256 encodes a 256-bit word across four 64-bit registers, most
// significant first: reg0 = bytes[0:8], reg1 = bytes[8:16], reg2 =
// bytes[16:24], reg3 = bytes[24:32], each chunk big-endian -- the same
// "sequence of big-endian chunks across registers" convention as
// PackAddress, extended to four limbs instead of three.
func Pack256(v *uint256.Int) (reg0, reg1, reg2, reg3 uint64) {
	b := v.Bytes32()
	reg0 = beToU64(b[0:8])
	reg1 = beToU64(b[8:16])
	reg2 = beToU64(b[16:24])
	reg3 = beToU64(b[24:32])
	return
}

// Unpack256 reverses Pack256.
func Unpack256(reg0, reg1, reg2, reg3 uint64) *uint256.Int {
	var b [32]byte
	putU64BE(b[0:8], reg0)
	putU64BE(b[8:16], reg1)
	putU64BE(b[16:24], reg2)
	putU64BE(b[24:32], reg3)
	return new(uint256.Int).SetBytes32(b[:])
}

// bytes32FromRegs assembles a 32-byte big-endian storage slot key or
// value from four registers, used directly for SLoad/SStore which traffic in raw [32]byte
// rather than uint256.Int.
func bytes32FromRegs(reg0, reg1, reg2, reg3 uint64) [32]byte {
	var b [32]byte
	putU64BE(b[0:8], reg0)
	putU64BE(b[8:16], reg1)
	putU64BE(b[16:24], reg2)
	putU64BE(b[24:32], reg3)
	return b
}

func regsFromBytes32(b [32]byte) (reg0, reg1, reg2, reg3 uint64) {
	reg0 = beToU64(b[0:8])
	reg1 = beToU64(b[8:16])
	reg2 = beToU64(b[16:24])
	reg3 = beToU64(b[24:32])
	return
}
