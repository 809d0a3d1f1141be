package riscv

// CSR addresses used by this core. Addresses not listed here are still
// addressable (the file has 4096 slots); only these are given special
// projection/masking behavior.
const (
	CsrSstatus = 0x100
	CsrSie     = 0x104
	CsrStvec   = 0x105
	CsrScounteren = 0x106
	CsrSscratch = 0x140
	CsrSepc    = 0x141
	CsrScause  = 0x142
	CsrStval   = 0x143
	CsrSip     = 0x144
	CsrSatp    = 0x180

	CsrMstatus = 0x300
	CsrMisa    = 0x301
	CsrMedeleg = 0x302
	CsrMideleg = 0x303
	CsrMie     = 0x304
	CsrMtvec   = 0x305
	CsrMcounteren = 0x306
	CsrMscratch = 0x340
	CsrMepc    = 0x341
	CsrMcause  = 0x342
	CsrMtval   = 0x343
	CsrMip     = 0x344

	CsrCycle = 0xC00
	CsrTime  = 0xC01

	CsrFflags = 0x001
	CsrFrm    = 0x002
	CsrFcsr   = 0x003
)

// mstatus bit positions (RV64 privileged ISA).
const (
	mstatusSIE  = uint64(1) << 1
	mstatusMIE  = uint64(1) << 3
	mstatusSPIE = uint64(1) << 5
	mstatusUBE  = uint64(1) << 6
	mstatusMPIE = uint64(1) << 7
	mstatusSPP  = uint64(1) << 8
	mstatusMPP  = uint64(0b11) << 11
	mstatusFS   = uint64(0b11) << 13
	mstatusXS   = uint64(0b11) << 15
	mstatusMPRV = uint64(1) << 17
	mstatusSUM  = uint64(1) << 18
	mstatusMXR  = uint64(1) << 19
	mstatusUXL  = uint64(0b11) << 32
	mstatusSD   = uint64(1) << 63
)

// sstatusMask is the set of mstatus bits visible through the sstatus
// projection (a subset of the full machine-level register, per the
// privileged ISA's "sstatus is a restricted view of mstatus").
const sstatusMask = mstatusSIE | mstatusSPIE | mstatusUBE | mstatusSPP |
	mstatusFS | mstatusXS | mstatusSUM | mstatusMXR | mstatusUXL | mstatusSD

// mip/mie bit positions.
const (
	ssipBit = uint64(1) << 1
	msipBit = uint64(1) << 3
	stipBit = uint64(1) << 5
	mtipBit = uint64(1) << 7
	seipBit = uint64(1) << 9
	meipBit = uint64(1) << 11
)

// sieSipMask is the set of mie/mip bits visible through sie/sip.
const sieSipMask = ssipBit | stipBit | seipBit

// CSRFile is the 4096-slot control-and-status register file.
type CSRFile struct {
	regs [4096]uint64
}

// NewCSRFile creates a reset CSR file with misa advertising RV64IMAFDC.
func NewCSRFile() *CSRFile {
	f := &CSRFile{}
	f.Reset()
	return f
}

// Reset restores CSR state to its value at machine reset.
func (f *CSRFile) Reset() {
	for i := range f.regs {
		f.regs[i] = 0
	}
	// misa: MXL=2 (64-bit) in bits [63:62], extension bits for I M A F D C.
	const mxl64 = uint64(2) << 62
	extIMAFDC := extBit('I') | extBit('M') | extBit('A') | extBit('F') | extBit('D') | extBit('C')
	f.regs[CsrMisa] = mxl64 | extIMAFDC
}

func extBit(letter byte) uint64 {
	return uint64(1) << (letter - 'A')
}

// Read returns the raw value at CSR address addr (no projection applied).
func (f *CSRFile) Read(addr uint16) uint64 {
	return f.regs[addr]
}

// Write stores value at CSR address addr (no projection applied).
func (f *CSRFile) Write(addr uint16, value uint64) {
	f.regs[addr] = value
}

// ReadBits reads bits [lo, hi) of the register at addr.
func (f *CSRFile) ReadBits(addr uint16, lo, hi uint) uint64 {
	v := f.regs[addr]
	if hi >= 64 {
		return v >> lo
	}
	mask := (uint64(1) << (hi - lo)) - 1
	return (v >> lo) & mask
}

// ReadSstatus projects mstatus through the sstatus mask.
func (f *CSRFile) ReadSstatus() uint64 {
	return f.regs[CsrMstatus] & sstatusMask
}

// WriteSstatus replaces only the masked bits of mstatus.
func (f *CSRFile) WriteSstatus(value uint64) {
	f.regs[CsrMstatus] = (f.regs[CsrMstatus] &^ sstatusMask) | (value & sstatusMask)
}

// ReadSie projects mie through the sie/sip subset mask.
func (f *CSRFile) ReadSie() uint64 {
	return f.regs[CsrMie] & sieSipMask
}

// WriteSie replaces only the masked bits of mie.
func (f *CSRFile) WriteSie(value uint64) {
	f.regs[CsrMie] = (f.regs[CsrMie] &^ sieSipMask) | (value & sieSipMask)
}

// ReadSip projects mip through the sie/sip subset mask.
func (f *CSRFile) ReadSip() uint64 {
	return f.regs[CsrMip] & sieSipMask
}

// WriteSip replaces only the masked bits of mip.
func (f *CSRFile) WriteSip(value uint64) {
	f.regs[CsrMip] = (f.regs[CsrMip] &^ sieSipMask) | (value & sieSipMask)
}

// ReadProjected reads a CSR address, applying the sstatus/sie/sip
// projection when the address is one of those three.
func (f *CSRFile) ReadProjected(addr uint16) uint64 {
	switch addr {
	case CsrSstatus:
		return f.ReadSstatus()
	case CsrSie:
		return f.ReadSie()
	case CsrSip:
		return f.ReadSip()
	default:
		return f.regs[addr]
	}
}

// WriteProjected writes a CSR address, applying the sstatus/sie/sip
// projection when the address is one of those three.
func (f *CSRFile) WriteProjected(addr uint16, value uint64) {
	switch addr {
	case CsrSstatus:
		f.WriteSstatus(value)
	case CsrSie:
		f.WriteSie(value)
	case CsrSip:
		f.WriteSip(value)
	default:
		f.regs[addr] = value
	}
}

// IncrementTime bumps the cycle/time counters by one.
func (f *CSRFile) IncrementTime() {
	f.regs[CsrCycle]++
	f.regs[CsrTime]++
}
