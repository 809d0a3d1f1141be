package riscv

import "math"

// executeFMA handles the four fused multiply-add opcodes. Rounding mode
// (funct3, the rm field) is decoded but not applied: double-precision Go
// arithmetic is used throughout, matching the interpreter's "best-effort"
// FP contract.
func (c *CPU) executeFMA(inst, opcode, rd, rs1, rs2 uint64) *Exception {
	rs3 := (inst >> 27) & 0x1f
	funct2 := (inst >> 25) & 0x3

	a := c.FloatRegs.Read(rs1)
	b := c.FloatRegs.Read(rs2)
	d := c.FloatRegs.Read(rs3)

	switch opcode {
	case 0x43: // fmadd
		switch funct2 {
		case 0x0:
			c.FloatRegs.Write(rd, float64(float32(a)*float32(b)+float32(d)))
		case 0x1:
			c.FloatRegs.Write(rd, a*b+d)
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x47: // fmsub
		switch funct2 {
		case 0x0:
			c.FloatRegs.Write(rd, float64(float32(a)*float32(b)-float32(d)))
		case 0x1:
			c.FloatRegs.Write(rd, a*b-d)
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x4b: // fnmadd
		switch funct2 {
		case 0x0:
			c.FloatRegs.Write(rd, float64(-float32(a)*float32(b)+float32(d)))
		case 0x1:
			c.FloatRegs.Write(rd, -a*b+d)
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x4f: // fnmsub
		switch funct2 {
		case 0x0:
			c.FloatRegs.Write(rd, float64(-float32(a)*float32(b)-float32(d)))
		case 0x1:
			c.FloatRegs.Write(rd, -a*b-d)
		default:
			return newException(IllegalInstruction, inst)
		}
	}
	return nil
}

// executeFloat handles opcode 0x53: arithmetic, sign-injection, min/max,
// conversions, compares, classification, and integer/bit moves for F and D.
func (c *CPU) executeFloat(inst, rd, rs1, rs2, funct3, funct7 uint64) *Exception {
	switch c.CSR.ReadBits(CsrFcsr, 5, 8) {
	case 0b000, 0b001, 0b010, 0b011, 0b100, 0b111:
	default:
		return newException(IllegalInstruction, inst)
	}

	a := c.FloatRegs.Read(rs1)
	b := c.FloatRegs.Read(rs2)

	switch funct7 {
	case 0x00: // fadd.s
		c.FloatRegs.Write(rd, float64(float32(a)+float32(b)))
	case 0x01: // fadd.d
		c.FloatRegs.Write(rd, a+b)
	case 0x04: // fsub.s
		c.FloatRegs.Write(rd, float64(float32(a)-float32(b)))
	case 0x05: // fsub.d
		c.FloatRegs.Write(rd, a-b)
	case 0x08: // fmul.s
		c.FloatRegs.Write(rd, float64(float32(a)*float32(b)))
	case 0x09: // fmul.d
		c.FloatRegs.Write(rd, a*b)
	case 0x0c: // fdiv.s
		c.FloatRegs.Write(rd, float64(float32(a)/float32(b)))
	case 0x0d: // fdiv.d
		c.FloatRegs.Write(rd, a/b)
	case 0x10:
		switch funct3 {
		case 0x0: // fsgnj.s
			c.FloatRegs.Write(rd, math.Copysign(a, b))
		case 0x1: // fsgnjn.s
			c.FloatRegs.Write(rd, math.Copysign(a, -b))
		case 0x2: // fsgnjx.s
			sign1 := math.Float32bits(float32(a)) & 0x80000000
			sign2 := math.Float32bits(float32(b)) & 0x80000000
			other := math.Float32bits(float32(a)) & 0x7fffffff
			c.FloatRegs.Write(rd, float64(math.Float32frombits((sign1^sign2)|other)))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x11:
		switch funct3 {
		case 0x0: // fsgnj.d
			c.FloatRegs.Write(rd, math.Copysign(a, b))
		case 0x1: // fsgnjn.d
			c.FloatRegs.Write(rd, math.Copysign(a, -b))
		case 0x2: // fsgnjx.d
			sign1 := math.Float64bits(a) & 0x8000000000000000
			sign2 := math.Float64bits(b) & 0x8000000000000000
			other := math.Float64bits(a) & 0x7fffffffffffffff
			c.FloatRegs.Write(rd, math.Float64frombits((sign1^sign2)|other))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x14: // fmin.s/fmax.s
		switch funct3 {
		case 0x0:
			c.FloatRegs.Write(rd, math.Min(a, b))
		case 0x1:
			c.FloatRegs.Write(rd, math.Max(a, b))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x15: // fmin.d/fmax.d
		switch funct3 {
		case 0x0:
			c.FloatRegs.Write(rd, math.Min(a, b))
		case 0x1:
			c.FloatRegs.Write(rd, math.Max(a, b))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x20: // fcvt.s.d
		c.FloatRegs.Write(rd, a)
	case 0x21: // fcvt.d.s
		c.FloatRegs.Write(rd, float64(float32(a)))
	case 0x2c: // fsqrt.s
		c.FloatRegs.Write(rd, float64(float32(math.Sqrt(float64(float32(a))))))
	case 0x2d: // fsqrt.d
		c.FloatRegs.Write(rd, math.Sqrt(a))
	case 0x50:
		switch funct3 {
		case 0x0: // fle.s/d
			c.IntRegs.Write(rd, boolToReg(a <= b))
		case 0x1: // flt.s/d
			c.IntRegs.Write(rd, boolToReg(a < b))
		case 0x2: // feq.s/d
			c.IntRegs.Write(rd, boolToReg(a == b))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x51:
		switch funct3 {
		case 0x0:
			c.IntRegs.Write(rd, boolToReg(a <= b))
		case 0x1:
			c.IntRegs.Write(rd, boolToReg(a < b))
		case 0x2:
			c.IntRegs.Write(rd, boolToReg(a == b))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x60: // fcvt.w/wu/l/lu.s
		switch rs2 {
		case 0x0:
			c.IntRegs.Write(rd, uint64(int64(int32(math.Round(float64(float32(a)))))))
		case 0x1:
			c.IntRegs.Write(rd, uint64(int64(int32(uint32(math.Round(float64(float32(a))))))))
		case 0x2, 0x3:
			c.IntRegs.Write(rd, uint64(int64(math.Round(float64(float32(a))))))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x61: // fcvt.w/wu/l/lu.d
		switch rs2 {
		case 0x0:
			c.IntRegs.Write(rd, uint64(int64(int32(math.Round(a)))))
		case 0x1:
			c.IntRegs.Write(rd, uint64(int64(int32(uint32(math.Round(a))))))
		case 0x2, 0x3:
			c.IntRegs.Write(rd, uint64(int64(math.Round(a))))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x68: // fcvt.s.w/wu/l/lu
		switch rs2 {
		case 0x0:
			c.FloatRegs.Write(rd, float64(float32(int32(c.IntRegs.Read(rs1)))))
		case 0x1:
			c.FloatRegs.Write(rd, float64(float32(uint32(c.IntRegs.Read(rs1)))))
		case 0x2:
			c.FloatRegs.Write(rd, float64(float32(int64(c.IntRegs.Read(rs1)))))
		case 0x3:
			c.FloatRegs.Write(rd, float64(float32(c.IntRegs.Read(rs1))))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x69: // fcvt.d.w/wu/l/lu
		switch rs2 {
		case 0x0:
			c.FloatRegs.Write(rd, float64(int32(c.IntRegs.Read(rs1))))
		case 0x1:
			c.FloatRegs.Write(rd, float64(uint32(c.IntRegs.Read(rs1))))
		case 0x2:
			c.FloatRegs.Write(rd, float64(int64(c.IntRegs.Read(rs1))))
		case 0x3:
			c.FloatRegs.Write(rd, float64(c.IntRegs.Read(rs1)))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x70:
		switch funct3 {
		case 0x0: // fmv.x.w
			c.IntRegs.Write(rd, signExtend(uint64(math.Float32bits(float32(a))), 32))
		case 0x1: // fclass.s
			c.IntRegs.Write(rd, classifyFloat(float64(float32(a))))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x71:
		switch funct3 {
		case 0x0: // fmv.x.d
			c.IntRegs.Write(rd, math.Float64bits(a))
		case 0x1: // fclass.d
			c.IntRegs.Write(rd, classifyFloat(a))
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x78: // fmv.w.x
		c.FloatRegs.Write(rd, math.Float64frombits(c.IntRegs.Read(rs1)&0xffffffff))
	case 0x79: // fmv.d.x
		c.FloatRegs.Write(rd, math.Float64frombits(c.IntRegs.Read(rs1)))
	default:
		return newException(IllegalInstruction, inst)
	}
	return nil
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// classifyFloat reproduces fclass.s/fclass.d's 10-bit one-hot category,
// collapsing signaling NaN into the quiet-NaN bit since this core never
// distinguishes the two.
func classifyFloat(f float64) uint64 {
	neg := math.Signbit(f)
	switch {
	case math.IsInf(f, 0):
		if neg {
			return 1 << 0
		}
		return 1 << 7
	case math.IsNaN(f):
		return 1 << 9
	case f == 0:
		if neg {
			return 1 << 3
		}
		return 1 << 4
	default:
		abs := math.Abs(f)
		subnormal := abs < 2.2250738585072014e-308 // smallest normal double
		if neg {
			if subnormal {
				return 1 << 2
			}
			return 1 << 1
		}
		if subnormal {
			return 1 << 5
		}
		return 1 << 6
	}
}
