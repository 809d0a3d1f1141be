package riscv

// executeAtomic handles the RV64A opcode (0x2f): LR/SC and the AMO family,
// in both 32- and 64-bit widths. aq/rl are decoded but not enforced, since
// this machine never runs more than one hart.
func (c *CPU) executeAtomic(inst, rd, rs1, rs2, funct3, funct7 uint64) *Exception {
	funct5 := (funct7 & 0b1111100) >> 2
	addr := c.IntRegs.Read(rs1)

	word := funct3 == 0x2
	size := Doubleword
	if word {
		size = Word
	}

	switch funct5 {
	case 0x02: // lr.w / lr.d
		v, exc := c.read(addr, size)
		if exc != nil {
			return exc
		}
		if word {
			c.IntRegs.Write(rd, signExtend(v, 32))
		} else {
			c.IntRegs.Write(rd, v)
		}
		c.insertReservation(addr)
		return nil

	case 0x03: // sc.w / sc.d
		if c.hasReservation(addr) {
			c.clearReservation(addr)
			if exc := c.write(addr, c.IntRegs.Read(rs2), size); exc != nil {
				return exc
			}
			c.IntRegs.Write(rd, 0)
		} else {
			c.clearReservation(addr)
			c.IntRegs.Write(rd, 1)
		}
		return nil
	}

	old, exc := c.read(addr, size)
	if exc != nil {
		return exc
	}
	operand := c.IntRegs.Read(rs2)

	var result uint64
	switch funct5 {
	case 0x00: // amoadd
		result = old + operand
	case 0x01: // amoswap
		result = operand
	case 0x04: // amoxor
		result = old ^ operand
	case 0x08: // amoor
		result = old | operand
	case 0x0c: // amoand
		result = old & operand
	case 0x10: // amomin
		result = amoMinMax(old, operand, word, true, false)
	case 0x14: // amomax
		result = amoMinMax(old, operand, word, false, false)
	case 0x18: // amominu
		result = amoMinMax(old, operand, word, true, true)
	case 0x1c: // amomaxu
		result = amoMinMax(old, operand, word, false, true)
	default:
		return newException(IllegalInstruction, inst)
	}

	if exc := c.write(addr, result, size); exc != nil {
		return exc
	}
	if word {
		c.IntRegs.Write(rd, signExtend(old, 32))
	} else {
		c.IntRegs.Write(rd, old)
	}
	return nil
}

func amoMinMax(old, operand uint64, word, wantMin, unsigned bool) uint64 {
	if unsigned {
		if word {
			old, operand = uint64(uint32(old)), uint64(uint32(operand))
		}
		if (old < operand) == wantMin {
			return old
		}
		return operand
	}
	a, b := int64(old), int64(operand)
	if word {
		a, b = int64(int32(old)), int64(int32(operand))
	}
	if (a < b) == wantMin {
		return old
	}
	return operand
}
