package riscv

// classifyGeneral maps a 32-bit instruction word to the mnemonic key used
// by InstCounter, for every class the gas schedule prices differently
// (load/store, branch/jump, multiply, divide/remainder). Instructions
// outside those classes are counted under a single "other" bucket, since
// the pricing table charges them identically regardless of exact mnemonic.
func classifyGeneral(inst uint64) string {
	opcode := inst & 0x7f
	funct3 := (inst >> 12) & 0x7
	funct7 := (inst >> 25) & 0x7f

	switch opcode {
	case 0x03: // loads
		switch funct3 {
		case 0x0:
			return "lb"
		case 0x1:
			return "lh"
		case 0x2:
			return "lw"
		case 0x3:
			return "ld"
		case 0x4:
			return "lbu"
		case 0x5:
			return "lhu"
		case 0x6:
			return "lwu"
		}
	case 0x23: // stores
		switch funct3 {
		case 0x0:
			return "sb"
		case 0x1:
			return "sh"
		case 0x2:
			return "sw"
		case 0x3:
			return "sd"
		}
	case 0x63: // branches
		switch funct3 {
		case 0x0:
			return "beq"
		case 0x1:
			return "bne"
		case 0x4:
			return "blt"
		case 0x5:
			return "bge"
		case 0x6:
			return "bltu"
		case 0x7:
			return "bgeu"
		}
	case 0x6f:
		return "jal"
	case 0x67:
		return "jalr"
	case 0x33: // R-type, 64-bit width
		if funct7 == 0x01 {
			return mulDivMnemonic(funct3, false)
		}
	case 0x3b: // R-type, *W 32-bit width
		if funct7 == 0x01 {
			return mulDivMnemonic(funct3, true)
		}
	}
	return "other"
}

func mulDivMnemonic(funct3 uint64, word bool) string {
	var base string
	switch funct3 {
	case 0x0:
		base = "mul"
	case 0x1:
		base = "mulh"
	case 0x2:
		base = "mulhsu"
	case 0x3:
		base = "mulhu"
	case 0x4:
		base = "div"
	case 0x5:
		base = "divu"
	case 0x6:
		base = "rem"
	default:
		base = "remu"
	}
	if word {
		return base + "w"
	}
	return base
}

// classifyCompressed maps a 16-bit compressed instruction to an expanded
// mnemonic key for the classes the gas schedule prices: C.J/C.JR/
// C.JALR/C.BEQZ/C.BNEZ count as branch/jump; the C.L*/C.S* load/store
// forms count as load/store.
func classifyCompressed(inst uint64) string {
	op := inst & 0x3
	funct3 := (inst >> 13) & 0x7

	switch op {
	case 0b00:
		switch funct3 {
		case 0x2, 0x3, 0x6, 0x7: // C.LW/C.LD/C.SW/C.SD
			if funct3 <= 0x3 {
				return "lw"
			}
			return "sw"
		}
	case 0b01:
		switch funct3 {
		case 0x5: // C.J (funct3 0x1 is C.ADDIW on RV64, counted as other)
			return "jal"
		case 0x6, 0x7: // C.BEQZ/C.BNEZ
			if funct3 == 0x6 {
				return "beq"
			}
			return "bne"
		}
	case 0b10:
		switch funct3 {
		case 0x2, 0x3, 0x6, 0x7: // C.LWSP/C.LDSP/C.SWSP/C.SDSP
			if funct3 <= 0x3 {
				return "lw"
			}
			return "sw"
		case 0x4: // C.JR/C.JALR/C.MV/C.ADD, disambiguated by rd/rs2 in the
			// executor; countable here only as branch/jump when rs2 == 0
			// (C.JR/C.JALR form), matching the executor's own dispatch.
			rs2 := (inst >> 2) & 0x1f
			if rs2 == 0 {
				return "jalr"
			}
		}
	}
	return "other"
}
