package riscv

// executeSystem handles the SYSTEM opcode (0x73): ECALL/EBREAK/xRET/WFI/
// SFENCE.VMA and the CSR read-modify-write instructions.
func (c *CPU) executeSystem(inst, rd, rs1, funct3, funct7, rs2 uint64) *Exception {
	csrAddr := uint16((inst >> 20) & 0xfff)

	switch funct3 {
	case 0x0:
		switch {
		case rs2 == 0x0 && funct7 == 0x0: // ecall
			switch c.Mode {
			case ModeUser:
				return newException(EnvironmentCallFromUMode, 0)
			case ModeSupervisor:
				return newException(EnvironmentCallFromSMode, 0)
			case ModeMachine:
				return newException(EnvironmentCallFromMMode, 0)
			default:
				return newException(IllegalInstruction, inst)
			}
		case rs2 == 0x1 && funct7 == 0x0: // ebreak
			return newException(Breakpoint, 0)
		case rs2 == 0x2 && funct7 == 0x8: // sret
			c.xret(false)
			return nil
		case rs2 == 0x2 && funct7 == 0x18: // mret
			c.xret(true)
			return nil
		case rs2 == 0x5 && funct7 == 0x8: // wfi
			c.Idle = true
			return nil
		case funct7 == 0x9, funct7 == 0x11, funct7 == 0x51: // sfence.vma, hfence.bvma/gvma
			return nil
		default:
			return newException(IllegalInstruction, inst)
		}
	case 0x1: // csrrw
		t := c.CSR.ReadProjected(csrAddr)
		c.CSR.WriteProjected(csrAddr, c.IntRegs.Read(rs1))
		c.IntRegs.Write(rd, t)
		c.maybeUpdatePaging(csrAddr)
	case 0x2: // csrrs
		t := c.CSR.ReadProjected(csrAddr)
		c.CSR.WriteProjected(csrAddr, t|c.IntRegs.Read(rs1))
		c.IntRegs.Write(rd, t)
		c.maybeUpdatePaging(csrAddr)
	case 0x3: // csrrc
		t := c.CSR.ReadProjected(csrAddr)
		c.CSR.WriteProjected(csrAddr, t&^c.IntRegs.Read(rs1))
		c.IntRegs.Write(rd, t)
		c.maybeUpdatePaging(csrAddr)
	case 0x5: // csrrwi
		zimm := rs1
		c.IntRegs.Write(rd, c.CSR.ReadProjected(csrAddr))
		c.CSR.WriteProjected(csrAddr, zimm)
		c.maybeUpdatePaging(csrAddr)
	case 0x6: // csrrsi
		zimm := rs1
		t := c.CSR.ReadProjected(csrAddr)
		c.CSR.WriteProjected(csrAddr, t|zimm)
		c.IntRegs.Write(rd, t)
		c.maybeUpdatePaging(csrAddr)
	case 0x7: // csrrci
		zimm := rs1
		t := c.CSR.ReadProjected(csrAddr)
		c.CSR.WriteProjected(csrAddr, t&^zimm)
		c.IntRegs.Write(rd, t)
		c.maybeUpdatePaging(csrAddr)
	default:
		return newException(IllegalInstruction, inst)
	}
	return nil
}

func (c *CPU) maybeUpdatePaging(csrAddr uint16) {
	if csrAddr == CsrSatp {
		c.updatePaging()
	}
}
