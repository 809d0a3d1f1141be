package riscv

import hlog "github.com/hybridvm/hybridvm/pkg/log"

var logger = hlog.Default().Module("riscv")

// CPU is one RV64IMAC machine, singly owned and mutated only via Step. It is
// constructed fresh per contract entry and never reused across calls;
// storage persists via the journaled host, not through this struct.
type CPU struct {
	IntRegs   IntRegisters
	FloatRegs FloatRegisters
	PC        uint64
	CSR       *CSRFile
	Mode      Mode
	Bus       *Bus

	enablePaging bool
	pageTable    uint64

	reservationSet []uint64

	Idle bool

	InstCounter map[string]uint64
	IsCount     bool
}

// NewCPU creates a fresh machine in Machine mode, PC = 0, all integer and
// float registers zero. RAM is left zeroed except for the bootloader
// convention: a1 is pre-loaded with PointerToDTB and sp with the top of
// DRAM. dramSize bytes of flat RAM are allocated starting at DRAMBase.
func NewCPU(dramSize uint64) *CPU {
	c := &CPU{
		CSR:         NewCSRFile(),
		Mode:        ModeMachine,
		Bus:         NewBus(dramSize),
		InstCounter: make(map[string]uint64),
	}
	c.IntRegs.Write(11, PointerToDTB) // a1
	c.IntRegs.Write(2, DRAMBase+dramSize) // sp
	return c
}

// InitializeDRAM copies bytes into the start of RAM (offset 0). Used for
// tests and for the calldata-at-offset-0 convention alongside LoadELF.
func (c *CPU) InitializeDRAM(data []byte) error {
	slice, ok := c.Bus.Slice(DRAMBase, uint64(len(data)))
	if !ok {
		return newException(StoreAMOAccessFault, DRAMBase)
	}
	copy(slice, data)
	return nil
}

// InitializePC sets the program counter directly, for tests that build
// programs without going through ELF loading.
func (c *CPU) InitializePC(pc uint64) {
	c.PC = pc
}

// translate walks the Sv39 page table, active only when privilege is not
// Machine and satp.MODE = 8. Outside that condition it is the identity.
func (c *CPU) translate(addr uint64, at AccessType) (uint64, *Exception) {
	if !c.enablePaging || c.Mode == ModeMachine {
		return addr, nil
	}

	const levels = 3
	vpn := [3]uint64{
		(addr >> 12) & 0x1ff,
		(addr >> 21) & 0x1ff,
		(addr >> 30) & 0x1ff,
	}

	a := c.pageTable
	i := levels - 1
	var pte uint64
	var pteAddr uint64
	for {
		pteAddr = a + vpn[i]*8
		v, exc := c.Bus.Read(pteAddr, Doubleword)
		if exc != nil {
			return 0, pageFaultFor(at, addr)
		}
		pte = v

		valid := pte&1 != 0
		r := (pte >> 1) & 1
		w := (pte >> 2) & 1
		x := (pte >> 3) & 1
		if !valid || (r == 0 && w == 1) {
			return 0, pageFaultFor(at, addr)
		}
		if r == 1 || x == 1 {
			break
		}
		i--
		ppn := (pte >> 10) & 0x0FFF_FFFF_FFFF
		a = ppn * PageSize
		if i < 0 {
			return 0, pageFaultFor(at, addr)
		}
	}

	ppn := [3]uint64{
		(pte >> 10) & 0x1ff,
		(pte >> 19) & 0x1ff,
		(pte >> 28) & 0x03ff_ffff,
	}
	if i > 0 {
		for j := i - 1; j >= 0; j-- {
			if ppn[j] != 0 {
				return 0, pageFaultFor(at, addr)
			}
		}
	}

	aBit := (pte >> 6) & 1
	dBit := (pte >> 7) & 1
	if aBit == 0 || (at == AccessStore && dBit == 0) {
		pte |= 1 << 6
		if at == AccessStore {
			pte |= 1 << 7
		}
		if exc := c.Bus.Write(pteAddr, pte, Doubleword); exc != nil {
			return 0, pageFaultFor(at, addr)
		}
	}

	offset := addr & 0xfff
	switch i {
	case 0:
		leafPPN := (pte >> 10) & 0x0FFF_FFFF_FFFF
		return (leafPPN << 12) | offset, nil
	case 1:
		return (ppn[2] << 30) | (ppn[1] << 21) | (vpn[0] << 12) | offset, nil
	case 2:
		return (ppn[2] << 30) | (vpn[1] << 21) | (vpn[0] << 12) | offset, nil
	default:
		return 0, pageFaultFor(at, addr)
	}
}

func (c *CPU) withMPRVMode(fn func()) {
	prev := c.Mode
	if c.CSR.Read(CsrMstatus)&mstatusMPRV != 0 {
		switch (c.CSR.Read(CsrMstatus) & mstatusMPP) >> 11 {
		case 0b00:
			c.Mode = ModeUser
		case 0b01:
			c.Mode = ModeSupervisor
		case 0b11:
			c.Mode = ModeMachine
		default:
			c.Mode = ModeDebug
		}
	}
	fn()
	c.Mode = prev
}

// read loads a size-bit value through the translation layer.
func (c *CPU) read(vaddr uint64, size int) (uint64, *Exception) {
	var result uint64
	var exc *Exception
	c.withMPRVMode(func() {
		pa, e := c.translate(vaddr, AccessLoad)
		if e != nil {
			exc = e
			return
		}
		result, exc = c.Bus.Read(pa, size)
	})
	return result, exc
}

// write stores a size-bit value through the translation layer, clearing
// any reservation held on vaddr.
func (c *CPU) write(vaddr uint64, value uint64, size int) *Exception {
	c.clearReservation(vaddr)
	var exc *Exception
	c.withMPRVMode(func() {
		pa, e := c.translate(vaddr, AccessStore)
		if e != nil {
			exc = e
			return
		}
		exc = c.Bus.Write(pa, value, size)
	})
	return exc
}

// fetch reads the next instruction half/fullword at the current PC.
func (c *CPU) fetch(size int) (uint64, *Exception) {
	if size != Halfword && size != Word {
		return 0, newException(InstructionAccessFault, c.PC)
	}
	pa, exc := c.translate(c.PC, AccessInstruction)
	if exc != nil {
		return 0, exc
	}
	v, e := c.Bus.Read(pa, size)
	if e != nil {
		return 0, newException(InstructionAccessFault, c.PC)
	}
	return v, nil
}

// insertReservation records addr as LR-monitored.
func (c *CPU) insertReservation(addr uint64) {
	c.reservationSet = append(c.reservationSet, addr)
}

// clearReservation removes addr from the reservation set, per "any store to
// an address removes it from the set".
func (c *CPU) clearReservation(addr uint64) {
	kept := c.reservationSet[:0]
	for _, a := range c.reservationSet {
		if a != addr {
			kept = append(kept, a)
		}
	}
	c.reservationSet = kept
}

// hasReservation reports whether addr is currently monitored.
func (c *CPU) hasReservation(addr uint64) bool {
	for _, a := range c.reservationSet {
		if a == addr {
			return true
		}
	}
	return false
}

// updatePaging recomputes the derived paging fields from satp. Called
// whenever satp is written, before the next memory access can observe it.
func (c *CPU) updatePaging() {
	satp := c.CSR.Read(CsrSatp)
	ppn := satp & ((uint64(1) << 44) - 1)
	mode := satp >> 60
	c.pageTable = ppn * PageSize
	c.enablePaging = mode == 8
}

// countInst increments the per-mnemonic instruction counter, when enabled.
func (c *CPU) countInst(mnemonic string) {
	if c.IsCount {
		c.InstCounter[mnemonic]++
	}
}

// Step advances exactly one instruction (2 or 4 bytes). The PC advance
// happens after the instruction body executes; branch/jump instructions
// write an absolute target minus that advance so the increment below
// collapses control flow into the normal step.
func (c *CPU) Step() (uint64, error) {
	if c.Idle {
		return 0, nil
	}

	if irq := c.checkPendingInterrupt(); irq != nil {
		c.takeInterrupt(*irq)
	}

	inst16, exc := c.fetch(Halfword)
	if exc != nil {
		return 0, exc
	}

	var inst uint64
	switch inst16 & 0b11 {
	case 0b00, 0b01, 0b10:
		if inst16 == 0 {
			e := newException(IllegalInstruction, inst16)
			return 0, c.trap(e)
		}
		inst = inst16
		if execErr := c.executeCompressed(inst); execErr != nil {
			return 0, c.takeException(execErr, 2)
		}
		c.countInst(classifyCompressed(inst))
		c.PC += 2
	default:
		inst32, exc := c.fetch(Word)
		if exc != nil {
			return 0, c.trap(exc)
		}
		inst = inst32
		if execErr := c.executeGeneral(inst); execErr != nil {
			return 0, c.takeException(execErr, 4)
		}
		c.countInst(classifyGeneral(inst))
		c.PC += 4
	}
	return inst, nil
}

// takeException reports a synchronous exception raised by an executed
// instruction. An ecall is not routed through the privileged trap vector:
// C3 handles it as a hypercall, so PC is advanced past the ecall (width
// bytes) exactly as on the success path, and the exception is returned
// directly so the bridge can resume Step/RunUntilTrap at the following
// instruction once it has serviced the syscall. Every other exception goes
// through the full trap-entry sequence, which leaves PC at the handler
// (mtvec/stvec), not past the faulting instruction.
func (c *CPU) takeException(exc *Exception, width uint64) error {
	if exc.Kind.IsEnvironmentCall() {
		c.PC += width
		return exc
	}
	return c.trap(exc)
}

// RunUntilTrap loops invoking Step until a synchronous exception surfaces
// (including an ecall, which C3 treats specially), returning that
// exception. It never returns a nil error on a normal return: the caller
// (C2's dispatch loop, which hands ecalls to C3's bridge) is expected to
// call RunUntilTrap again after a non-terminal ecall has been serviced.
func (c *CPU) RunUntilTrap() error {
	for {
		_, err := c.Step()
		if err != nil {
			return err
		}
	}
}

// trap converts a synchronous, non-ecall Exception into a taken trap: it
// updates mepc/mcause/mstatus/mode and jumps to the handler. Ecalls never
// reach this function; see takeException.
func (c *CPU) trap(exc *Exception) error {
	logger.Debug("trap", "kind", exc.Kind.String(), "pc", c.PC, "mode", c.Mode.String())
	cause := exc.Kind.trapCause()
	c.enterTrap(cause, exc.Value, false)
	return exc
}

// enterTrap performs the privileged-ISA trap-entry sequence: save PC,
// record cause/tval, update MPP/SPP and MPIE/SPIE, clear MIE/SIE, switch
// mode, and jump to the vector base, honoring medeleg/mideleg delegation.
func (c *CPU) enterTrap(cause uint64, tval uint64, isInterrupt bool) {
	delegated := false
	if c.Mode != ModeMachine {
		delegReg := CsrMedeleg
		if isInterrupt {
			delegReg = CsrMideleg
		}
		bit := cause &^ (uint64(1) << 63)
		if c.CSR.Read(uint16(delegReg))&(uint64(1)<<bit) != 0 {
			delegated = true
		}
	}

	prevMode := c.Mode
	mstatus := c.CSR.Read(CsrMstatus)

	if delegated {
		c.CSR.Write(CsrSepc, c.PC)
		c.CSR.Write(CsrScause, cause)
		c.CSR.Write(CsrStval, tval)

		spp := uint64(0)
		if prevMode == ModeSupervisor {
			spp = 1
		}
		mstatus = (mstatus &^ mstatusSPP) | (spp << 8)
		spie := (mstatus >> 1) & 1
		mstatus = (mstatus &^ mstatusSPIE) | (spie << 5)
		mstatus &^= mstatusSIE
		c.CSR.Write(CsrMstatus, mstatus)
		c.Mode = ModeSupervisor
		c.PC = c.CSR.Read(CsrStvec) &^ 0b11
	} else {
		c.CSR.Write(CsrMepc, c.PC)
		c.CSR.Write(CsrMcause, cause)
		c.CSR.Write(CsrMtval, tval)

		mpp := uint64(prevMode)
		mstatus = (mstatus &^ mstatusMPP) | (mpp << 11)
		mpie := (mstatus >> 3) & 1
		mstatus = (mstatus &^ mstatusMPIE) | (mpie << 7)
		mstatus &^= mstatusMIE
		c.CSR.Write(CsrMstatus, mstatus)
		c.Mode = ModeMachine
		c.PC = c.CSR.Read(CsrMtvec) &^ 0b11
	}
}

// xret reverses the trap-entry sequence for MRET ("m") or SRET ("s").
func (c *CPU) xret(machine bool) {
	mstatus := c.CSR.Read(CsrMstatus)
	if machine {
		mpie := (mstatus >> 7) & 1
		mpp := (mstatus >> 11) & 0b11
		mstatus = (mstatus &^ mstatusMIE) | (mpie << 3)
		mstatus |= mstatusMPIE
		mstatus &^= mstatusMPP
		if mpp != 0b11 {
			mstatus &^= mstatusMPRV
		}
		c.CSR.Write(CsrMstatus, mstatus)
		c.PC = c.CSR.Read(CsrMepc) - 4
		switch mpp {
		case 0b00:
			c.Mode = ModeUser
		case 0b01:
			c.Mode = ModeSupervisor
		default:
			c.Mode = ModeMachine
		}
	} else {
		spie := (mstatus >> 5) & 1
		spp := (mstatus >> 8) & 1
		mstatus = (mstatus &^ mstatusSIE) | (spie << 1)
		mstatus |= mstatusSPIE
		mstatus &^= mstatusSPP
		if spp != 1 {
			mstatus &^= mstatusMPRV
		}
		c.CSR.Write(CsrMstatus, mstatus)
		c.PC = c.CSR.Read(CsrSepc) - 4
		if spp == 1 {
			c.Mode = ModeSupervisor
		} else {
			c.Mode = ModeUser
		}
	}
}

// checkPendingInterrupt returns the highest-priority pending, enabled
// interrupt, or nil. No device ever raises an IRQ (no DTB/UART/VirtIO
// emulation); whichever mip bits are set externally or by CSR writes are
// taken in priority order when also enabled in mie.
func (c *CPU) checkPendingInterrupt() *Interrupt {
	switch c.Mode {
	case ModeMachine:
		if c.CSR.Read(CsrMstatus)&mstatusMIE == 0 {
			return nil
		}
	case ModeSupervisor:
		if c.CSR.ReadSstatus()&mstatusSIE == 0 {
			return nil
		}
	}

	pending := c.CSR.Read(CsrMie) & c.CSR.Read(CsrMip)
	var irq Interrupt
	switch {
	case pending&meipBit != 0:
		irq = MachineExternalInterrupt
	case pending&msipBit != 0:
		irq = MachineSoftwareInterrupt
	case pending&mtipBit != 0:
		irq = MachineTimerInterrupt
	case pending&seipBit != 0:
		irq = SupervisorExternalInterrupt
	case pending&ssipBit != 0:
		irq = SupervisorSoftwareInterrupt
	case pending&stipBit != 0:
		irq = SupervisorTimerInterrupt
	default:
		return nil
	}
	return &irq
}

func (c *CPU) takeInterrupt(irq Interrupt) {
	c.Idle = false
	c.enterTrap(irq.trapCause(), 0, true)
}
