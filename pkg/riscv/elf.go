package riscv

import (
	"debug/elf"
	"fmt"
)

// LoadELF parses an RV64IMAC ELF image and copies every PT_LOAD segment
// into RAM at p_vaddr - DRAMBase, zero-filling up to p_memsz. It sets PC to
// the entry point. Loading the same image into a freshly-reset machine is
// idempotent with respect to PC and RAM, since the bus starts zeroed and
// every PT_LOAD segment is copied in file order.
func (c *CPU) LoadELF(image []byte) error {
	f, err := elf.NewFile(bytesReaderAt(image))
	if err != nil {
		return fmt.Errorf("riscv: parse elf: %w", err)
	}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Vaddr < DRAMBase {
			return fmt.Errorf("riscv: PT_LOAD vaddr 0x%x below DRAM base", prog.Vaddr)
		}
		off := prog.Vaddr - DRAMBase
		if off+prog.Memsz > c.Bus.Size() {
			return fmt.Errorf("riscv: PT_LOAD segment exceeds DRAM size")
		}
		data := make([]byte, prog.Filesz)
		n, err := prog.ReadAt(data, 0)
		if err != nil && uint64(n) != prog.Filesz {
			return fmt.Errorf("riscv: read PT_LOAD segment: %w", err)
		}
		slice, ok := c.Bus.Slice(prog.Vaddr, prog.Memsz)
		if !ok {
			return fmt.Errorf("riscv: PT_LOAD segment out of range")
		}
		copy(slice, data)
		for i := prog.Filesz; i < prog.Memsz; i++ {
			slice[i] = 0
		}
	}
	c.PC = f.Entry
	return nil
}

// bytesReaderAt adapts a byte slice to io.ReaderAt, which debug/elf requires.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, fmt.Errorf("riscv: elf read out of range")
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, fmt.Errorf("riscv: short elf read")
	}
	return n, nil
}
