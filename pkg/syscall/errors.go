package syscall

import "fmt"

// Bridge errors (spec.md §7 "Bridge errors (from C3)"). Every one of these
// collapses at the frame boundary into an EVM-level Revert with empty
// output and the full tallied gas charge (§7 "Propagation policy").
type UnknownSyscallError struct {
	Number uint64
}

func (e *UnknownSyscallError) Error() string {
	return fmt.Sprintf("syscall: unknown syscall number %d", e.Number)
}

type MemoryOutOfRangeError struct {
	Ptr, Size uint64
}

func (e *MemoryOutOfRangeError) Error() string {
	return fmt.Sprintf("syscall: memory access [0x%x, 0x%x) out of RAM range", e.Ptr, e.Ptr+e.Size)
}

// ErrOutOfGas is returned when the gas meter cannot absorb a charge.
var ErrOutOfGas = fmt.Errorf("syscall: out of gas")

// ErrStaticModeViolation is returned when a state-mutating syscall (SStore,
// Log, or a value-carrying Call) is issued from a STATICCALL frame.
var ErrStaticModeViolation = fmt.Errorf("syscall: state mutation in static context")
