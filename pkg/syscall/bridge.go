package syscall

import (
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	hlog "github.com/hybridvm/hybridvm/pkg/log"
	"github.com/hybridvm/hybridvm/pkg/riscv"

	"github.com/hybridvm/hybridvm/pkg/host"
)

var logger = hlog.Default().Module("syscall")

// Status is the terminal disposition of a frame serviced by this bridge.
type Status int

const (
	StatusReturn Status = iota
	StatusRevert
)

// ActionKind tags which variant of Action is populated.
type ActionKind int

const (
	ActionContinue ActionKind = iota
	ActionTerminal
	ActionNewFrame
)

// Action is what one ecall dispatch produces: either "keep running" (the
// ecall was serviced and RunUntilTrap should be invoked again), a terminal
// Return/Revert, or a sub-frame request C2 must satisfy before this machine
// can resume (spec.md §4.2 "Suspension").
type Action struct {
	Kind     ActionKind
	Status   Status
	Data     []byte
	NewFrame host.NewFrameInit
}

// GasMeter is the enclosing EVM frame's gas accounting, borrowed by the
// bridge for sub-call and terminal charges (spec.md §3 "Per-call scratch").
type GasMeter interface {
	Remaining() uint64
	// Charge deducts amount from the remaining budget. It reports false,
	// leaving the meter unchanged, if amount exceeds what remains.
	Charge(amount uint64) bool
	// Refund credits amount back (e.g. a sub-call's unspent gas).
	Refund(amount uint64)
}

// Bridge is C3: the per-frame syscall dispatcher. It is constructed fresh
// for each RISC-V frame and discarded once that frame terminates or yields.
type Bridge struct {
	CPU      *riscv.CPU
	Host     host.Host
	Frame    host.Frame
	Gas      GasMeter
	Schedule GasSchedule

	// lastCreated is the address of the most recently created contract
	// within this call's lineage, returned by ReturnCreateAddress.
	lastCreated host.Address
}

// NewBridge constructs a Bridge for one RISC-V frame.
func NewBridge(cpu *riscv.CPU, h host.Host, frame host.Frame, gas GasMeter, schedule GasSchedule) *Bridge {
	return &Bridge{CPU: cpu, Host: h, Frame: frame, Gas: gas, Schedule: schedule}
}

// NoteCreatedAddress records the address of a contract created by a prior
// sub-frame so a later ReturnCreateAddress syscall can report it.
func (b *Bridge) NoteCreatedAddress(addr host.Address) {
	b.lastCreated = addr
}

// HandleEcall services one ECALL raised by the machine-mode environment
// call exception. It reads t0/a0..a7, dispatches, and mutates the CPU's
// return registers in place for non-terminal syscalls. Every returned error
// is one of the bridge error kinds in spec.md §7 and collapses, at the
// frame boundary, into a Revert with empty output (the caller, C2, performs
// that collapse).
func (b *Bridge) HandleEcall() (Action, error) {
	r := &b.CPU.IntRegs
	t0 := r.Read(regT0)
	num := Number(t0)

	switch num {
	case Return:
		return b.terminal(StatusReturn, r.Read(regA0), r.Read(regA1))
	case Revert:
		return b.terminal(StatusRevert, r.Read(regA0), r.Read(regA1))

	case SLoad:
		return b.sload(r)
	case SStore:
		return b.sstore(r)

	case Call:
		return b.call(r, host.FrameCall)
	case StaticCall:
		return b.call(r, host.FrameStaticCall)
	case Create:
		return b.create(r)

	case ReturnDataSize:
		r.Write(regA0, uint64(len(b.Host.ReturnData())))
		return Action{Kind: ActionContinue}, nil
	case ReturnDataCopy:
		return b.returnDataCopy(r)
	case ReturnCreateAddress:
		return b.writeAddress(r.Read(regA0), b.lastCreated)

	case Caller:
		l0, l1, l2 := PackAddress(b.Frame.Caller)
		r.Write(regA0, l0)
		r.Write(regA1, l1)
		r.Write(regA2, l2)
		return Action{Kind: ActionContinue}, nil

	case CallValue:
		v0, v1, v2, v3 := Pack256(b.Frame.Value)
		r.Write(regA0, v0)
		r.Write(regA1, v1)
		r.Write(regA2, v2)
		r.Write(regA3, v3)
		return Action{Kind: ActionContinue}, nil

	case Keccak256:
		return b.keccak(r)
	case Log:
		return b.log(r)

	case BaseFee:
		return b.write256(r, b.Host.BlockContext().BaseFee)
	case ChainID:
		return b.write256(r, b.Host.TxContext().ChainID)
	case GasLimit:
		r.Write(regA0, b.Host.BlockContext().GasLimit)
		return Action{Kind: ActionContinue}, nil
	case Number_:
		r.Write(regA0, b.Host.BlockContext().Number)
		return Action{Kind: ActionContinue}, nil
	case Timestamp:
		r.Write(regA0, b.Host.BlockContext().Timestamp)
		return Action{Kind: ActionContinue}, nil
	case GasPrice:
		return b.write256(r, b.Host.TxContext().GasPrice)
	case Origin:
		l0, l1, l2 := PackAddress(b.Host.TxContext().Origin)
		r.Write(regA0, l0)
		r.Write(regA1, l1)
		r.Write(regA2, l2)
		return Action{Kind: ActionContinue}, nil

	default:
		return Action{}, &UnknownSyscallError{Number: t0}
	}
}

func (b *Bridge) write256(r *riscv.IntRegisters, v *uint256.Int) (Action, error) {
	w0, w1, w2, w3 := Pack256(v)
	r.Write(regA0, w0)
	r.Write(regA1, w1)
	r.Write(regA2, w2)
	r.Write(regA3, w3)
	return Action{Kind: ActionContinue}, nil
}

// slice reads a (ptr, size) argument pair into a copy of RAM, enforcing
// spec.md §8 "the dispatcher returns Revert, never reads out-of-range" by
// surfacing SyscallMemoryOutOfRange instead.
func (b *Bridge) slice(ptr, size uint64) ([]byte, error) {
	s, ok := b.CPU.Bus.Slice(ptr, size)
	if !ok {
		return nil, &MemoryOutOfRangeError{Ptr: ptr, Size: size}
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

// terminal services Return/Revert: it tallies the full RISC-V instruction
// cost, charges it, and ends interpretation with the given status.
func (b *Bridge) terminal(status Status, ptr, size uint64) (Action, error) {
	data, err := b.slice(ptr, size)
	if err != nil {
		return Action{}, err
	}
	cost := b.Schedule.TallyGas(b.CPU.InstCounter)
	if !b.Gas.Charge(cost) {
		return Action{Kind: ActionTerminal, Status: StatusRevert}, nil
	}
	return Action{Kind: ActionTerminal, Status: status, Data: data}, nil
}

func (b *Bridge) sload(r *riscv.IntRegisters) (Action, error) {
	key := bytes32FromRegs(r.Read(regA0), r.Read(regA1), r.Read(regA2), r.Read(regA3))
	value, cold := b.Host.SLoad(b.Frame.Address, key)
	cost := b.Schedule.SloadWarm
	if cold {
		cost = b.Schedule.SloadCold
	}
	if !b.Gas.Charge(cost) {
		return Action{}, ErrOutOfGas
	}
	v0, v1, v2, v3 := regsFromBytes32(value)
	r.Write(regA0, v0)
	r.Write(regA1, v1)
	r.Write(regA2, v2)
	r.Write(regA3, v3)
	return Action{Kind: ActionContinue}, nil
}

func (b *Bridge) sstore(r *riscv.IntRegisters) (Action, error) {
	if b.Frame.IsStatic {
		return Action{}, ErrStaticModeViolation
	}
	key := bytes32FromRegs(r.Read(regA0), r.Read(regA1), r.Read(regA2), r.Read(regA3))
	value := bytes32FromRegs(r.Read(regA4), r.Read(regA5), r.Read(regA6), r.Read(regA7))
	cold := b.Host.SStore(b.Frame.Address, key, value)
	cost := b.Schedule.SstoreWarm
	if cold {
		cost = b.Schedule.SstoreCold
	}
	if !b.Gas.Charge(cost) {
		return Action{}, ErrOutOfGas
	}
	return Action{Kind: ActionContinue}, nil
}

func (b *Bridge) call(r *riscv.IntRegisters, kind host.FrameKind) (Action, error) {
	target := UnpackAddress(r.Read(regA0), r.Read(regA1), r.Read(regA2))
	value := new(uint256.Int).SetUint64(r.Read(regA3))
	ptr, size := r.Read(regA4), r.Read(regA5)
	if b.Frame.IsStatic && kind == host.FrameCall && !value.IsZero() {
		return Action{}, ErrStaticModeViolation
	}
	input, err := b.slice(ptr, size)
	if err != nil {
		return Action{}, err
	}

	cost := b.callCost(target, value, kind)
	if !b.Gas.Charge(cost) {
		return Action{}, ErrOutOfGas
	}

	// The child's entire limit is deducted from the parent meter up front
	// (spec.md §4.2 "deduct the remaining-gas amount as the child's limit,
	// refunded on return") and refunded via GasMeter.Refund when the child
	// settles (continuation.go ResumeCall/ResumeCreate).
	childGas := b.Gas.Remaining()
	if !b.Gas.Charge(childGas) {
		return Action{}, ErrOutOfGas
	}
	return Action{
		Kind: ActionNewFrame,
		NewFrame: host.NewFrameInit{
			Kind:   kind,
			Target: target,
			Value:  value,
			Input:  input,
			Gas:    childGas,
		},
	}, nil
}

// callCost prices a CALL/STATICCALL sub-call per spec.md §6: base 100 +
// cold-account surcharge 2600 + empty-account surcharge 25000 (on nonzero
// value transfer to an empty account) + value-transfer surcharge 9000.
func (b *Bridge) callCost(target host.Address, value *uint256.Int, kind host.FrameKind) uint64 {
	cost := b.Schedule.CallBase
	if wasWarm := b.Host.AddressInAccessList(target); !wasWarm {
		cost += b.Schedule.NewAccountSurcharge
	}
	if kind == host.FrameCall && !value.IsZero() {
		cost += b.Schedule.ValueTransferSurcharge
		if b.Host.Empty(target) {
			cost += b.Schedule.EmptyAccountSurcharge
		}
	}
	return cost
}

func (b *Bridge) create(r *riscv.IntRegisters) (Action, error) {
	value := new(uint256.Int).SetUint64(r.Read(regA0))
	ptr, size := r.Read(regA1), r.Read(regA2)
	payload, err := b.slice(ptr, size)
	if err != nil {
		return Action{}, err
	}

	if !b.Gas.Charge(b.Schedule.CreateBase) {
		return Action{}, ErrOutOfGas
	}

	// See the matching comment in call: the child's limit is deducted up
	// front and refunded on resume.
	childGas := b.Gas.Remaining()
	if !b.Gas.Charge(childGas) {
		return Action{}, ErrOutOfGas
	}
	return Action{
		Kind: ActionNewFrame,
		NewFrame: host.NewFrameInit{
			Kind:  host.FrameCreate,
			Value: value,
			Input: payload,
			Gas:   childGas,
		},
	}, nil
}

func (b *Bridge) returnDataCopy(r *riscv.IntRegisters) (Action, error) {
	dest, offset, size := r.Read(regA0), r.Read(regA1), r.Read(regA2)
	rd := b.Host.ReturnData()
	if offset+size > uint64(len(rd)) {
		return Action{}, &MemoryOutOfRangeError{Ptr: offset, Size: size}
	}
	dst, ok := b.CPU.Bus.Slice(dest, size)
	if !ok {
		return Action{}, &MemoryOutOfRangeError{Ptr: dest, Size: size}
	}
	copy(dst, rd[offset:offset+size])
	return Action{Kind: ActionContinue}, nil
}

func (b *Bridge) writeAddress(dest uint64, addr host.Address) (Action, error) {
	dst, ok := b.CPU.Bus.Slice(dest, 20)
	if !ok {
		return Action{}, &MemoryOutOfRangeError{Ptr: dest, Size: 20}
	}
	copy(dst, addr[:])
	return Action{Kind: ActionContinue}, nil
}

func (b *Bridge) keccak(r *riscv.IntRegisters) (Action, error) {
	ptr, size := r.Read(regA0), r.Read(regA1)
	data, err := b.slice(ptr, size)
	if err != nil {
		return Action{}, err
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	sum := d.Sum(nil)
	var digest [32]byte
	copy(digest[:], sum)
	v0, v1, v2, v3 := regsFromBytes32(digest)
	r.Write(regA0, v0)
	r.Write(regA1, v1)
	r.Write(regA2, v2)
	r.Write(regA3, v3)
	return Action{Kind: ActionContinue}, nil
}

func (b *Bridge) log(r *riscv.IntRegisters) (Action, error) {
	if b.Frame.IsStatic {
		return Action{}, ErrStaticModeViolation
	}
	dataPtr, dataSize := r.Read(regA0), r.Read(regA1)
	topicsPtr, topicsCount := r.Read(regA2), r.Read(regA3)
	if topicsCount > 4 {
		return Action{}, &UnknownSyscallError{Number: uint64(Log)}
	}
	data, err := b.slice(dataPtr, dataSize)
	if err != nil {
		return Action{}, err
	}
	topicBytes, err := b.slice(topicsPtr, topicsCount*32)
	if err != nil {
		return Action{}, err
	}
	topics := make([]host.Hash, topicsCount)
	for i := uint64(0); i < topicsCount; i++ {
		topics[i] = host.Hash(topicBytes[i*32 : i*32+32])
	}
	b.Host.AddLog(b.Frame.Address, topics, data)
	logger.Debug("log", "addr", b.Frame.Address, "topics", len(topics), "size", len(data))
	return Action{Kind: ActionContinue}, nil
}
