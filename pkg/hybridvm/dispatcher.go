// Package hybridvm implements C2: the per-call routing layer that inspects
// contract bytecode, selects EVM or RISC-V execution, and folds results
// back into a single frame/journal/gas model. It depends on pkg/riscv (C1)
// and pkg/syscall (C3) plus the externally supplied EVM interpreter; it
// never reimplements EVM opcode semantics itself.
package hybridvm

import (
	"encoding/binary"
	"fmt"

	hlog "github.com/hybridvm/hybridvm/pkg/log"

	"github.com/hybridvm/hybridvm/pkg/host"
	"github.com/hybridvm/hybridvm/pkg/riscv"
	"github.com/hybridvm/hybridvm/pkg/syscall"
)

var logger = hlog.Default().Module("hybridvm")

// RiscvTag is the leading byte that marks a contract's deployed or init
// code as RV64IMAC rather than EVM (spec.md §6).
const RiscvTag = 0xFF

// DefaultDRAMSize is the flat RAM region size given to every fresh RISC-V
// machine this dispatcher constructs. Contracts that need less simply
// don't touch the tail of it; there is no growth model (spec.md §3 "Bus").
const DefaultDRAMSize = 16 * 1024 * 1024

// Result is run_frame's return value: either a terminal CallOutcome/
// CreateOutcome, or a NewFrame request the caller must satisfy and then
// feed back through Continuation.ResumeCall/ResumeCreate before this frame can produce a
// result (spec.md §4.3's FrameInitOrResult, plus the suspended-machine
// handle spec.md §4.2 "Suspension" requires to resume it).
type Result struct {
	Kind     host.FrameResultKind
	Call     host.CallOutcome
	Create   host.CreateOutcome
	NewFrame host.NewFrameInit

	cont *Continuation
}

// Continuation holds a RISC-V frame paused at a Call/StaticCall/Create
// ecall: the parent machine, in its paused state, exactly as spec.md §4.2
// requires ("preserving the parent machine in its paused state").
func (r Result) Continuation() *Continuation { return r.cont }

// Dispatcher is C2, constructed once and reused across frames: it holds no
// per-frame state itself, only the gas schedule and the external EVM
// interpreter collaborator.
type Dispatcher struct {
	Schedule syscall.GasSchedule
	EVM      host.EVMInterpreter
	DRAMSize uint64
}

// NewDispatcher constructs a Dispatcher with the default gas schedule and
// DRAM size, backed by the given external EVM interpreter.
func NewDispatcher(evm host.EVMInterpreter) *Dispatcher {
	return &Dispatcher{
		Schedule: syscall.DefaultGasSchedule(),
		EVM:      evm,
		DRAMSize: DefaultDRAMSize,
	}
}

// RunFrame is C2's single public operation (spec.md §4.3). Dispatch rule:
// inspect the first byte of frame.Code; RiscvTag routes to the RISC-V
// path (with that byte stripped), anything else runs unchanged through
// the external EVM interpreter.
func (d *Dispatcher) RunFrame(frame host.Frame, h host.Host) (Result, error) {
	if frame.Kind == host.FrameCreate {
		return d.runCreate(frame, h)
	}
	return d.runCall(frame, h)
}

func (d *Dispatcher) runCall(frame host.Frame, h host.Host) (Result, error) {
	if len(frame.Code) == 0 || frame.Code[0] != RiscvTag {
		outcome, err := d.EVM.RunCall(h, frame)
		return Result{Kind: host.ResultCall, Call: outcome}, err
	}

	runtime := frame.Code[1:]
	return d.runRiscv(frame, h, runtime, frame.Input, nil)
}

// runCreate handles both RISC-V and EVM CREATE. The RISC-V init-code wire
// format (spec.md §6) is:
//
//	offset 0:        0xFF
//	offset 1..5:     big-endian u32 runtime length N, INCLUDING the 0xFF byte
//	offset 5..5+N-1: RV64IMAC ELF image (N-1 bytes, the leading 0xFF already counted)
//	offset 5+N-1..end-32: ABI-encoded constructor args
//	final 32 bytes:  zero padding appended by the outer EVM
func (d *Dispatcher) runCreate(frame host.Frame, h host.Host) (Result, error) {
	payload := frame.Code
	if len(payload) == 0 || payload[0] != RiscvTag {
		outcome, err := d.EVM.RunCreate(h, frame)
		return Result{Kind: host.ResultCreate, Create: outcome}, err
	}

	runtime, calldata, err := splitInitCode(payload)
	if err != nil {
		logger.Debug("invalid riscv deployment", "err", err)
		return Result{Kind: host.ResultCreate, Create: host.CreateOutcome{Success: false}}, nil
	}

	createFrame := frame
	return d.runRiscv(frame, h, runtime, calldata, &createFrame)
}

// splitInitCode parses the RISC-V CREATE init-code wire format, validating
// the embedded length against the payload size (spec.md §7
// "InvalidRiscvDeployment (missing code size, negative remainder)").
func splitInitCode(payload []byte) (runtime, calldata []byte, err error) {
	const headerLen = 5 // 0xFF + 4-byte big-endian length
	if len(payload) < headerLen {
		return nil, nil, fmt.Errorf("hybridvm: init-code shorter than header")
	}
	n := binary.BigEndian.Uint32(payload[1:5])
	if n == 0 {
		return nil, nil, fmt.Errorf("hybridvm: missing runtime code size")
	}
	// n counts the leading 0xFF byte, so the runtime image is n-1 bytes
	// starting right after the 5-byte header.
	runtimeLen := int(n) - 1
	if runtimeLen < 0 {
		return nil, nil, fmt.Errorf("hybridvm: negative runtime length")
	}
	end := headerLen + runtimeLen
	if end > len(payload) {
		return nil, nil, fmt.Errorf("hybridvm: runtime length exceeds payload")
	}
	runtime = payload[headerLen:end]

	tail := payload[end:]
	const zeroPad = 32
	if len(tail) < zeroPad {
		return nil, nil, fmt.Errorf("hybridvm: missing zero-padding tail")
	}
	calldata = tail[:len(tail)-zeroPad]
	return runtime, calldata, nil
}

// runRiscv loads runtime into a fresh machine, seeds calldata at offset 0
// per the calldata-mapping convention, and runs it to a terminal syscall,
// a sub-frame yield, or a non-terminal error (which is always converted
// here into an empty-output Revert carrying the full tallied gas, per
// spec.md §7 "Error coupling"). createFrame is non-nil when this machine
// is running CREATE init-code, so a terminal Call result can be rewrapped
// into the corresponding CreateOutcome.
func (d *Dispatcher) runRiscv(frame host.Frame, h host.Host, runtime, calldata []byte, createFrame *host.Frame) (Result, error) {
	cpu := riscv.NewCPU(d.DRAMSize)
	cpu.IsCount = true

	meter := &gasMeter{remaining: frame.Gas}

	if err := cpu.LoadELF(runtime); err != nil {
		logger.Debug("elf parse failure", "err", err)
		return d.finish(frame, h, createFrame, emptyRevertResult(meter.Remaining())), nil
	}
	if err := seedCalldata(cpu, calldata); err != nil {
		return d.finish(frame, h, createFrame, emptyRevertResult(meter.Remaining())), nil
	}

	bridge := syscall.NewBridge(cpu, h, frame, meter, d.Schedule)
	result := d.drive(cpu, bridge, meter)
	if result.cont != nil {
		result.cont.parentFrame = frame
		result.cont.createFrame = createFrame
	}
	return d.finish(frame, h, createFrame, result), nil
}

// seedCalldata writes the calldata-mapping convention: the first 8 bytes
// of RAM are the little-endian length, followed by the calldata bytes
// (spec.md §6 "Calldata mapping").
func seedCalldata(cpu *riscv.CPU, calldata []byte) error {
	buf := make([]byte, 8+len(calldata))
	binary.LittleEndian.PutUint64(buf, uint64(len(calldata)))
	copy(buf[8:], calldata)
	return cpu.InitializeDRAM(buf)
}

// drive runs the machine to completion, handling ecalls through the
// bridge. A sub-frame request suspends and returns immediately, carrying a
// Continuation the caller feeds back through ResumeCall/ResumeCreate once the child frame
// completes.
func (d *Dispatcher) drive(cpu *riscv.CPU, bridge *syscall.Bridge, meter *gasMeter) Result {
	// revert charges the full instruction tally (or everything left, when
	// the tally exceeds it) and returns an empty-output Revert.
	revert := func() Result {
		if !meter.Charge(d.Schedule.TallyGas(cpu.InstCounter)) {
			meter.Charge(meter.Remaining())
		}
		return emptyRevertResult(meter.Remaining())
	}
	for {
		err := cpu.RunUntilTrap()
		exc, ok := err.(*riscv.Exception)
		if !ok || !exc.Kind.IsEnvironmentCall() {
			// Any emulator fault (illegal instruction, access/page fault,
			// breakpoint) is a non-terminal error: convert to Revert with
			// empty output and the full tallied gas (spec.md §7).
			return revert()
		}
		if exc.Kind != riscv.EnvironmentCallFromMMode {
			// A syscall issued from U/S-mode is not routed through the
			// bridge; it is a regular exception that reverts the frame
			// (spec.md §8 "Boundary behaviours").
			return revert()
		}

		action, err := bridge.HandleEcall()
		if err != nil {
			logger.Debug("bridge error", "err", err)
			return revert()
		}

		switch action.Kind {
		case syscall.ActionContinue:
			continue
		case syscall.ActionTerminal:
			return Result{
				Kind: host.ResultCall,
				Call: host.CallOutcome{
					Success:    action.Status == syscall.StatusReturn,
					ReturnData: action.Data,
					GasLeft:    meter.Remaining(),
				},
			}
		case syscall.ActionNewFrame:
			return Result{
				Kind:     host.ResultNewFrame,
				NewFrame: action.NewFrame,
				cont: &Continuation{
					dispatcher: d,
					cpu:        cpu,
					bridge:     bridge,
					meter:      meter,
				},
			}
		}
	}
}

// finish rewraps a ResultCall into a ResultCreate (installing deployed
// code on success) when createFrame is non-nil, and leaves a NewFrame
// result untouched either way -- the continuation remembers createFrame
// so Resume can apply the same rewrap once the machine finally settles.
func (d *Dispatcher) finish(frame host.Frame, h host.Host, createFrame *host.Frame, result Result) Result {
	if result.Kind != host.ResultCall || createFrame == nil {
		return result
	}
	if !result.Call.Success {
		return Result{Kind: host.ResultCreate, Create: host.CreateOutcome{
			Success: false, ReturnData: result.Call.ReturnData, GasLeft: result.Call.GasLeft,
		}}
	}
	// createFrame.Code was already validated by runCreate's splitInitCode.
	runtime, _, _ := splitInitCode(createFrame.Code)
	deployed := append([]byte{RiscvTag}, runtime...)
	h.SetCode(createFrame.Address, deployed)
	return Result{Kind: host.ResultCreate, Create: host.CreateOutcome{
		Success: true, Address: createFrame.Address, GasLeft: result.Call.GasLeft,
	}}
}

func emptyRevertResult(gasLeft uint64) Result {
	return Result{Kind: host.ResultCall, Call: host.CallOutcome{Success: false, GasLeft: gasLeft}}
}
