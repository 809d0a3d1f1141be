package syscall

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/hybridvm/hybridvm/pkg/host"
	"github.com/hybridvm/hybridvm/pkg/riscv"
)

// fakeHost is a minimal in-memory host.Host for bridge tests.
type fakeHost struct {
	storage   map[host.Address]map[host.Hash][32]byte
	warmSlots map[host.Address]map[host.Hash]bool
	warmAddrs map[host.Address]bool
	empty     map[host.Address]bool
	logs      []logEntry
	returnBuf []byte
	block     host.BlockContext
	tx        host.TxContext
}

type logEntry struct {
	addr   host.Address
	topics []host.Hash
	data   []byte
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		storage:   map[host.Address]map[host.Hash][32]byte{},
		warmSlots: map[host.Address]map[host.Hash]bool{},
		warmAddrs: map[host.Address]bool{},
		empty:     map[host.Address]bool{},
	}
}

func (h *fakeHost) SLoad(addr host.Address, slot host.Hash) ([32]byte, bool) {
	if h.warmSlots[addr] == nil {
		h.warmSlots[addr] = map[host.Hash]bool{}
	}
	cold := !h.warmSlots[addr][slot]
	h.warmSlots[addr][slot] = true
	return h.storage[addr][slot], cold
}

func (h *fakeHost) SStore(addr host.Address, slot host.Hash, value [32]byte) bool {
	if h.warmSlots[addr] == nil {
		h.warmSlots[addr] = map[host.Hash]bool{}
	}
	cold := !h.warmSlots[addr][slot]
	h.warmSlots[addr][slot] = true
	if h.storage[addr] == nil {
		h.storage[addr] = map[host.Hash][32]byte{}
	}
	h.storage[addr][slot] = value
	return cold
}

func (h *fakeHost) GetBalance(host.Address) *uint256.Int { return uint256.NewInt(0) }
func (h *fakeHost) GetCodeSize(host.Address) int         { return 0 }
func (h *fakeHost) GetCode(host.Address) []byte          { return nil }
func (h *fakeHost) Exists(addr host.Address) bool        { return !h.empty[addr] }
func (h *fakeHost) Empty(addr host.Address) bool         { return h.empty[addr] }

func (h *fakeHost) AddressInAccessList(addr host.Address) bool {
	wasWarm := h.warmAddrs[addr]
	h.warmAddrs[addr] = true
	return wasWarm
}

func (h *fakeHost) AddLog(addr host.Address, topics []host.Hash, data []byte) {
	h.logs = append(h.logs, logEntry{addr, topics, data})
}

func (h *fakeHost) CreateAddress(host.Address, uint64) host.Address { return host.Address{} }
func (h *fakeHost) Nonce(host.Address) uint64                       { return 0 }
func (h *fakeHost) SetCode(host.Address, []byte)                    {}
func (h *fakeHost) Transfer(_, _ host.Address, _ *uint256.Int)       {}
func (h *fakeHost) Checkpoint() int                                  { return 0 }
func (h *fakeHost) Commit(int)                                       {}
func (h *fakeHost) RevertToCheckpoint(int)                           {}
func (h *fakeHost) SetReturnData(data []byte)                        { h.returnBuf = data }
func (h *fakeHost) ReturnData() []byte                               { return h.returnBuf }
func (h *fakeHost) BlockContext() host.BlockContext                  { return h.block }
func (h *fakeHost) TxContext() host.TxContext                        { return h.tx }

// fakeMeter is a plain counting GasMeter; Charge fails once amount exceeds
// what remains.
type fakeMeter struct{ remaining uint64 }

func (m *fakeMeter) Remaining() uint64 { return m.remaining }
func (m *fakeMeter) Charge(amount uint64) bool {
	if amount > m.remaining {
		return false
	}
	m.remaining -= amount
	return true
}
func (m *fakeMeter) Refund(amount uint64) { m.remaining += amount }

func newTestBridge(t *testing.T, frame host.Frame) (*Bridge, *riscv.CPU, *fakeHost, *fakeMeter) {
	t.Helper()
	cpu := riscv.NewCPU(riscv.PageSize)
	h := newFakeHost()
	meter := &fakeMeter{remaining: 10_000_000}
	b := NewBridge(cpu, h, frame, meter, DefaultGasSchedule())
	return b, cpu, h, meter
}

func TestBridgeSloadSstoreRoundTrip(t *testing.T) {
	addr := host.Address{1}
	b, cpu, _, _ := newTestBridge(t, host.Frame{Address: addr})
	r := &cpu.IntRegs

	// SSTORE(key=0, value=42)
	r.Write(regT0, uint64(SStore))
	for i := regA0; i <= regA3; i++ {
		r.Write(uint64(i), 0)
	}
	r.Write(regA4, 0)
	r.Write(regA5, 0)
	r.Write(regA6, 0)
	r.Write(regA7, 42)
	if _, err := b.HandleEcall(); err != nil {
		t.Fatalf("sstore: %v", err)
	}

	// SLOAD(key=0)
	r.Write(regT0, uint64(SLoad))
	for i := regA0; i <= regA3; i++ {
		r.Write(uint64(i), 0)
	}
	if _, err := b.HandleEcall(); err != nil {
		t.Fatalf("sload: %v", err)
	}
	if got := r.Read(regA3); got != 42 {
		t.Fatalf("sload a3 = %d, want 42", got)
	}
}

func TestBridgeUnknownSyscall(t *testing.T) {
	b, cpu, _, _ := newTestBridge(t, host.Frame{})
	cpu.IntRegs.Write(regT0, 9999)
	_, err := b.HandleEcall()
	if err == nil {
		t.Fatal("expected UnknownSyscallError")
	}
	if _, ok := err.(*UnknownSyscallError); !ok {
		t.Fatalf("got %T, want *UnknownSyscallError", err)
	}
}

func TestBridgeStaticModeBlocksSstore(t *testing.T) {
	b, cpu, _, _ := newTestBridge(t, host.Frame{IsStatic: true})
	cpu.IntRegs.Write(regT0, uint64(SStore))
	_, err := b.HandleEcall()
	if err != ErrStaticModeViolation {
		t.Fatalf("got %v, want ErrStaticModeViolation", err)
	}
}

func TestBridgeReturnTerminatesAndChargesGas(t *testing.T) {
	b, cpu, _, meter := newTestBridge(t, host.Frame{})
	if err := cpu.InitializeDRAM([]byte("hello world")); err != nil {
		t.Fatalf("init dram: %v", err)
	}
	// Seed enough tallied instructions that TallyGas's subtraction of the
	// fixed empty-calldata decode cost still leaves a nonzero charge.
	cpu.IsCount = true
	cpu.InstCounter["addi"] = DefaultGasSchedule().EmptyCalldataDecodeCost + 100
	cpu.IntRegs.Write(regT0, uint64(Return))
	cpu.IntRegs.Write(regA0, riscv.DRAMBase)
	cpu.IntRegs.Write(regA1, 11)

	before := meter.Remaining()
	action, err := b.HandleEcall()
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if action.Kind != ActionTerminal || action.Status != StatusReturn {
		t.Fatalf("action = %+v, want terminal Return", action)
	}
	if string(action.Data) != "hello world" {
		t.Fatalf("data = %q, want %q", action.Data, "hello world")
	}
	if meter.Remaining() >= before {
		t.Fatalf("expected gas charged for the instruction tally")
	}
}

func TestBridgeMemoryOutOfRange(t *testing.T) {
	b, cpu, _, _ := newTestBridge(t, host.Frame{})
	cpu.IntRegs.Write(regT0, uint64(Return))
	cpu.IntRegs.Write(regA0, riscv.DRAMBase)
	cpu.IntRegs.Write(regA1, riscv.PageSize+1)
	_, err := b.HandleEcall()
	if _, ok := err.(*MemoryOutOfRangeError); !ok {
		t.Fatalf("got %v (%T), want *MemoryOutOfRangeError", err, err)
	}
}

func TestBridgeCallYieldsNewFrame(t *testing.T) {
	b, cpu, _, _ := newTestBridge(t, host.Frame{})
	target := host.Address{0xAA}
	l0, l1, l2 := PackAddress(target)
	r := &cpu.IntRegs
	r.Write(regT0, uint64(Call))
	r.Write(regA0, l0)
	r.Write(regA1, l1)
	r.Write(regA2, l2)
	r.Write(regA3, 0)
	r.Write(regA4, riscv.DRAMBase)
	r.Write(regA5, 0)

	action, err := b.HandleEcall()
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if action.Kind != ActionNewFrame {
		t.Fatalf("action.Kind = %v, want ActionNewFrame", action.Kind)
	}
	if action.NewFrame.Target != target {
		t.Fatalf("target = %x, want %x", action.NewFrame.Target, target)
	}
}

func TestBridgeCallDeductsChildGasFromParentMeter(t *testing.T) {
	b, cpu, _, meter := newTestBridge(t, host.Frame{})
	target := host.Address{0xBB}
	l0, l1, l2 := PackAddress(target)
	r := &cpu.IntRegs
	r.Write(regT0, uint64(Call))
	r.Write(regA0, l0)
	r.Write(regA1, l1)
	r.Write(regA2, l2)
	r.Write(regA3, 0)
	r.Write(regA4, riscv.DRAMBase)
	r.Write(regA5, 0)

	action, err := b.HandleEcall()
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if meter.Remaining() != 0 {
		t.Fatalf("parent meter.Remaining() = %d, want 0 (entire balance handed to the child)", meter.Remaining())
	}
	if action.NewFrame.Gas == 0 {
		t.Fatalf("NewFrame.Gas = 0, want the parent's pre-call remaining balance")
	}
}
