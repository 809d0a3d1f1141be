package hybridvm

import (
	"encoding/binary"
	"testing"

	"github.com/holiman/uint256"

	"github.com/hybridvm/hybridvm/pkg/host"
)

func TestSplitInitCodeRoundTrip(t *testing.T) {
	runtime := []byte{'e', 'l', 'f', '!'} // 4 fake ELF bytes
	calldata := []byte{1, 2, 3, 4}

	payload := make([]byte, 0)
	payload = append(payload, 0xFF)
	var lenBuf [4]byte
	// The length field counts the leading 0xFF tag byte as well as the image.
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(runtime)+1))
	payload = append(payload, lenBuf[:]...)
	payload = append(payload, runtime...)
	payload = append(payload, calldata...)
	payload = append(payload, make([]byte, 32)...) // zero-pad tail

	gotRuntime, gotCalldata, err := splitInitCode(payload)
	if err != nil {
		t.Fatalf("splitInitCode: %v", err)
	}
	if string(gotRuntime) != string(runtime) {
		t.Fatalf("runtime = %x, want %x", gotRuntime, runtime)
	}
	if string(gotCalldata) != string(calldata) {
		t.Fatalf("calldata = %x, want %x", gotCalldata, calldata)
	}
}

func TestSplitInitCodeTooShortHeader(t *testing.T) {
	if _, _, err := splitInitCode([]byte{0xFF, 0, 0}); err == nil {
		t.Fatal("expected error for header shorter than 5 bytes")
	}
}

func TestSplitInitCodeZeroLength(t *testing.T) {
	payload := append([]byte{0xFF, 0, 0, 0, 0}, make([]byte, 32)...)
	if _, _, err := splitInitCode(payload); err == nil {
		t.Fatal("expected error for a zero-length runtime size field")
	}
}

func TestSplitInitCodeLengthExceedsPayload(t *testing.T) {
	payload := []byte{0xFF, 0, 0, 0, 100} // claims 100 bytes, payload has none
	if _, _, err := splitInitCode(payload); err == nil {
		t.Fatal("expected error when the declared runtime length exceeds the payload")
	}
}

func TestSplitInitCodeMissingZeroPad(t *testing.T) {
	runtime := []byte{0xFF, 'a', 'b'}
	payload := make([]byte, 0)
	payload = append(payload, 0xFF)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(runtime)))
	payload = append(payload, lenBuf[:]...)
	payload = append(payload, runtime...)
	// no 32-byte zero-pad tail appended
	if _, _, err := splitInitCode(payload); err == nil {
		t.Fatal("expected error for a missing zero-padding tail")
	}
}

// fakeEVM is a host.EVMInterpreter stub recording whether it was invoked,
// so dispatch-routing tests can assert the EVM path was (or wasn't) taken
// without needing a real go-ethereum EVM.
type fakeEVM struct {
	calledCall   bool
	calledCreate bool
}

func (f *fakeEVM) RunCall(host.Host, host.Frame) (host.CallOutcome, error) {
	f.calledCall = true
	return host.CallOutcome{Success: true, ReturnData: []byte("evm-ran")}, nil
}

func (f *fakeEVM) RunCreate(host.Host, host.Frame) (host.CreateOutcome, error) {
	f.calledCreate = true
	return host.CreateOutcome{Success: true}, nil
}

type noopHost struct{}

func (noopHost) SLoad(host.Address, host.Hash) ([32]byte, bool)   { return [32]byte{}, true }
func (noopHost) SStore(host.Address, host.Hash, [32]byte) bool    { return true }
func (noopHost) GetBalance(host.Address) *uint256.Int             { return uint256.NewInt(0) }
func (noopHost) GetCodeSize(host.Address) int                     { return 0 }
func (noopHost) GetCode(host.Address) []byte                      { return nil }
func (noopHost) Exists(host.Address) bool                         { return false }
func (noopHost) Empty(host.Address) bool                          { return true }
func (noopHost) AddressInAccessList(host.Address) bool             { return false }
func (noopHost) AddLog(host.Address, []host.Hash, []byte)         {}
func (noopHost) CreateAddress(host.Address, uint64) host.Address  { return host.Address{} }
func (noopHost) Nonce(host.Address) uint64                        { return 0 }
func (noopHost) SetCode(host.Address, []byte)                     {}
func (noopHost) Transfer(_, _ host.Address, _ *uint256.Int)       {}
func (noopHost) Checkpoint() int                                  { return 0 }
func (noopHost) Commit(int)                                       {}
func (noopHost) RevertToCheckpoint(int)                           {}
func (noopHost) SetReturnData([]byte)                             {}
func (noopHost) ReturnData() []byte                                { return nil }
func (noopHost) BlockContext() host.BlockContext                  { return host.BlockContext{} }
func (noopHost) TxContext() host.TxContext                        { return host.TxContext{} }

func TestRunFrameRoutesNonTaggedCodeToEVM(t *testing.T) {
	evm := &fakeEVM{}
	d := NewDispatcher(evm)
	frame := host.Frame{Kind: host.FrameCall, Code: []byte{0x60, 0x00}} // ordinary EVM bytecode
	result, err := d.RunFrame(frame, noopHost{})
	if err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if !evm.calledCall {
		t.Fatal("expected EVM.RunCall to be invoked for non-0xFF-tagged code")
	}
	if result.Kind != host.ResultCall || !result.Call.Success {
		t.Fatalf("result = %+v, want a successful ResultCall", result)
	}
}

func TestRunFrameRoutesEmptyCodeToEVM(t *testing.T) {
	evm := &fakeEVM{}
	d := NewDispatcher(evm)
	frame := host.Frame{Kind: host.FrameCall, Code: nil}
	if _, err := d.RunFrame(frame, noopHost{}); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if !evm.calledCall {
		t.Fatal("expected EVM.RunCall to be invoked for empty code")
	}
}

func TestRunFrameCreateRoutesNonTaggedCodeToEVM(t *testing.T) {
	evm := &fakeEVM{}
	d := NewDispatcher(evm)
	frame := host.Frame{Kind: host.FrameCreate, Code: []byte{0x60, 0x00}}
	result, err := d.RunFrame(frame, noopHost{})
	if err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if !evm.calledCreate {
		t.Fatal("expected EVM.RunCreate to be invoked for non-0xFF-tagged create code")
	}
	if result.Kind != host.ResultCreate {
		t.Fatalf("result.Kind = %v, want ResultCreate", result.Kind)
	}
}

func TestRunFrameCreateWithMalformedRiscvInitCodeReverts(t *testing.T) {
	evm := &fakeEVM{}
	d := NewDispatcher(evm)
	// Tagged as RISC-V but the header is truncated: splitInitCode fails and
	// runCreate must report a clean failed CreateOutcome, not invoke the EVM.
	frame := host.Frame{Kind: host.FrameCreate, Code: []byte{0xFF, 0, 0}}
	result, err := d.RunFrame(frame, noopHost{})
	if err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if evm.calledCreate {
		t.Fatal("EVM.RunCreate must not be invoked for RISC-V-tagged code")
	}
	if result.Kind != host.ResultCreate || result.Create.Success {
		t.Fatalf("result = %+v, want a failed ResultCreate", result)
	}
}
