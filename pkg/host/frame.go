package host

import "github.com/holiman/uint256"

// FrameKind distinguishes the three ways a frame can be entered, matching
// the syscall ABI's Call/StaticCall/Create distinction.
type FrameKind int

const (
	FrameCall FrameKind = iota
	FrameStaticCall
	FrameCreate
)

func (k FrameKind) String() string {
	switch k {
	case FrameCall:
		return "call"
	case FrameStaticCall:
		return "staticcall"
	case FrameCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Frame is one invocation of a contract at a specific call depth, with its
// own gas budget, input, and return buffer (GLOSSARY "Frame").
type Frame struct {
	Kind FrameKind

	// Address is the account whose code is executing (the "code owner").
	// For CREATE this is the not-yet-existing new contract's address.
	Address Address

	// Caller is the account that initiated this frame.
	Caller Address

	// Code is the deployed (CALL) or init (CREATE) bytecode associated
	// with this frame, before the hybrid dispatcher strips any 0xFF tag.
	Code []byte

	// Input is the calldata (CALL/STATICCALL) or the constructor-args tail
	// of the init-code payload (CREATE).
	Input []byte

	Value    *uint256.Int
	Gas      uint64
	Depth    int
	IsStatic bool
}

// NewFrameInit is what C1/C3 yield when a sub-call syscall suspends the
// emulator: a request for C2 to construct and run a child Frame.
type NewFrameInit struct {
	Kind   FrameKind
	Target Address // ignored for FrameCreate
	Value  *uint256.Int
	Input  []byte
	Gas    uint64
}

// CallOutcome is the terminal result of a CALL/STATICCALL frame.
type CallOutcome struct {
	Success    bool
	ReturnData []byte
	GasLeft    uint64
}

// CreateOutcome is the terminal result of a CREATE frame.
type CreateOutcome struct {
	Success    bool
	Address    Address
	ReturnData []byte
	GasLeft    uint64
}

// FrameResultKind tags which variant of a dispatcher result is populated.
// Defined here (rather than in hybridvm) so both host.EVMInterpreter
// implementations and hybridvm's own result type can share one vocabulary.
type FrameResultKind int

const (
	ResultCall FrameResultKind = iota
	ResultCreate
	ResultNewFrame
)
