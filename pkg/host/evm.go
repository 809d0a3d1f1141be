package host

// EVMInterpreter is the external collaborator C2 falls back to when a
// frame's code does not begin with the RISC-V tag byte (spec.md §1 "run the
// external EVM interpreter unchanged"). This core never reimplements EVM
// opcode semantics; pkg/gethhost supplies the concrete implementation
// backed by go-ethereum's core/vm.EVM.
type EVMInterpreter interface {
	RunCall(h Host, f Frame) (CallOutcome, error)
	RunCreate(h Host, f Frame) (CreateOutcome, error)
}
