package gethhost

import (
	gethvm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/hybridvm/hybridvm/pkg/host"
)

// EVMAdapter implements host.EVMInterpreter by delegating to a
// go-ethereum *vm.EVM, grounded on the teacher's
// gethvm.NewEVM(blockCtx, statedb, config, gethvm.Config{}) construction
// in pkg/geth/processor.go. This module never reimplements EVM opcode
// semantics; every non-RISC-V frame runs through this adapter unchanged.
type EVMAdapter struct {
	evm *gethvm.EVM
}

// NewEVMAdapter wraps an already-constructed go-ethereum EVM.
func NewEVMAdapter(evm *gethvm.EVM) *EVMAdapter {
	return &EVMAdapter{evm: evm}
}

func (a *EVMAdapter) RunCall(_ host.Host, f host.Frame) (host.CallOutcome, error) {
	caller := gethvm.AccountRef(f.Caller)
	var (
		ret  []byte
		left uint64
		err  error
	)
	if f.IsStatic || f.Kind == host.FrameStaticCall {
		ret, left, err = a.evm.StaticCall(caller, f.Address, f.Input, f.Gas)
	} else {
		ret, left, err = a.evm.Call(caller, f.Address, f.Input, f.Gas, f.Value)
	}
	return host.CallOutcome{
		Success:    err == nil,
		ReturnData: ret,
		GasLeft:    left,
	}, nil
}

func (a *EVMAdapter) RunCreate(_ host.Host, f host.Frame) (host.CreateOutcome, error) {
	caller := gethvm.AccountRef(f.Caller)
	ret, addr, left, err := a.evm.Create(caller, f.Code, f.Gas, f.Value)
	return host.CreateOutcome{
		Success:    err == nil,
		Address:    addr,
		ReturnData: ret,
		GasLeft:    left,
	}, nil
}
