// Package host defines the journaled world-state view that C2 (the hybrid
// frame dispatcher) and C3 (the syscall bridge) consume but do not own. The
// concrete implementation (pkg/gethhost) adapts a go-ethereum StateDB and
// EVM; this package only fixes the interface and the shared value types so
// neither C1, C2, nor C3 needs to import go-ethereum directly.
package host

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address and Hash are the address/slot types used end to end by this
// module; no parallel address type is introduced.
type Address = common.Address
type Hash = common.Hash

// BlockContext carries the block environment a frame reads via the
// BaseFee/GasLimit/Number/Timestamp syscalls (spec.md §3 "Block and
// transaction environment").
type BlockContext struct {
	BaseFee   *uint256.Int
	GasLimit  uint64
	Number    uint64
	Timestamp uint64
}

// TxContext carries the per-transaction environment read via the
// ChainId/GasPrice/Origin syscalls.
type TxContext struct {
	Origin   Address
	GasPrice *uint256.Int
	ChainID  *uint256.Int
}

// Host is the journaled key-value store and environment the syscall bridge
// drives on behalf of a RISC-V contract, and that the hybrid dispatcher
// drives for account-warmth and balance bookkeeping around sub-calls. It is
// borrowed mutably only during syscall dispatch; between syscalls the host
// is not held (§5 "Shared resources").
type Host interface {
	// SLoad reads a storage slot, returning whether the slot was cold prior
	// to this access (so the caller can charge EIP-2929 gas) and warming it
	// as a side effect.
	SLoad(addr Address, slot Hash) (value [32]byte, wasCold bool)

	// SStore writes a storage slot, returning whether it was cold prior to
	// this access.
	SStore(addr Address, slot Hash, value [32]byte) (wasCold bool)

	// GetBalance returns the wei balance of addr.
	GetBalance(addr Address) *uint256.Int

	// GetCodeSize returns the length of the code deployed at addr.
	GetCodeSize(addr Address) int

	// GetCode returns the code deployed at addr.
	GetCode(addr Address) []byte

	// Exists reports whether addr has been touched (nonce, balance, code,
	// or storage) in a way that would make it observable on-chain.
	Exists(addr Address) bool

	// Empty reports whether addr is "empty" per EIP-161 (no balance, no
	// nonce, no code) -- used for the empty-account call surcharge.
	Empty(addr Address) bool

	// AddressInAccessList reports and records warmth for a CALL/STATICCALL/
	// CREATE target, per EIP-2929. The account is marked warm as a side
	// effect regardless of its prior state.
	AddressInAccessList(addr Address) (wasWarm bool)

	// AddLog emits a host log event for the LOG syscall.
	AddLog(addr Address, topics []Hash, data []byte)

	// CreateAddress computes the deployment address for a CREATE from
	// caller + nonce, mirroring go-ethereum's crypto.CreateAddress.
	CreateAddress(caller Address, nonce uint64) Address

	// Nonce returns the current nonce of addr (consumed by CreateAddress
	// callers that need to read-then-bump).
	Nonce(addr Address) uint64

	// SetCode installs the deployed code for addr after a successful
	// RISC-V CREATE (the 0xFF-prefixed runtime image).
	SetCode(addr Address, code []byte)

	// Transfer moves value wei from `from` to `to`, used for the
	// value-transfer leg of CALL/CREATE before the sub-frame runs.
	Transfer(from, to Address, value *uint256.Int)

	// Checkpoint records a revertible snapshot of host state.
	Checkpoint() int

	// Commit discards the ability to revert to checkpoint id (keeps its
	// effects).
	Commit(id int)

	// RevertToCheckpoint undoes every host mutation since checkpoint id.
	RevertToCheckpoint(id int)

	// SetReturnData replaces the single-writer return-data buffer with the
	// most recent sub-call's output.
	SetReturnData(data []byte)

	// ReturnData returns the current contents of the return-data buffer
	// (many-reader: any subsequent ReturnDataSize/Copy).
	ReturnData() []byte

	// BlockContext returns the current block environment.
	BlockContext() BlockContext

	// TxContext returns the current transaction environment.
	TxContext() TxContext
}
