// Package gethhost adapts a go-ethereum StateDB and EVM to this module's
// host.Host and host.EVMInterpreter interfaces, grounded on the teacher's
// pkg/geth (NewGethBlockProcessor's statedb.Snapshot()/RevertToSnapshot and
// gethvm.NewEVM(blockCtx, statedb, config, gethvm.Config{}) usage). This is
// the only package in the module that imports go-ethereum's core/state and
// core/vm packages directly.
package gethhost

import (
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/hybridvm/hybridvm/pkg/host"
)

// StateHost implements host.Host against a live go-ethereum StateDB. One
// instance is shared across every frame of a single call tree (the
// checkpoint/commit/revert operations are what give each frame its own
// revertible slice of that shared state).
type StateHost struct {
	db    *state.StateDB
	block host.BlockContext
	tx    host.TxContext

	returnData []byte
}

// NewStateHost wraps statedb with the given block/transaction environment.
func NewStateHost(db *state.StateDB, block host.BlockContext, tx host.TxContext) *StateHost {
	return &StateHost{db: db, block: block, tx: tx}
}

func (h *StateHost) SLoad(addr host.Address, slot host.Hash) ([32]byte, bool) {
	_, slotWarm := h.db.SlotInAccessList(addr, slot)
	if !slotWarm {
		h.db.AddSlotToAccessList(addr, slot)
	}
	return h.db.GetState(addr, slot), !slotWarm
}

func (h *StateHost) SStore(addr host.Address, slot host.Hash, value [32]byte) bool {
	_, slotWarm := h.db.SlotInAccessList(addr, slot)
	if !slotWarm {
		h.db.AddSlotToAccessList(addr, slot)
	}
	h.db.SetState(addr, slot, value)
	return !slotWarm
}

func (h *StateHost) GetBalance(addr host.Address) *uint256.Int {
	return h.db.GetBalance(addr)
}

func (h *StateHost) GetCodeSize(addr host.Address) int {
	return h.db.GetCodeSize(addr)
}

func (h *StateHost) GetCode(addr host.Address) []byte {
	return h.db.GetCode(addr)
}

func (h *StateHost) Exists(addr host.Address) bool {
	return h.db.Exist(addr)
}

func (h *StateHost) Empty(addr host.Address) bool {
	return h.db.Empty(addr)
}

func (h *StateHost) AddressInAccessList(addr host.Address) bool {
	wasWarm := h.db.AddressInAccessList(addr)
	if !wasWarm {
		h.db.AddAddressToAccessList(addr)
	}
	return wasWarm
}

func (h *StateHost) AddLog(addr host.Address, topics []host.Hash, data []byte) {
	gethTopics := make([]gethcommon.Hash, len(topics))
	copy(gethTopics, topics)
	h.db.AddLog(&gethtypes.Log{
		Address: addr,
		Topics:  gethTopics,
		Data:    data,
	})
}

func (h *StateHost) CreateAddress(caller host.Address, nonce uint64) host.Address {
	return gethcrypto.CreateAddress(caller, nonce)
}

func (h *StateHost) Nonce(addr host.Address) uint64 {
	return h.db.GetNonce(addr)
}

func (h *StateHost) SetCode(addr host.Address, code []byte) {
	if !h.db.Exist(addr) {
		h.db.CreateAccount(addr)
	}
	h.db.SetNonce(addr, h.db.GetNonce(addr)+1, tracing.NonceChangeContractCreator)
	h.db.SetCode(addr, code, tracing.CodeChangeUnspecified)
}

func (h *StateHost) Transfer(from, to host.Address, value *uint256.Int) {
	if value == nil || value.IsZero() {
		return
	}
	h.db.SubBalance(from, value, tracing.BalanceChangeTransfer)
	h.db.AddBalance(to, value, tracing.BalanceChangeTransfer)
}

func (h *StateHost) Checkpoint() int {
	return h.db.Snapshot()
}

func (h *StateHost) Commit(int) {
	// go-ethereum's StateDB needs no explicit discard of a snapshot id: it
	// is only ever consumed by a later RevertToSnapshot call.
}

func (h *StateHost) RevertToCheckpoint(id int) {
	h.db.RevertToSnapshot(id)
}

func (h *StateHost) SetReturnData(data []byte) {
	h.returnData = data
}

func (h *StateHost) ReturnData() []byte {
	return h.returnData
}

func (h *StateHost) BlockContext() host.BlockContext { return h.block }
func (h *StateHost) TxContext() host.TxContext       { return h.tx }
