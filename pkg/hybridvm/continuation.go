package hybridvm

import (
	"github.com/hybridvm/hybridvm/pkg/host"
	"github.com/hybridvm/hybridvm/pkg/riscv"
	"github.com/hybridvm/hybridvm/pkg/syscall"
)

// Continuation is a RISC-V machine paused at a Call/StaticCall/Create
// ecall, waiting for the child frame it requested to finish. The caller
// runs the child (by recursively calling Dispatcher.RunFrame, or via its
// own external driver) and feeds the result back through ResumeCall or
// ResumeCreate; the
// parent's register state, memory, and pending reservation set are
// untouched across the suspension (spec.md §4.2 "Suspension").
type Continuation struct {
	dispatcher *Dispatcher
	cpu        *riscv.CPU
	bridge     *syscall.Bridge
	meter      *gasMeter

	parentFrame host.Frame
	createFrame *host.Frame // non-nil iff the paused machine is running CREATE init-code
}

// ResumeCall feeds a completed Call/StaticCall child's outcome back to the
// paused parent: the child's return data is copied into the host's
// single-writer return-data buffer (so a subsequent ReturnDataCopy syscall
// can read it) and unspent gas is refunded, then the parent resumes
// exactly where its ecall left off (spec.md §4.3 "Sub-frame re-entry").
func (c *Continuation) ResumeCall(h host.Host, outcome host.CallOutcome) (Result, error) {
	h.SetReturnData(outcome.ReturnData)
	c.meter.Refund(outcome.GasLeft)
	result := c.dispatcher.drive(c.cpu, c.bridge, c.meter)
	if result.cont != nil {
		result.cont.parentFrame = c.parentFrame
		result.cont.createFrame = c.createFrame
	}
	return c.dispatcher.finish(c.parentFrame, h, c.createFrame, result), nil
}

// ResumeCreate feeds a completed CREATE child's outcome back to the paused
// parent. On success the new contract's address is recorded so a later
// ReturnCreateAddress syscall can report it; the return-data buffer only
// receives bytes on failure, matching EVM CREATE's convention that a
// successful creation does not populate return-data.
func (c *Continuation) ResumeCreate(h host.Host, outcome host.CreateOutcome) (Result, error) {
	if outcome.Success {
		c.bridge.NoteCreatedAddress(outcome.Address)
		h.SetReturnData(nil)
	} else {
		h.SetReturnData(outcome.ReturnData)
	}
	c.meter.Refund(outcome.GasLeft)
	result := c.dispatcher.drive(c.cpu, c.bridge, c.meter)
	if result.cont != nil {
		result.cont.parentFrame = c.parentFrame
		result.cont.createFrame = c.createFrame
	}
	return c.dispatcher.finish(c.parentFrame, h, c.createFrame, result), nil
}
