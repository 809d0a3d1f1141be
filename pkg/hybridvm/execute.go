package hybridvm

import "github.com/hybridvm/hybridvm/pkg/host"

// Execute drives a frame to a final outcome, recursively satisfying any
// NewFrame requests by constructing and running child frames in-process.
// This is the single-process convenience path; spec.md §5 notes an
// external driver may instead run many frames in parallel, each owning its
// own machine instance, and splice continuations back together itself --
// Execute is simply one such driver, kept here for tests and for callers
// that don't need cross-process parallelism.
func (d *Dispatcher) Execute(frame host.Frame, h host.Host) (Result, error) {
	result, err := d.RunFrame(frame, h)
	if err != nil {
		return result, err
	}
	for result.Kind == host.ResultNewFrame {
		child := childFrame(frame, result.NewFrame, h)
		if result.NewFrame.Kind == host.FrameCreate {
			child.Address = h.CreateAddress(frame.Address, h.Nonce(frame.Address))
		}

		checkpoint := h.Checkpoint()
		// Only RISC-V children need an explicit transfer here: an EVM child
		// is driven through host.EVMInterpreter (go-ethereum's vm.EVM),
		// which performs its own value transfer internally. Transferring
		// again here would double-spend the value for EVM sub-calls.
		if isRiscvTagged(child) && !child.Value.IsZero() {
			h.Transfer(frame.Address, child.Address, child.Value)
		}
		childResult, childErr := d.Execute(child, h)
		if childErr != nil {
			h.RevertToCheckpoint(checkpoint)
			return childResult, childErr
		}

		success := childResult.Kind == host.ResultCall && childResult.Call.Success ||
			childResult.Kind == host.ResultCreate && childResult.Create.Success
		if success {
			h.Commit(checkpoint)
		} else {
			h.RevertToCheckpoint(checkpoint)
		}

		cont := result.Continuation()
		switch childResult.Kind {
		case host.ResultCreate:
			result, err = cont.ResumeCreate(h, childResult.Create)
		default:
			result, err = cont.ResumeCall(h, childResult.Call)
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// childFrame builds the child Frame for a NewFrameInit, reading the
// target's code from the host (CALL/STATICCALL) or using the init-code
// payload itself as Code (CREATE, where Address is left for the caller to
// set).
func childFrame(parent host.Frame, item host.NewFrameInit, h host.Host) host.Frame {
	f := host.Frame{
		Kind:     item.Kind,
		Caller:   parent.Address,
		Value:    item.Value,
		Gas:      item.Gas,
		Depth:    parent.Depth + 1,
		IsStatic: parent.IsStatic || item.Kind == host.FrameStaticCall,
	}
	switch item.Kind {
	case host.FrameCreate:
		f.Code = item.Input
	default:
		f.Address = item.Target
		f.Code = h.GetCode(item.Target)
		f.Input = item.Input
	}
	return f
}

// isRiscvTagged reports whether a child frame's code (deployed code for
// CALL/STATICCALL, init-code payload for CREATE) carries the RiscvTag
// Dispatcher.RunFrame will route it by -- the same rule runCall/runCreate
// apply, duplicated here so Execute knows whether the external EVM
// collaborator already owns the child's value transfer.
func isRiscvTagged(f host.Frame) bool {
	return len(f.Code) > 0 && f.Code[0] == RiscvTag
}
