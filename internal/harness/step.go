package harness

import (
	"fmt"

	"github.com/roach88/blocksync/internal/editor"
	"github.com/roach88/blocksync/internal/engine"
	"github.com/roach88/blocksync/internal/ir"
)

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step is traced before it runs, so the dispatches and forwards it
// causes follow it in the trace.
func (h *Harness) executeFlow(flow []FlowStep) error {
	for i, step := range flow {
		h.result.AddTrace(EventStep, step.Do, stepArgs(step), h.clock.Next())

		ok, err := h.executeStep(step)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Do, err)
		}

		if step.Expect != nil && step.Expect.OK != ok {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: expected ok=%v, got ok=%v", i, step.Do, step.Expect.OK, ok))
		}

		h.logger.Debug("flow step completed",
			"step", i,
			"do", step.Do,
			"ok", ok,
			"pending_outgoing", h.root.sync.PendingOutgoing(),
		)
	}
	return nil
}

// executeStep performs one operation and reports whether it was accepted.
func (h *Harness) executeStep(step FlowStep) (bool, error) {
	s := h.store
	index := editor.AppendIndex
	if step.Index != nil {
		index = *step.Index
	}

	switch step.Do {
	case StepUpdateAttributes:
		return s.UpdateBlockAttributes(step.ClientIDs, step.Attributes), nil

	case StepSelect:
		end := *step.Offset
		if step.End != nil {
			end = *step.End
		}
		s.SelectionChange(step.ClientID, step.Attribute, *step.Offset, end)
		return true, nil

	case StepSelectBlock:
		pos := ir.CaretStart
		if step.Offset != nil {
			pos = *step.Offset
		}
		s.SelectBlock(step.ClientID, pos)
		return true, nil

	case StepInsertBlocks:
		return s.InsertBlocks(buildBlocks(step.Blocks), index, step.RootClientID, true, ir.CaretStart), nil

	case StepReceiveBlocks:
		return s.ReceiveBlocks(buildBlocks(step.Blocks)), nil

	case StepRemoveBlocks:
		return s.RemoveBlocks(step.ClientIDs, true), nil

	case StepMoveUp:
		return s.MoveBlocksUp(step.ClientIDs, step.RootClientID), nil

	case StepMoveDown:
		return s.MoveBlocksDown(step.ClientIDs, step.RootClientID), nil

	case StepMerge:
		return s.MergeBlocks(step.ClientIDs[0], step.ClientIDs[1]), nil

	case StepMergeAdjacent:
		return s.MergeAdjacent(step.ClientID, step.Forward), nil

	case StepSplit:
		return s.SplitBlock(step.ClientID, step.Attribute, *step.Offset, nil, editor.SplitIntentCaret), nil

	case StepMarkNotPersist:
		s.MarkNextChangeAsNotPersistent()
		return true, nil

	case StepMarkPersistent:
		s.MarkLastChangeAsPersistent()
		return true, nil

	case StepUndo, StepRedo, StepExternalChange, StepDetach, StepAttach:
		o, err := h.owner(step.ClientID)
		if err != nil {
			return false, err
		}
		switch step.Do {
		case StepUndo:
			return o.entity.Undo(), nil
		case StepRedo:
			return o.entity.Redo(), nil
		case StepExternalChange:
			o.entity.OnChange(buildBlocks(step.Blocks), engine.Meta{Seq: o.entity.Stamp()})
			return true, nil
		case StepDetach:
			o.sync.Detach()
			return true, nil
		default:
			o.sync.Attach()
			return true, nil
		}
	}

	return false, fmt.Errorf("unknown operation %q", step.Do)
}

// owner finds the owner attached at clientID; "" is the root.
func (h *Harness) owner(clientID string) (*owner, error) {
	if clientID == "" {
		return h.root, nil
	}
	o, ok := h.nested[clientID]
	if !ok {
		return nil, fmt.Errorf("no nested owner attached at %q", clientID)
	}
	return o, nil
}

// stepArgs records the fields a step set.
func stepArgs(step FlowStep) ir.Object {
	args := ir.Object{}
	if step.ClientID != "" {
		args["client_id"] = ir.String(step.ClientID)
	}
	if len(step.ClientIDs) > 0 {
		args["client_ids"] = stringArray(step.ClientIDs)
	}
	if step.RootClientID != "" {
		args["root_client_id"] = ir.String(step.RootClientID)
	}
	if step.Index != nil {
		args["index"] = ir.Int(*step.Index)
	}
	if step.Attribute != "" {
		args["attribute"] = ir.String(step.Attribute)
	}
	if step.Offset != nil {
		args["offset"] = ir.Int(*step.Offset)
	}
	if step.End != nil {
		args["end"] = ir.Int(*step.End)
	}
	if step.Attributes != nil {
		args["attributes"] = step.Attributes
	}
	if step.Blocks != nil {
		args["blocks"] = ir.BlocksArray(buildBlocks(step.Blocks))
	}
	if step.Forward {
		args["forward"] = ir.Bool(true)
	}
	return args
}
