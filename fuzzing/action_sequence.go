package fuzzing

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/fuzzing/proposals"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
)

// ActionRecord describes a single action executed in a trial, with enough detail to reproduce it.
type ActionRecord struct {
	// Index describes the position of the action in its trial.
	Index int

	// Action describes the name of the executed action.
	Action string

	// SourceChain describes the name of the chain the proposal was submitted on.
	SourceChain string

	// DestinationChain describes the name of the chain the proposal was relayed to.
	DestinationChain string

	// Caller describes the account which submitted the proposal.
	Caller common.Address

	// Proposal describes the submitted proposal.
	Proposal *proposals.Proposal

	// CommandIDs describes the command ids assigned to the messages relayed by the action, in order.
	CommandIDs []common.Hash
}

// Log returns a logging.LogBuffer describing the action.
func (r *ActionRecord) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append(colors.Bold, r.Action, colors.Reset)
	if r.SourceChain != "" {
		buffer.Append(" from ", r.SourceChain, " to ", r.DestinationChain, " by ", r.Caller.Hex())
	}
	if len(r.CommandIDs) > 0 {
		buffer.Append(" (command ids:")
		for _, commandID := range r.CommandIDs {
			buffer.Append(" ", commandID.Big().String())
		}
		buffer.Append(")")
	}
	if r.Proposal != nil {
		buffer.Append("\n\t")
		buffer.Append(r.Proposal.Log().Args()...)
	}
	return buffer
}

// String returns a human readable representation of the action.
func (r *ActionRecord) String() string {
	return r.Log().String()
}

// ActionSequence describes the actions executed in a trial, in order.
type ActionSequence []*ActionRecord

// Log returns a logging.LogBuffer describing every action of the sequence.
func (s ActionSequence) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if len(s) == 0 {
		buffer.Append("<none>")
		return buffer
	}
	for i, record := range s {
		buffer.Append(fmt.Sprintf("%d) ", i+1))
		buffer.Append(record.Log().Args()...)
		buffer.Append("\n")
	}
	return buffer
}

// String returns a human readable representation of the sequence.
func (s ActionSequence) String() string {
	return s.Log().String()
}
