package types

import (
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
)

// MessageResults represents metadata obtained from the execution of a CallMessage in a Block.
type MessageResults struct {
	// PostStateRoot refers to the state root hash after the execution of this transaction.
	PostStateRoot common.Hash

	// Receipt represents the transaction receipt, including every log emitted by the transaction in emission order.
	// Logs of a failed transaction are discarded.
	Receipt *gethTypes.Receipt

	// ReturnData describes the data returned by the top level call, or the revert data if it failed.
	ReturnData []byte

	// ExecutionError describes the error the top level call failed with, or nil if it succeeded.
	ExecutionError error

	// Trace describes the call frames executed by the transaction.
	Trace *CallFrame

	// AdditionalResults represents results of arbitrary types which can be stored by any part of the application,
	// such as the relay recording the deliveries a transaction triggered.
	AdditionalResults map[string]any
}

// Succeeded indicates whether the transaction executed successfully.
func (m *MessageResults) Succeeded() bool {
	return m.Receipt != nil && m.Receipt.Status == gethTypes.ReceiptStatusSuccessful
}

// Logs returns the logs emitted by the transaction.
func (m *MessageResults) Logs() []*gethTypes.Log {
	if m.Receipt == nil {
		return nil
	}
	return m.Receipt.Logs
}
