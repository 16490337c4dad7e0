package chain

import (
	"bytes"
	"fmt"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/pkg/errors"
)

// ErrMaxCallDepth is returned when a message call exceeds the maximum call depth.
var ErrMaxCallDepth = errors.New("max call depth exceeded")

// ErrNotAContract is returned when a read-only call targets an address without a contract.
var ErrNotAContract = errors.New("target address is not a contract")

// RevertError describes a message call which reverted, along with the data it reverted with. Native contracts return
// it to abort their execution and unwind their state changes.
type RevertError struct {
	// data describes the revert data, an ABI encoded error.
	data []byte

	// reason describes a human readable representation of the revert data.
	reason string
}

// NewRevertError creates a RevertError for the custom error with the given name in the provided ABI, encoding the
// provided arguments. Panics if the error is not defined or the arguments cannot be encoded.
func NewRevertError(contractABI *abi.ABI, errorName string, args ...any) *RevertError {
	abiError, ok := contractABI.Errors[errorName]
	if !ok {
		panic(fmt.Sprintf("error '%s' is not defined in the contract ABI", errorName))
	}
	packed, err := abiError.Inputs.Pack(args...)
	if err != nil {
		panic(err)
	}
	return &RevertError{
		data:   append(common.CopyBytes(abiError.ID[:4]), packed...),
		reason: errorName + "()",
	}
}

// revertReasonSelector is the selector of the Error(string) builtin revert reason.
var revertReasonSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// NewRevertErrorWithReason creates a RevertError carrying a string reason, as produced by Solidity's require(cond, msg).
func NewRevertErrorWithReason(reason string) *RevertError {
	stringType, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return &RevertError{
		data:   append(common.CopyBytes(revertReasonSelector), packed...),
		reason: reason,
	}
}

// NewRevertErrorWithData creates a RevertError with raw revert data, as produced when bubbling up the revert data of
// a failed inner call. An empty data slice describes a revert without a reason.
func NewRevertErrorWithData(data []byte) *RevertError {
	return &RevertError{data: common.CopyBytes(data)}
}

// Error returns the error message.
func (e *RevertError) Error() string {
	if e.reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.reason
}

// Data returns the revert data.
func (e *RevertError) Data() []byte {
	return common.CopyBytes(e.data)
}

// Reason returns the human readable revert reason, if known.
func (e *RevertError) Reason() string {
	return e.reason
}

// ExecutionRevertedError describes a transaction or read-only call which failed on a TestChain. It carries the revert
// reason and the call frames executed, so failures can be diagnosed.
type ExecutionRevertedError struct {
	// ChainName describes the name of the chain the execution failed on.
	ChainName string

	// TxHash describes the hash of the failed transaction, or the zero hash for read-only calls.
	TxHash common.Hash

	// Reason describes the decoded revert reason, if one could be determined.
	Reason string

	// ReturnData describes the revert data of the top level call.
	ReturnData []byte

	// Trace describes the call frames executed before the failure.
	Trace *types.CallFrame

	// Err describes the underlying error.
	Err error
}

// Error returns the error message.
func (e *ExecutionRevertedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("execution reverted on chain '%s': %s", e.ChainName, reason)
}

// Unwrap returns the underlying error.
func (e *ExecutionRevertedError) Unwrap() error {
	return e.Err
}

// decodeRevertReason attempts to produce a human readable reason from revert data, resolving custom errors against
// the provided ABIs. Returns the empty string if no reason could be determined.
func decodeRevertReason(data []byte, abis ...*abi.ABI) string {
	if len(data) < 4 {
		return ""
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	for _, contractABI := range abis {
		if contractABI == nil {
			continue
		}
		for name, abiError := range contractABI.Errors {
			if bytes.Equal(abiError.ID[:4], data[:4]) {
				return name + "()"
			}
		}
	}
	return ""
}
