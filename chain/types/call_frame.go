package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
)

// CallFrame describes a single message call made while executing a transaction, along with every call it made in
// turn. The root frame of a transaction represents the transaction itself.
type CallFrame struct {
	// SenderAddress refers to the address which produced this call.
	SenderAddress common.Address

	// ToAddress refers to the address which was called.
	ToAddress common.Address

	// ToContractName refers to the name of the contract deployed at ToAddress, or the empty string if the address is
	// not a contract.
	ToContractName string

	// MethodName refers to the name of the ABI method which was called, if it could be resolved.
	MethodName string

	// CallValue describes the native value sent with the call.
	CallValue *big.Int

	// InputData describes the call data provided to the call.
	InputData []byte

	// ReturnData describes the data returned by the call, which is the revert data if the call failed.
	ReturnData []byte

	// ReturnError describes the error the call failed with, or nil if it succeeded.
	ReturnError error

	// RevertReason describes the decoded revert reason, if the call reverted with one.
	RevertReason string

	// ChildCallFrames describes the calls made by this frame, in execution order.
	ChildCallFrames []*CallFrame

	// ParentCallFrame refers to the frame which made this call, or nil if this is the root frame.
	ParentCallFrame *CallFrame
}

// IsContractCall indicates whether the callee of this frame was a contract.
func (f *CallFrame) IsContractCall() bool {
	return f.ToContractName != ""
}

// Reverted indicates whether this frame failed.
func (f *CallFrame) Reverted() bool {
	return f.ReturnError != nil
}

// Log returns a LogBuffer containing a colorized, indented representation of the call frame and its children.
func (f *CallFrame) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	f.appendToBuffer(buffer, 0)
	return buffer
}

// String returns the non-colorized representation of the call frame and its children.
func (f *CallFrame) String() string {
	return f.Log().String()
}

// appendToBuffer writes this frame and its children to the provided buffer at the given depth.
func (f *CallFrame) appendToBuffer(buffer *logging.LogBuffer, depth int) {
	indent := strings.Repeat("\t", depth)

	callee := f.ToAddress.String()
	if f.IsContractCall() {
		callee = fmt.Sprintf("%s(%s)", f.ToContractName, f.ToAddress.String())
	}
	method := f.MethodName
	if method == "" {
		if len(f.InputData) == 0 {
			method = "<value transfer>"
		} else {
			method = "<fallback>"
		}
	}

	value := "0"
	if f.CallValue != nil {
		value = f.CallValue.String()
	}
	buffer.Append(indent, "=> ", colors.Bold, callee, ".", method, colors.Reset,
		fmt.Sprintf(" [from: %s, value: %s, input: %d bytes]\n", f.SenderAddress.String(), value, len(f.InputData)))

	for _, child := range f.ChildCallFrames {
		child.appendToBuffer(buffer, depth+1)
	}

	if f.ReturnError != nil {
		reason := f.ReturnError.Error()
		if f.RevertReason != "" {
			reason = f.RevertReason
		}
		buffer.Append(indent, "\t", colors.RedBold, "[revert] ", reason, colors.Reset, "\n")
	} else {
		buffer.Append(indent, "\t", colors.GreenBold, "[return]", colors.Reset, fmt.Sprintf(" (%d bytes)\n", len(f.ReturnData)))
	}
}
