package contracts

import (
	"bytes"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/state"
)

// Storage layout of PayloadReceiverMock.
var (
	receiverSlotLastPayload = state.SlotIndex(0) // bytes
	receiverSlotLastValue   = state.SlotIndex(1) // uint256
)

// PayloadReceiverMock records the call data and value of the last call it received through its fallback.
type PayloadReceiverMock struct{}

// NewPayloadReceiverMock returns a new PayloadReceiverMock.
func NewPayloadReceiverMock() *PayloadReceiverMock {
	return &PayloadReceiverMock{}
}

// Name returns the contract name.
func (r *PayloadReceiverMock) Name() string {
	return "PayloadReceiverMock"
}

// ABI returns the receiver ABI.
func (r *PayloadReceiverMock) ABI() *abi.ABI {
	return PayloadReceiverMockABI
}

// Run executes a call against the receiver. Calls matching the lastPayload() or lastValue() getters exactly are
// served as views, any other call is recorded.
func (r *PayloadReceiverMock) Run(ctx *chain.CallContext) ([]byte, error) {
	storage := ctx.Storage()
	for _, name := range []string{"lastPayload", "lastValue"} {
		method := PayloadReceiverMockABI.Methods[name]
		if !bytes.Equal(ctx.Input, method.ID) {
			continue
		}
		if err := rejectValue(ctx, &method); err != nil {
			return nil, err
		}
		if name == "lastPayload" {
			return method.Outputs.Pack(storage.GetBytes(receiverSlotLastPayload))
		}
		return method.Outputs.Pack(storage.GetUint256(receiverSlotLastValue).ToBig())
	}

	value, err := toUint256(ctx.Value)
	if err != nil {
		return nil, err
	}
	storage.SetBytes(receiverSlotLastPayload, ctx.Input)
	storage.SetUint256(receiverSlotLastValue, value)
	return nil, nil
}
