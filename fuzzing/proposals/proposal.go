package proposals

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/relayfuzz/contracts"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
)

// Call describes a single call of a proposal: a target, the native value sent with the call and its call data.
// A Call is immutable: its constructor and accessors copy their values.
type Call struct {
	target   common.Address
	value    *big.Int
	callData []byte
}

// NewCall returns a new Call. A nil value is treated as zero.
func NewCall(target common.Address, value *big.Int, callData []byte) Call {
	if value == nil {
		value = new(big.Int)
	}
	return Call{
		target:   target,
		value:    new(big.Int).Set(value),
		callData: common.CopyBytes(callData),
	}
}

// Target returns the address the call is made to.
func (c Call) Target() common.Address {
	return c.target
}

// Value returns the native value sent with the call.
func (c Call) Value() *big.Int {
	if c.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(c.value)
}

// CallData returns the call data.
func (c Call) CallData() []byte {
	if c.callData == nil {
		return []byte{}
	}
	return common.CopyBytes(c.callData)
}

// String returns a human readable representation of the call.
func (c Call) String() string {
	return fmt.Sprintf("%v{value: %v, data: %v}", c.target.Hex(), c.Value(), hexutil.Encode(c.CallData()))
}

// Proposal describes a batch of calls to execute on a remote chain through its proposal executor.
type Proposal struct {
	// DestinationChain describes the name of the chain the proposal is executed on.
	DestinationChain string

	// DestinationContract describes the string form of the executor address on the destination chain.
	DestinationContract string

	// Value describes the native value delivered alongside the batch. The executor on the destination chain must hold
	// it before the proposal is relayed.
	Value *big.Int

	// Calls describes the calls of the proposal, executed in order.
	Calls []Call
}

// NewProposal returns a proposal executing calls through the executor of the destination chain. Its value is the
// sum of the call values.
func NewProposal(destinationChain string, executor common.Address, calls []Call) *Proposal {
	proposal := &Proposal{
		DestinationChain:    destinationChain,
		DestinationContract: executor.Hex(),
		Calls:               append([]Call(nil), calls...),
	}
	proposal.Value = proposal.TotalCallValue()
	return proposal
}

// TotalCallValue returns the sum of the values of every call, the native value the executor needs to hold to
// execute the proposal.
func (p *Proposal) TotalCallValue() *big.Int {
	total := new(big.Int)
	for _, call := range p.Calls {
		total.Add(total, call.Value())
	}
	return total
}

// ToInterchainCall converts the proposal into its ABI representation, as submitted to the proposal sender. Relay gas
// is never paid, the value of the proposal is funded on the destination chain instead.
func (p *Proposal) ToInterchainCall() contracts.InterchainCall {
	calls := make([]contracts.Call, len(p.Calls))
	for i, call := range p.Calls {
		calls[i] = contracts.Call{Target: call.Target(), Value: call.Value(), CallData: call.CallData()}
	}
	return contracts.InterchainCall{
		DestinationChain:    p.DestinationChain,
		DestinationContract: p.DestinationContract,
		Gas:                 new(big.Int),
		Calls:               calls,
	}
}

// Log returns a logging.LogBuffer describing the proposal.
func (p *Proposal) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append("proposal to ", colors.Bold, p.DestinationChain, colors.Reset, " executor ", p.DestinationContract,
		fmt.Sprintf(" (%d calls, total value %v)", len(p.Calls), p.TotalCallValue()))
	for i, call := range p.Calls {
		buffer.Append(fmt.Sprintf("\n\t%d) ", i+1), call.String())
	}
	return buffer
}

// String returns a human readable representation of the proposal.
func (p *Proposal) String() string {
	return strings.TrimSpace(p.Log().String())
}
