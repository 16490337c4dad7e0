package chain

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/relayfuzz/chain/state"
	"github.com/crytic/relayfuzz/chain/types"
)

// NativeContract describes a contract implemented in Go which can be deployed to a TestChain. Native contracts keep
// all mutable data in their account storage (through CallContext.Storage) so that reverted calls are unwound along
// with the rest of the world state. Struct fields of a NativeContract must only hold immutable values.
type NativeContract interface {
	// Name returns the contract name, used in call traces.
	Name() string

	// ABI returns the ABI the contract speaks, used to resolve method names and custom errors.
	ABI() *abi.ABI

	// Run executes a message call against the contract, returning the ABI encoded return data or an error. A
	// *RevertError aborts the call with the given revert data.
	Run(ctx *CallContext) ([]byte, error)
}

// ContractInitializer describes a NativeContract which executes constructor logic when deployed.
type ContractInitializer interface {
	// Initialize executes the constructor of the contract. The CallContext caller is the deployer.
	Initialize(ctx *CallContext) error
}

// CallContext describes the environment of a single message call into a NativeContract.
type CallContext struct {
	// chain refers to the TestChain executing the call.
	chain *TestChain

	// frame refers to the call frame recording this call.
	frame *types.CallFrame

	// depth describes the call depth, starting at zero for the transaction itself.
	depth int

	// Caller describes the address which made this call (msg.sender).
	Caller common.Address

	// Origin describes the sender of the transaction (tx.origin).
	Origin common.Address

	// Address describes the address of the contract being executed (address(this)).
	Address common.Address

	// Value describes the native value sent with the call (msg.value).
	Value *big.Int

	// Input describes the call data (msg.data).
	Input []byte
}

// Chain returns the TestChain executing the call.
func (c *CallContext) Chain() *TestChain {
	return c.chain
}

// Storage returns the storage of the contract being executed.
func (c *CallContext) Storage() *state.ContractStorage {
	return state.NewContractStorage(c.chain.state, c.Address)
}

// Balance returns the native balance of the given address.
func (c *CallContext) Balance(address common.Address) *big.Int {
	return c.chain.state.GetBalance(address).ToBig()
}

// IsContract indicates whether the given address holds a contract.
func (c *CallContext) IsContract(address common.Address) bool {
	return len(c.chain.state.GetCode(address)) > 0
}

// Call performs a message call from the executing contract to the provided address, transferring value. State
// changes made by a failed call are reverted. Returns the return data, or an error (typically a *RevertError) if
// the call failed.
func (c *CallContext) Call(to common.Address, value *big.Int, input []byte) ([]byte, error) {
	_, ret, err := c.chain.call(c.frame, c.Address, c.Origin, to, value, input, c.depth+1)
	return ret, err
}

// EmitLog emits a log from the executing contract.
func (c *CallContext) EmitLog(topics []common.Hash, data []byte) {
	c.chain.state.AddLog(&gethTypes.Log{
		Address: c.Address,
		Topics:  append([]common.Hash(nil), topics...),
		Data:    common.CopyBytes(data),
	})
}

// EmitEvent ABI encodes and emits the named event of the provided ABI. Indexed arguments must be provided as topics,
// already encoded, and non-indexed arguments as values, in declaration order.
func (c *CallContext) EmitEvent(contractABI *abi.ABI, eventName string, indexedTopics []common.Hash, values ...any) error {
	event, ok := contractABI.Events[eventName]
	if !ok {
		return NewRevertErrorWithReason("unknown event " + eventName)
	}
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return err
	}
	c.EmitLog(append([]common.Hash{event.ID}, indexedTopics...), data)
	return nil
}
