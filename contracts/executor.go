package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/state"
	"github.com/pkg/errors"
)

// Storage layout of InterchainProposalExecutor.
var (
	executorSlotOwner              = state.SlotIndex(0) // address
	executorSlotWhitelistedCallers = state.SlotIndex(1) // mapping(string => mapping(address => bool))
	executorSlotWhitelistedSenders = state.SlotIndex(2) // mapping(string => mapping(address => bool))
)

// ownableUnauthorizedReason is the revert reason of owner-only methods called by another account.
const ownableUnauthorizedReason = "Ownable: caller is not the owner"

// InterchainProposalExecutor executes proposals relayed from whitelisted senders on remote chains, made by
// whitelisted callers. Each call of a proposal is forwarded with its value, funded from the executor's balance.
type InterchainProposalExecutor struct {
	Executable
	owner common.Address
}

// NewInterchainProposalExecutor returns an executor validating commands against the provided gateway and owned by
// owner.
func NewInterchainProposalExecutor(gateway common.Address, owner common.Address) *InterchainProposalExecutor {
	return &InterchainProposalExecutor{Executable: Executable{gateway: gateway}, owner: owner}
}

// Name returns the contract name.
func (e *InterchainProposalExecutor) Name() string {
	return "InterchainProposalExecutor"
}

// ABI returns the executor ABI.
func (e *InterchainProposalExecutor) ABI() *abi.ABI {
	return InterchainProposalExecutorABI
}

// Initialize sets the owner of the executor.
func (e *InterchainProposalExecutor) Initialize(ctx *chain.CallContext) error {
	ctx.Storage().SetAddress(executorSlotOwner, e.owner)
	return nil
}

// Run executes a call against the executor.
func (e *InterchainProposalExecutor) Run(ctx *chain.CallContext) ([]byte, error) {
	// Plain value transfers fund forwarded calls
	if len(ctx.Input) == 0 {
		return nil, nil
	}

	call, err := decodeMethodCall(InterchainProposalExecutorABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, chain.NewRevertErrorWithData(nil)
	}
	if err = rejectValue(ctx, call.method); err != nil {
		return nil, err
	}

	if ret, handled, err := e.runExecutable(ctx, call, e); handled {
		return ret, err
	}

	storage := ctx.Storage()
	args := call.args
	switch call.method.Name {
	case "owner":
		return call.method.Outputs.Pack(storage.GetAddress(executorSlotOwner))

	case "setWhitelistedProposalCaller", "setWhitelistedProposalSender":
		if ctx.Caller != storage.GetAddress(executorSlotOwner) {
			return nil, chain.NewRevertErrorWithReason(ownableUnauthorizedReason)
		}
		sourceChain, account, whitelisted := args[0].(string), args[1].(common.Address), args[2].(bool)
		slot, eventName := executorSlotWhitelistedCallers, "WhitelistedProposalCallerSet"
		if call.method.Name == "setWhitelistedProposalSender" {
			slot, eventName = executorSlotWhitelistedSenders, "WhitelistedProposalSenderSet"
		}
		storage.SetBool(nestedMappingSlot(sourceChain, account, slot), whitelisted)
		return nil, ctx.EmitEvent(InterchainProposalExecutorABI, eventName, []common.Hash{stringTopic(sourceChain), addressTopic(account)}, whitelisted)

	case "whitelistedCallers":
		return call.method.Outputs.Pack(storage.GetBool(nestedMappingSlot(args[0].(string), args[1].(common.Address), executorSlotWhitelistedCallers)))

	case "whitelistedSenders":
		return call.method.Outputs.Pack(storage.GetBool(nestedMappingSlot(args[0].(string), args[1].(common.Address), executorSlotWhitelistedSenders)))
	}
	return nil, chain.NewRevertErrorWithData(nil)
}

// OnExecute executes a proposal relayed from a whitelisted sender and made by a whitelisted caller.
func (e *InterchainProposalExecutor) OnExecute(ctx *chain.CallContext, sourceChain string, sourceAddress string, payload []byte) error {
	storage := ctx.Storage()

	sender, err := parseAddressString(InterchainProposalExecutorABI, sourceAddress)
	if err != nil {
		return err
	}
	if !storage.GetBool(nestedMappingSlot(sourceChain, sender, executorSlotWhitelistedSenders)) {
		return chain.NewRevertError(InterchainProposalExecutorABI, "NotWhitelistedSourceAddress")
	}

	caller, calls, err := DecodeProposalPayload(payload)
	if err != nil {
		return chain.NewRevertErrorWithData(nil)
	}
	if !storage.GetBool(nestedMappingSlot(sourceChain, caller, executorSlotWhitelistedCallers)) {
		return chain.NewRevertError(InterchainProposalExecutorABI, "NotWhitelistedCaller")
	}

	for _, call := range calls {
		if _, err = ctx.Call(call.Target, call.Value, call.CallData); err != nil {
			var revertErr *chain.RevertError
			if !errors.As(err, &revertErr) {
				return err
			}
			if len(revertErr.Data()) > 0 {
				return chain.NewRevertErrorWithData(revertErr.Data())
			}
			return chain.NewRevertError(InterchainProposalExecutorABI, "ProposalExecuteFailed")
		}
	}

	encoded, err := abi.Arguments{{Type: stringType}, {Type: stringType}, {Type: addressType}, {Type: bytesType}}.Pack(sourceChain, sourceAddress, caller, payload)
	if err != nil {
		return errors.WithStack(err)
	}
	return ctx.EmitEvent(InterchainProposalExecutorABI, "ProposalExecuted", []common.Hash{crypto.Keccak256Hash(encoded)})
}

// OnExecuteWithToken accepts minted tokens without executing anything.
func (e *InterchainProposalExecutor) OnExecuteWithToken(ctx *chain.CallContext, sourceChain string, sourceAddress string, payload []byte, symbol string, amount *big.Int) error {
	return nil
}
