package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/state"
	"github.com/holiman/uint256"
)

var (
	// prefixContractCallApproved prefixes the keys of plain contract call approvals.
	prefixContractCallApproved = crypto.Keccak256Hash([]byte("contract-call-approved"))

	// prefixContractCallApprovedWithMint prefixes the keys of contract call approvals with minting.
	prefixContractCallApprovedWithMint = crypto.Keccak256Hash([]byte("contract-call-approved-with-mint"))
)

// Storage layout of MockGateway.
var (
	gatewaySlotCommandExecuted = state.SlotIndex(0) // mapping(bytes32 => bool)
	gatewaySlotApprovals       = state.SlotIndex(1) // mapping(bytes32 => bool)
	gatewaySlotTokenBalances   = state.SlotIndex(2) // mapping(string => mapping(address => uint256))
	gatewaySlotOperator        = state.SlotIndex(3) // address
)

// MockGateway is a native cross-chain messaging gateway. It emits ContractCall events for outgoing messages and
// keeps track of approved incoming contract calls, which destination contracts consume through
// validateContractCall. Approvals are not authenticated: any account may approve a command once. Tokens are plain
// balances held by the gateway, minted by its operator (the deployer) or on validated calls with mint.
type MockGateway struct{}

// NewMockGateway returns a new MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Name returns the contract name.
func (g *MockGateway) Name() string {
	return "MockGateway"
}

// ABI returns the gateway ABI.
func (g *MockGateway) ABI() *abi.ABI {
	return GatewayABI
}

// Initialize records the deployer as the gateway operator.
func (g *MockGateway) Initialize(ctx *chain.CallContext) error {
	ctx.Storage().SetAddress(gatewaySlotOperator, ctx.Caller)
	return nil
}

// Run executes a call against the gateway.
func (g *MockGateway) Run(ctx *chain.CallContext) ([]byte, error) {
	call, err := decodeMethodCall(GatewayABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, chain.NewRevertErrorWithData(nil)
	}
	if err = rejectValue(ctx, call.method); err != nil {
		return nil, err
	}

	storage := ctx.Storage()
	args := call.args
	switch call.method.Name {
	case "callContract":
		payload := args[2].([]byte)
		err = ctx.EmitEvent(GatewayABI, "ContractCall",
			[]common.Hash{addressTopic(ctx.Caller), crypto.Keccak256Hash(payload)},
			args[0].(string), args[1].(string), payload,
		)
		return nil, err

	case "callContractWithToken":
		payload, symbol, amount := args[2].([]byte), args[3].(string), args[4].(*big.Int)
		if err = g.burnToken(storage, symbol, ctx.Caller, amount); err != nil {
			return nil, err
		}
		err = ctx.EmitEvent(GatewayABI, "ContractCallWithToken",
			[]common.Hash{addressTopic(ctx.Caller), crypto.Keccak256Hash(payload)},
			args[0].(string), args[1].(string), payload, symbol, amount,
		)
		return nil, err

	case "approveContractCall":
		params, err := UnpackContractCallApprovalParams(args[0].([]byte))
		if err != nil {
			return nil, chain.NewRevertErrorWithData(nil)
		}
		commandID := common.Hash(args[1].([32]byte))
		if err = g.markCommandExecuted(storage, commandID); err != nil {
			return nil, err
		}
		key := contractCallApprovalKey(commandID, params.SourceChain, params.SourceAddress, params.ContractAddress, params.PayloadHash)
		storage.SetBool(state.MappingSlot(key.Bytes(), gatewaySlotApprovals), true)
		err = ctx.EmitEvent(GatewayABI, "ContractCallApproved",
			[]common.Hash{commandID, addressTopic(params.ContractAddress), params.PayloadHash},
			params.SourceChain, params.SourceAddress, params.SourceTxHash, params.SourceEventIndex,
		)
		return nil, err

	case "approveContractCallWithMint":
		params, err := UnpackContractCallWithMintApprovalParams(args[0].([]byte))
		if err != nil {
			return nil, chain.NewRevertErrorWithData(nil)
		}
		commandID := common.Hash(args[1].([32]byte))
		if err = g.markCommandExecuted(storage, commandID); err != nil {
			return nil, err
		}
		key := contractCallWithMintApprovalKey(commandID, params.SourceChain, params.SourceAddress, params.ContractAddress, params.PayloadHash, params.Symbol, params.Amount)
		storage.SetBool(state.MappingSlot(key.Bytes(), gatewaySlotApprovals), true)
		err = ctx.EmitEvent(GatewayABI, "ContractCallApprovedWithMint",
			[]common.Hash{commandID, addressTopic(params.ContractAddress), params.PayloadHash},
			params.SourceChain, params.SourceAddress, params.Symbol, params.Amount, params.SourceTxHash, params.SourceEventIndex,
		)
		return nil, err

	case "validateContractCall":
		commandID := common.Hash(args[0].([32]byte))
		key := contractCallApprovalKey(commandID, args[1].(string), args[2].(string), ctx.Caller, args[3].([32]byte))
		valid, err := g.consumeApproval(ctx, storage, key, commandID)
		if err != nil {
			return nil, err
		}
		return call.method.Outputs.Pack(valid)

	case "validateContractCallAndMint":
		commandID := common.Hash(args[0].([32]byte))
		symbol, amount := args[4].(string), args[5].(*big.Int)
		key := contractCallWithMintApprovalKey(commandID, args[1].(string), args[2].(string), ctx.Caller, args[3].([32]byte), symbol, amount)
		valid, err := g.consumeApproval(ctx, storage, key, commandID)
		if err != nil {
			return nil, err
		}
		if valid {
			if err = g.mintToken(storage, symbol, ctx.Caller, amount); err != nil {
				return nil, err
			}
		}
		return call.method.Outputs.Pack(valid)

	case "isCommandExecuted":
		commandID := common.Hash(args[0].([32]byte))
		return call.method.Outputs.Pack(storage.GetBool(state.MappingSlot(commandID.Bytes(), gatewaySlotCommandExecuted)))

	case "isContractCallApproved":
		key := contractCallApprovalKey(args[0].([32]byte), args[1].(string), args[2].(string), args[3].(common.Address), args[4].([32]byte))
		return call.method.Outputs.Pack(storage.GetBool(state.MappingSlot(key.Bytes(), gatewaySlotApprovals)))

	case "mintToken":
		if ctx.Caller != storage.GetAddress(gatewaySlotOperator) {
			return nil, chain.NewRevertError(GatewayABI, "NotOperator")
		}
		return nil, g.mintToken(storage, args[0].(string), args[1].(common.Address), args[2].(*big.Int))

	case "tokenBalance":
		balance := storage.GetUint256(nestedMappingSlot(args[0].(string), args[1].(common.Address), gatewaySlotTokenBalances))
		return call.method.Outputs.Pack(balance.ToBig())
	}
	return nil, chain.NewRevertErrorWithData(nil)
}

// markCommandExecuted marks a command as executed, reverting if it already was.
func (g *MockGateway) markCommandExecuted(storage *state.ContractStorage, commandID common.Hash) error {
	slot := state.MappingSlot(commandID.Bytes(), gatewaySlotCommandExecuted)
	if storage.GetBool(slot) {
		return chain.NewRevertError(GatewayABI, "AlreadyExecuted")
	}
	storage.SetBool(slot, true)
	return nil
}

// consumeApproval clears the approval with the given key if it exists, emitting Executed. Returns whether the
// approval existed.
func (g *MockGateway) consumeApproval(ctx *chain.CallContext, storage *state.ContractStorage, key common.Hash, commandID common.Hash) (bool, error) {
	slot := state.MappingSlot(key.Bytes(), gatewaySlotApprovals)
	if !storage.GetBool(slot) {
		return false, nil
	}
	storage.SetBool(slot, false)
	return true, ctx.EmitEvent(GatewayABI, "Executed", []common.Hash{commandID})
}

// mintToken credits the token balance of an account.
func (g *MockGateway) mintToken(storage *state.ContractStorage, symbol string, account common.Address, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	slot := nestedMappingSlot(symbol, account, gatewaySlotTokenBalances)
	balance, overflow := new(uint256.Int).AddOverflow(storage.GetUint256(slot), value)
	if overflow {
		return chain.NewRevertErrorWithData(nil)
	}
	storage.SetUint256(slot, balance)
	return nil
}

// burnToken debits the token balance of an account, reverting if it is insufficient.
func (g *MockGateway) burnToken(storage *state.ContractStorage, symbol string, account common.Address, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	slot := nestedMappingSlot(symbol, account, gatewaySlotTokenBalances)
	balance := storage.GetUint256(slot)
	if balance.Lt(value) {
		return chain.NewRevertError(GatewayABI, "InsufficientTokenBalance")
	}
	storage.SetUint256(slot, balance.Sub(balance, value))
	return nil
}

// contractCallApprovalKey returns the key of a plain contract call approval.
func contractCallApprovalKey(commandID common.Hash, sourceChain string, sourceAddress string, contractAddress common.Address, payloadHash common.Hash) common.Hash {
	encoded, err := abi.Arguments{
		{Type: bytes32Type}, {Type: bytes32Type}, {Type: stringType}, {Type: stringType}, {Type: addressType}, {Type: bytes32Type},
	}.Pack(prefixContractCallApproved, commandID, sourceChain, sourceAddress, contractAddress, payloadHash)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(encoded)
}

// contractCallWithMintApprovalKey returns the key of a contract call approval with minting.
func contractCallWithMintApprovalKey(commandID common.Hash, sourceChain string, sourceAddress string, contractAddress common.Address, payloadHash common.Hash, symbol string, amount *big.Int) common.Hash {
	encoded, err := abi.Arguments{
		{Type: bytes32Type}, {Type: bytes32Type}, {Type: stringType}, {Type: stringType}, {Type: addressType}, {Type: bytes32Type}, {Type: stringType}, {Type: uint256Type},
	}.Pack(prefixContractCallApprovedWithMint, commandID, sourceChain, sourceAddress, contractAddress, payloadHash, symbol, bigOrZero(amount))
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(encoded)
}
