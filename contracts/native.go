package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/state"
	"github.com/holiman/uint256"
)

// methodCall describes a decoded call to an ABI method of a native contract.
type methodCall struct {
	method *abi.Method
	args   []any
}

// decodeMethodCall resolves the method targeted by the call data and unpacks its arguments. Returns nil without an
// error if the selector does not match any method, so callers can fall back. Malformed arguments revert.
func decodeMethodCall(contractABI *abi.ABI, input []byte) (*methodCall, error) {
	if len(input) < 4 {
		return nil, nil
	}
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return nil, nil
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, chain.NewRevertErrorWithData(nil)
	}
	return &methodCall{method: method, args: args}, nil
}

// rejectValue reverts non-payable methods which received native value.
func rejectValue(ctx *chain.CallContext, method *abi.Method) error {
	if !method.IsPayable() && ctx.Value.Sign() > 0 {
		return chain.NewRevertErrorWithData(nil)
	}
	return nil
}

// stringTopic returns the topic of an indexed string event argument.
func stringTopic(value string) common.Hash {
	return crypto.Keccak256Hash([]byte(value))
}

// addressTopic returns the topic of an indexed address event argument.
func addressTopic(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

// nestedMappingSlot returns the storage key of mapping[chainName][address] for a mapping(string => mapping(address => T))
// declared at slot.
func nestedMappingSlot(chainName string, address common.Address, slot common.Hash) common.Hash {
	return state.AddressMappingSlot(address, state.StringMappingSlot(chainName, slot))
}

// parseAddressString parses the hex string form of an address, as carried in cross-chain messages. Reverts with
// InvalidAddressString if the string is not a 20 byte hex value.
func parseAddressString(contractABI *abi.ABI, value string) (common.Address, error) {
	decoded, err := hexutil.Decode(value)
	if err != nil || len(decoded) != common.AddressLength {
		return common.Address{}, chain.NewRevertError(contractABI, "InvalidAddressString")
	}
	return common.BytesToAddress(decoded), nil
}

// toUint256 converts an ABI decoded integer into a uint256, reverting on overflow.
func toUint256(value *big.Int) (*uint256.Int, error) {
	converted, overflow := uint256.FromBig(value)
	if overflow {
		return nil, chain.NewRevertErrorWithData(nil)
	}
	return converted, nil
}
