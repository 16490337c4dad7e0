package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/relayfuzz/chain"
	"github.com/pkg/errors"
)

// Executable implements the destination side of the gateway protocol shared by contracts which receive cross-chain
// messages: execute and executeWithToken validate the command against the gateway before handing the message over.
type Executable struct {
	// gateway is the address of the gateway approving incoming commands.
	gateway common.Address
}

// ExecutableHandler receives cross-chain messages validated by an Executable.
type ExecutableHandler interface {
	// OnExecute handles a validated execute call.
	OnExecute(ctx *chain.CallContext, sourceChain string, sourceAddress string, payload []byte) error

	// OnExecuteWithToken handles a validated executeWithToken call, after the tokens were minted to the contract.
	OnExecuteWithToken(ctx *chain.CallContext, sourceChain string, sourceAddress string, payload []byte, symbol string, amount *big.Int) error
}

// Gateway returns the address of the gateway.
func (e Executable) Gateway() common.Address {
	return e.gateway
}

// runExecutable handles the methods of the executable interface. Returns handled as false if the call data does not
// target one of them.
func (e Executable) runExecutable(ctx *chain.CallContext, call *methodCall, handler ExecutableHandler) (ret []byte, handled bool, err error) {
	args := call.args
	switch call.method.Name {
	case "gateway":
		ret, err = call.method.Outputs.Pack(e.gateway)
		return ret, true, err

	case "execute":
		commandID := common.Hash(args[0].([32]byte))
		sourceChain, sourceAddress, payload := args[1].(string), args[2].(string), args[3].([]byte)
		input, err := GatewayABI.Pack("validateContractCall", commandID, sourceChain, sourceAddress, crypto.Keccak256Hash(payload))
		if err != nil {
			return nil, true, errors.WithStack(err)
		}
		if err = e.validate(ctx, input); err != nil {
			return nil, true, err
		}
		return nil, true, handler.OnExecute(ctx, sourceChain, sourceAddress, payload)

	case "executeWithToken":
		commandID := common.Hash(args[0].([32]byte))
		sourceChain, sourceAddress, payload := args[1].(string), args[2].(string), args[3].([]byte)
		symbol, amount := args[4].(string), args[5].(*big.Int)
		input, err := GatewayABI.Pack("validateContractCallAndMint", commandID, sourceChain, sourceAddress, crypto.Keccak256Hash(payload), symbol, amount)
		if err != nil {
			return nil, true, errors.WithStack(err)
		}
		if err = e.validate(ctx, input); err != nil {
			return nil, true, err
		}
		return nil, true, handler.OnExecuteWithToken(ctx, sourceChain, sourceAddress, payload, symbol, amount)
	}
	return nil, false, nil
}

// validate calls the gateway with the provided validation call data, reverting with NotApprovedByGateway if the
// command is not approved.
func (e Executable) validate(ctx *chain.CallContext, input []byte) error {
	ret, err := ctx.Call(e.gateway, new(big.Int), input)
	if err != nil {
		return bubbleRevert(err)
	}
	method := GatewayABI.Methods["validateContractCall"]
	values, err := method.Outputs.Unpack(ret)
	if err != nil || len(values) != 1 {
		return chain.NewRevertErrorWithData(nil)
	}
	if valid, _ := values[0].(bool); !valid {
		return chain.NewRevertError(ExecutableABI, "NotApprovedByGateway")
	}
	return nil
}

// bubbleRevert forwards the revert data of a failed inner call, as Solidity does for failed high level calls.
func bubbleRevert(err error) error {
	var revertErr *chain.RevertError
	if errors.As(err, &revertErr) {
		return chain.NewRevertErrorWithData(revertErr.Data())
	}
	return err
}
