package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain"
	"github.com/pkg/errors"
)

// InterchainProposalSender submits proposals to remote chains through the gateway. Each proposal is relayed as the
// payload abi.encode(msg.sender, calls) to the destination contract, typically an InterchainProposalExecutor.
type InterchainProposalSender struct {
	gateway    common.Address
	gasService common.Address
}

// NewInterchainProposalSender returns a sender using the provided gateway and gas service. A zero gas service
// address describes a deployment without gas payments, in which case proposals must not carry gas.
func NewInterchainProposalSender(gateway common.Address, gasService common.Address) *InterchainProposalSender {
	return &InterchainProposalSender{gateway: gateway, gasService: gasService}
}

// Name returns the contract name.
func (s *InterchainProposalSender) Name() string {
	return "InterchainProposalSender"
}

// ABI returns the sender ABI.
func (s *InterchainProposalSender) ABI() *abi.ABI {
	return InterchainProposalSenderABI
}

// Run executes a call against the sender.
func (s *InterchainProposalSender) Run(ctx *chain.CallContext) ([]byte, error) {
	call, err := decodeMethodCall(InterchainProposalSenderABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, chain.NewRevertErrorWithData(nil)
	}
	if err = rejectValue(ctx, call.method); err != nil {
		return nil, err
	}

	switch call.method.Name {
	case "gateway":
		return call.method.Outputs.Pack(s.gateway)

	case "gasService":
		return call.method.Outputs.Pack(s.gasService)

	case "sendProposals":
		interchainCalls, ok := abi.ConvertType(call.args[0], new([]InterchainCall)).(*[]InterchainCall)
		if !ok {
			return nil, chain.NewRevertErrorWithData(nil)
		}
		totalGas := new(big.Int)
		for _, interchainCall := range *interchainCalls {
			totalGas.Add(totalGas, interchainCall.Gas)
		}
		if totalGas.Cmp(ctx.Value) != 0 {
			return nil, chain.NewRevertError(InterchainProposalSenderABI, "InvalidFee")
		}
		for _, interchainCall := range *interchainCalls {
			if err = s.sendProposal(ctx, interchainCall); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case "sendProposal":
		calls, ok := abi.ConvertType(call.args[2], new([]Call)).(*[]Call)
		if !ok {
			return nil, chain.NewRevertErrorWithData(nil)
		}
		return nil, s.sendProposal(ctx, InterchainCall{
			DestinationChain:    call.args[0].(string),
			DestinationContract: call.args[1].(string),
			Gas:                 new(big.Int).Set(ctx.Value),
			Calls:               *calls,
		})
	}
	return nil, chain.NewRevertErrorWithData(nil)
}

// sendProposal pays for the gas of a single proposal, if any, and submits it to the gateway.
func (s *InterchainProposalSender) sendProposal(ctx *chain.CallContext, interchainCall InterchainCall) error {
	payload, err := EncodeProposalPayload(ctx.Caller, interchainCall.Calls)
	if err != nil {
		return errors.WithStack(err)
	}

	if interchainCall.Gas.Sign() > 0 {
		if !ctx.IsContract(s.gasService) {
			return chain.NewRevertError(InterchainProposalSenderABI, "InvalidGasService")
		}
		if _, err = ctx.Call(s.gasService, interchainCall.Gas, nil); err != nil {
			return bubbleRevert(err)
		}
	}

	input, err := GatewayABI.Pack("callContract", interchainCall.DestinationChain, interchainCall.DestinationContract, payload)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err = ctx.Call(s.gateway, new(big.Int), input); err != nil {
		return bubbleRevert(err)
	}
	return nil
}
