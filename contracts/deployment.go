package contracts

import (
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/pkg/errors"
)

// Deployment describes the proposal relaying contracts deployed on a chain.
type Deployment struct {
	// Gateway describes the address of the MockGateway.
	Gateway common.Address

	// Sender describes the address of the InterchainProposalSender.
	Sender common.Address

	// Executor describes the address of the InterchainProposalExecutor.
	Executor common.Address
}

// Deploy deploys a gateway, a proposal sender without gas service and a proposal executor owned by the chain
// operator, all from the operator account.
func Deploy(testChain *chain.TestChain) (*Deployment, error) {
	operator := testChain.Operator()

	gateway, _, err := testChain.DeployContract(NewMockGateway(), operator)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deploy gateway on chain '%s'", testChain.Name())
	}
	sender, _, err := testChain.DeployContract(NewInterchainProposalSender(gateway, common.Address{}), operator)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deploy proposal sender on chain '%s'", testChain.Name())
	}
	executor, _, err := testChain.DeployContract(NewInterchainProposalExecutor(gateway, operator), operator)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deploy proposal executor on chain '%s'", testChain.Name())
	}
	return &Deployment{Gateway: gateway, Sender: sender, Executor: executor}, nil
}

// DeployReceivers deploys count PayloadReceiverMock contracts from the operator account.
func DeployReceivers(testChain *chain.TestChain, count int) ([]common.Address, error) {
	receivers := make([]common.Address, 0, count)
	for i := 0; i < count; i++ {
		receiver, _, err := testChain.DeployContract(NewPayloadReceiverMock(), testChain.Operator())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to deploy receiver %d on chain '%s'", i, testChain.Name())
		}
		receivers = append(receivers, receiver)
	}
	return receivers, nil
}

// SetWhitelistedProposalSender sets whether the executor accepts proposals relayed by sender from sourceChain.
func SetWhitelistedProposalSender(testChain *chain.TestChain, executor common.Address, sourceChain string, sender common.Address, whitelisted bool) error {
	return transact(testChain, testChain.Operator(), executor, nil, InterchainProposalExecutorABI, "setWhitelistedProposalSender", sourceChain, sender, whitelisted)
}

// SetWhitelistedProposalCaller sets whether the executor accepts proposals made by caller on sourceChain.
func SetWhitelistedProposalCaller(testChain *chain.TestChain, executor common.Address, sourceChain string, caller common.Address, whitelisted bool) error {
	return transact(testChain, testChain.Operator(), executor, nil, InterchainProposalExecutorABI, "setWhitelistedProposalCaller", sourceChain, caller, whitelisted)
}

// SendProposals submits proposals to the sender from the provided account, paying value for their gas. Returns the
// results of the submission, along with an error if it or its post-commit step failed.
func SendProposals(testChain *chain.TestChain, sender common.Address, from common.Address, value *big.Int, interchainCalls []InterchainCall) (*types.MessageResults, error) {
	input, err := InterchainProposalSenderABI.Pack("sendProposals", normalizeInterchainCalls(interchainCalls))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return testChain.SendTransaction(types.NewCallMessage(from, &sender, value, input))
}

// ReadReceiver returns the payload and value last recorded by a PayloadReceiverMock.
func ReadReceiver(testChain *chain.TestChain, receiver common.Address) ([]byte, *big.Int, error) {
	payload, err := view(testChain, receiver, PayloadReceiverMockABI, "lastPayload")
	if err != nil {
		return nil, nil, err
	}
	value, err := view(testChain, receiver, PayloadReceiverMockABI, "lastValue")
	if err != nil {
		return nil, nil, err
	}
	return payload.([]byte), value.(*big.Int), nil
}

// IsCommandExecuted returns whether the gateway executed the given command.
func IsCommandExecuted(testChain *chain.TestChain, gateway common.Address, commandID common.Hash) (bool, error) {
	executed, err := view(testChain, gateway, GatewayABI, "isCommandExecuted", commandID)
	if err != nil {
		return false, err
	}
	return executed.(bool), nil
}

// TokenBalance returns the gateway token balance of an account.
func TokenBalance(testChain *chain.TestChain, gateway common.Address, symbol string, account common.Address) (*big.Int, error) {
	balance, err := view(testChain, gateway, GatewayABI, "tokenBalance", symbol, account)
	if err != nil {
		return nil, err
	}
	return balance.(*big.Int), nil
}

// transact sends a transaction calling the given method.
func transact(testChain *chain.TestChain, from common.Address, to common.Address, value *big.Int, contractABI *abi.ABI, method string, args ...any) error {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = testChain.SendTransaction(types.NewCallMessage(from, &to, value, input))
	return err
}

// view calls a method returning a single value against the current state.
func view(testChain *chain.TestChain, to common.Address, contractABI *abi.ABI, method string, args ...any) (any, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ret, err := testChain.CallContract(testChain.Operator(), to, input)
	if err != nil {
		return nil, err
	}
	values, err := contractABI.Unpack(method, ret)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(values) != 1 {
		return nil, errors.Errorf("method '%s' returned %d values", method, len(values))
	}
	return values[0], nil
}

// normalizeInterchainCalls replaces nil fields so interchain calls can be ABI encoded.
func normalizeInterchainCalls(interchainCalls []InterchainCall) []InterchainCall {
	normalized := make([]InterchainCall, len(interchainCalls))
	for i, interchainCall := range interchainCalls {
		normalized[i] = InterchainCall{
			DestinationChain:    interchainCall.DestinationChain,
			DestinationContract: interchainCall.DestinationContract,
			Gas:                 bigOrZero(interchainCall.Gas),
			Calls:               normalizeCalls(interchainCall.Calls),
		}
	}
	return normalized
}
