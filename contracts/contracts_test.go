package contracts

import (
	"math/big"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/config"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deployForTest creates a chain with the relaying contracts and two receivers deployed.
func deployForTest(t *testing.T) (*chain.TestChain, *Deployment, []common.Address) {
	testChain, err := chain.NewTestChain(*config.DefaultTestChainConfig(2, "chain2"))
	require.NoError(t, err)
	deployment, err := Deploy(testChain)
	require.NoError(t, err)
	receivers, err := DeployReceivers(testChain, 2)
	require.NoError(t, err)
	return testChain, deployment, receivers
}

// requireRevertReason asserts err describes a reverted execution with the given reason.
func requireRevertReason(t *testing.T, err error, reason string) {
	var execErr *chain.ExecutionRevertedError
	require.True(t, errors.As(err, &execErr), "expected an execution reverted error, got %v", err)
	assert.EqualValues(t, reason, execErr.Reason)
}

// approveAndExecute approves a contract call on the gateway and executes it on the executor, as a relayer would.
func approveAndExecute(t *testing.T, testChain *chain.TestChain, deployment *Deployment, commandID common.Hash, sourceChain string, sourceAddress string, payload []byte) error {
	params, err := ContractCallApprovalParams{
		SourceChain:     sourceChain,
		SourceAddress:   sourceAddress,
		ContractAddress: deployment.Executor,
		PayloadHash:     crypto.Keccak256Hash(payload),
	}.Pack()
	require.NoError(t, err)
	err = transact(testChain, testChain.Operator(), deployment.Gateway, nil, GatewayABI, "approveContractCall", params, commandID)
	if err != nil {
		return err
	}
	return transact(testChain, testChain.Operator(), deployment.Executor, nil, InterchainProposalExecutorABI, "execute", commandID, sourceChain, sourceAddress, payload)
}

// TestReceiverRecordsLastCall ensures the receiver records the call data and value of the last call it received.
func TestReceiverRecordsLastCall(t *testing.T) {
	testChain, _, receivers := deployForTest(t)
	from := testChain.AccountAddresses()[1]

	payload, value, err := ReadReceiver(testChain, receivers[0])
	require.NoError(t, err)
	assert.Empty(t, payload)
	assert.EqualValues(t, 0, value.Uint64())

	// Record two calls, only the last one is remembered
	long := make([]byte, 100)
	for i := range long {
		long[i] = byte(i)
	}
	_, err = testChain.SendTransaction(types.NewCallMessage(from, &receivers[0], big.NewInt(7), long))
	require.NoError(t, err)
	_, err = testChain.SendTransaction(types.NewCallMessage(from, &receivers[0], big.NewInt(3), []byte{0x01, 0x02}))
	require.NoError(t, err)

	payload, value, err = ReadReceiver(testChain, receivers[0])
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x01, 0x02}, payload)
	assert.EqualValues(t, 3, value.Uint64())
	assert.EqualValues(t, 10, testChain.BalanceAt(receivers[0]).Uint64())

	// The other receiver is untouched
	payload, value, err = ReadReceiver(testChain, receivers[1])
	require.NoError(t, err)
	assert.Empty(t, payload)
	assert.EqualValues(t, 0, value.Uint64())
}

// TestSenderEmitsContractCall ensures sendProposals emits one gateway ContractCall per proposal, carrying the
// encoded caller and calls.
func TestSenderEmitsContractCall(t *testing.T) {
	testChain, deployment, receivers := deployForTest(t)
	caller := testChain.AccountAddresses()[3]

	calls := []Call{{Target: receivers[1], Value: big.NewInt(500), CallData: []byte{0x01, 0x02}}}
	results, err := SendProposals(testChain, deployment.Sender, caller, nil, []InterchainCall{{
		DestinationChain:    "chain1",
		DestinationContract: deployment.Executor.Hex(),
		Calls:               calls,
	}})
	require.NoError(t, err)

	require.Len(t, results.Logs(), 1)
	log := results.Logs()[0]
	event := GatewayABI.Events["ContractCall"]
	assert.EqualValues(t, deployment.Gateway, log.Address)
	require.Len(t, log.Topics, 3)
	assert.EqualValues(t, event.ID, log.Topics[0])
	assert.EqualValues(t, common.BytesToHash(deployment.Sender.Bytes()), log.Topics[1])

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	require.NoError(t, err)
	assert.EqualValues(t, "chain1", values[0])
	assert.EqualValues(t, deployment.Executor.Hex(), values[1])
	payload := values[2].([]byte)
	assert.EqualValues(t, crypto.Keccak256Hash(payload), log.Topics[2])

	decodedCaller, decodedCalls, err := DecodeProposalPayload(payload)
	require.NoError(t, err)
	assert.EqualValues(t, caller, decodedCaller)
	require.Len(t, decodedCalls, 1)
	assert.EqualValues(t, receivers[1], decodedCalls[0].Target)
	assert.EqualValues(t, 500, decodedCalls[0].Value.Uint64())
	assert.EqualValues(t, []byte{0x01, 0x02}, decodedCalls[0].CallData)
}

// TestSenderRejectsInvalidFee ensures the value sent must match the gas of the proposals, and that gas cannot be
// paid without a gas service.
func TestSenderRejectsInvalidFee(t *testing.T) {
	testChain, deployment, _ := deployForTest(t)
	caller := testChain.AccountAddresses()[1]
	proposal := InterchainCall{DestinationChain: "chain1", DestinationContract: deployment.Executor.Hex()}

	_, err := SendProposals(testChain, deployment.Sender, caller, big.NewInt(1), []InterchainCall{proposal})
	requireRevertReason(t, err, "InvalidFee()")

	proposal.Gas = big.NewInt(1)
	_, err = SendProposals(testChain, deployment.Sender, caller, big.NewInt(1), []InterchainCall{proposal})
	requireRevertReason(t, err, "InvalidGasService()")
}

// TestExecutorRequiresApproval ensures the executor refuses messages the gateway did not approve, and that approved
// commands can only be approved and executed once.
func TestExecutorRequiresApproval(t *testing.T) {
	testChain, deployment, receivers := deployForTest(t)
	operator := testChain.Operator()
	sourceSender := common.HexToAddress("0x1000")
	caller := testChain.AccountAddresses()[2]

	require.NoError(t, SetWhitelistedProposalSender(testChain, deployment.Executor, "chain1", sourceSender, true))
	require.NoError(t, SetWhitelistedProposalCaller(testChain, deployment.Executor, "chain1", caller, true))

	payload, err := EncodeProposalPayload(caller, []Call{{Target: receivers[0], Value: big.NewInt(0), CallData: []byte{0xaa}}})
	require.NoError(t, err)
	commandID := common.BigToHash(big.NewInt(0))

	// Executing without approval fails
	err = transact(testChain, operator, deployment.Executor, nil, InterchainProposalExecutorABI, "execute", commandID, "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "NotApprovedByGateway()")

	// Approving then executing delivers the call
	require.NoError(t, approveAndExecute(t, testChain, deployment, commandID, "chain1", sourceSender.Hex(), payload))
	recorded, _, err := ReadReceiver(testChain, receivers[0])
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0xaa}, recorded)

	executed, err := IsCommandExecuted(testChain, deployment.Gateway, commandID)
	require.NoError(t, err)
	assert.True(t, executed)

	// The approval was consumed, and the command cannot be approved again
	err = transact(testChain, operator, deployment.Executor, nil, InterchainProposalExecutorABI, "execute", commandID, "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "NotApprovedByGateway()")
	err = approveAndExecute(t, testChain, deployment, commandID, "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "AlreadyExecuted()")
}

// TestExecutorWhitelists ensures the executor only executes proposals from whitelisted senders and callers, and
// that only its owner can change the whitelists.
func TestExecutorWhitelists(t *testing.T) {
	testChain, deployment, receivers := deployForTest(t)
	sourceSender := common.HexToAddress("0x1000")
	caller := testChain.AccountAddresses()[2]
	payload, err := EncodeProposalPayload(caller, []Call{{Target: receivers[0], Value: big.NewInt(0), CallData: []byte{0xbb}}})
	require.NoError(t, err)

	// Unknown sender
	err = approveAndExecute(t, testChain, deployment, common.BigToHash(big.NewInt(1)), "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "NotWhitelistedSourceAddress()")

	// Known sender, unknown caller
	require.NoError(t, SetWhitelistedProposalSender(testChain, deployment.Executor, "chain1", sourceSender, true))
	err = approveAndExecute(t, testChain, deployment, common.BigToHash(big.NewInt(2)), "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "NotWhitelistedCaller()")

	// Whitelists are scoped by source chain
	require.NoError(t, SetWhitelistedProposalCaller(testChain, deployment.Executor, "chain3", caller, true))
	err = approveAndExecute(t, testChain, deployment, common.BigToHash(big.NewInt(3)), "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "NotWhitelistedCaller()")

	// Source addresses must be valid hex addresses
	err = approveAndExecute(t, testChain, deployment, common.BigToHash(big.NewInt(4)), "chain1", "not-an-address", payload)
	requireRevertReason(t, err, "InvalidAddressString()")

	// Only the owner may whitelist
	err = transact(testChain, caller, deployment.Executor, nil, InterchainProposalExecutorABI, "setWhitelistedProposalCaller", "chain1", caller, true)
	requireRevertReason(t, err, ownableUnauthorizedReason)
}

// TestExecutorForwardsValue ensures forwarded calls are funded from the executor balance, and that an underfunded
// call fails the whole proposal.
func TestExecutorForwardsValue(t *testing.T) {
	testChain, deployment, receivers := deployForTest(t)
	sourceSender := common.HexToAddress("0x1000")
	caller := testChain.AccountAddresses()[2]
	require.NoError(t, SetWhitelistedProposalSender(testChain, deployment.Executor, "chain1", sourceSender, true))
	require.NoError(t, SetWhitelistedProposalCaller(testChain, deployment.Executor, "chain1", caller, true))

	payload, err := EncodeProposalPayload(caller, []Call{
		{Target: receivers[0], Value: big.NewInt(300), CallData: []byte{0x01}},
		{Target: receivers[1], Value: big.NewInt(200), CallData: nil},
	})
	require.NoError(t, err)

	// Without funds, the first call fails without revert data
	err = approveAndExecute(t, testChain, deployment, common.BigToHash(big.NewInt(0)), "chain1", sourceSender.Hex(), payload)
	requireRevertReason(t, err, "ProposalExecuteFailed()")

	// Funding the executor lets the proposal through
	_, err = testChain.Transfer(testChain.Operator(), deployment.Executor, big.NewInt(500))
	require.NoError(t, err)
	require.NoError(t, approveAndExecute(t, testChain, deployment, common.BigToHash(big.NewInt(1)), "chain1", sourceSender.Hex(), payload))

	assert.EqualValues(t, 0, testChain.BalanceAt(deployment.Executor).Uint64())
	for i, expected := range []uint64{300, 200} {
		_, value, err := ReadReceiver(testChain, receivers[i])
		require.NoError(t, err)
		assert.EqualValues(t, expected, value.Uint64())
	}
}

// TestGatewayTokens ensures tokens sent through callContractWithToken are burned on the source gateway and minted to
// the executable when the call is validated on the destination gateway.
func TestGatewayTokens(t *testing.T) {
	testChain, deployment, _ := deployForTest(t)
	operator := testChain.Operator()
	holder := testChain.AccountAddresses()[4]

	// Only the operator mints
	err := transact(testChain, holder, deployment.Gateway, nil, GatewayABI, "mintToken", "USDC", holder, big.NewInt(100))
	requireRevertReason(t, err, "NotOperator()")
	require.NoError(t, transact(testChain, operator, deployment.Gateway, nil, GatewayABI, "mintToken", "USDC", holder, big.NewInt(100)))

	// Sending burns
	err = transact(testChain, holder, deployment.Gateway, nil, GatewayABI, "callContractWithToken", "chain1", "0x00", []byte{0x01}, "USDC", big.NewInt(101))
	requireRevertReason(t, err, "InsufficientTokenBalance()")
	require.NoError(t, transact(testChain, holder, deployment.Gateway, nil, GatewayABI, "callContractWithToken", "chain1", "0x00", []byte{0x01}, "USDC", big.NewInt(60)))
	balance, err := TokenBalance(testChain, deployment.Gateway, "USDC", holder)
	require.NoError(t, err)
	assert.EqualValues(t, 40, balance.Uint64())

	// Validating an approved call with mint credits the executable
	payload := []byte{0x02}
	commandID := common.BigToHash(big.NewInt(9))
	params, err := ContractCallWithMintApprovalParams{
		SourceChain:     "chain1",
		SourceAddress:   holder.Hex(),
		ContractAddress: deployment.Executor,
		PayloadHash:     crypto.Keccak256Hash(payload),
		Symbol:          "USDC",
		Amount:          big.NewInt(25),
	}.Pack()
	require.NoError(t, err)
	require.NoError(t, transact(testChain, operator, deployment.Gateway, nil, GatewayABI, "approveContractCallWithMint", params, commandID))
	require.NoError(t, transact(testChain, operator, deployment.Executor, nil, InterchainProposalExecutorABI, "executeWithToken", commandID, "chain1", holder.Hex(), payload, "USDC", big.NewInt(25)))

	balance, err = TokenBalance(testChain, deployment.Gateway, "USDC", deployment.Executor)
	require.NoError(t, err)
	assert.EqualValues(t, 25, balance.Uint64())

	// A mismatching amount is not approved
	err = transact(testChain, operator, deployment.Executor, nil, InterchainProposalExecutorABI, "executeWithToken", commandID, "chain1", holder.Hex(), payload, "USDC", big.NewInt(26))
	requireRevertReason(t, err, "NotApprovedByGateway()")
}
