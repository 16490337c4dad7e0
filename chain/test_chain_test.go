package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/relayfuzz/chain/config"
	"github.com/crytic/relayfuzz/chain/state"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterABIJSON describes a small contract used to exercise the TestChain.
const counterABIJSON = `[
	{"type":"function","name":"increment","inputs":[],"outputs":[],"stateMutability":"payable"},
	{"type":"function","name":"count","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"incrementThenFail","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"forward","inputs":[{"name":"target","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"Incremented","inputs":[{"name":"by","type":"address","indexed":true},{"name":"count","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"error","name":"Failed","inputs":[]}
]`

// counterContract is a NativeContract which counts calls to increment in storage slot 0.
type counterContract struct {
	contractABI *abi.ABI
}

func newCounterContract(t *testing.T) *counterContract {
	parsed, err := abi.JSON(strings.NewReader(counterABIJSON))
	require.NoError(t, err)
	return &counterContract{contractABI: &parsed}
}

func (c *counterContract) Name() string  { return "Counter" }
func (c *counterContract) ABI() *abi.ABI { return c.contractABI }

func (c *counterContract) Initialize(ctx *CallContext) error {
	ctx.Storage().SetUint256(state.SlotIndex(0), uint256.NewInt(10))
	return nil
}

func (c *counterContract) Run(ctx *CallContext) ([]byte, error) {
	method, err := c.contractABI.MethodById(ctx.Input)
	if err != nil {
		return nil, NewRevertErrorWithData(nil)
	}
	storage := ctx.Storage()
	switch method.Name {
	case "increment", "incrementThenFail":
		count := storage.GetUint256(state.SlotIndex(0))
		count.AddUint64(count, 1)
		storage.SetUint256(state.SlotIndex(0), count)
		err = ctx.EmitEvent(c.contractABI, "Incremented", []common.Hash{common.BytesToHash(ctx.Caller.Bytes())}, count.ToBig())
		if err != nil {
			return nil, err
		}
		if method.Name == "incrementThenFail" {
			return nil, NewRevertError(c.contractABI, "Failed")
		}
		return nil, nil
	case "count":
		return method.Outputs.Pack(storage.GetUint256(state.SlotIndex(0)).ToBig())
	case "forward":
		args, err := method.Inputs.Unpack(ctx.Input[4:])
		if err != nil {
			return nil, err
		}
		ret, err := ctx.Call(args[0].(common.Address), new(big.Int), c.contractABI.Methods["incrementThenFail"].ID)
		if err != nil {
			var revertErr *RevertError
			if errors.As(err, &revertErr) {
				return nil, NewRevertErrorWithData(revertErr.Data())
			}
			return nil, err
		}
		return ret, nil
	}
	return nil, NewRevertErrorWithData(nil)
}

// newTestChainForTest creates a TestChain with default configuration.
func newTestChainForTest(t *testing.T) *TestChain {
	testChain, err := NewTestChain(*config.DefaultTestChainConfig(1, "chain1"))
	require.NoError(t, err)
	return testChain
}

// readCount calls count() on the counter contract.
func readCount(t *testing.T, testChain *TestChain, counter *counterContract, address common.Address) uint64 {
	ret, err := testChain.CallContract(testChain.Operator(), address, counter.contractABI.Methods["count"].ID)
	require.NoError(t, err)
	values, err := counter.contractABI.Methods["count"].Outputs.Unpack(ret)
	require.NoError(t, err)
	return values[0].(*big.Int).Uint64()
}

// TestTestChainAccountsAreDeterministic ensures two chains with different ids expose identical, funded accounts.
func TestTestChainAccountsAreDeterministic(t *testing.T) {
	chain1, err := NewTestChain(*config.DefaultTestChainConfig(1, "chain1"))
	require.NoError(t, err)
	chain2, err := NewTestChain(*config.DefaultTestChainConfig(2, "chain2"))
	require.NoError(t, err)

	assert.Len(t, chain1.Accounts(), config.DefaultAccountCount)
	assert.EqualValues(t, chain1.AccountAddresses(), chain2.AccountAddresses())
	assert.EqualValues(t, chain1.Operator(), chain2.Operator())
	for _, address := range chain1.AccountAddresses() {
		assert.EqualValues(t, 0, chain1.BalanceAt(address).Cmp(chain1.testChainConfig.InitialBalance.BigInt()))
	}

	// Only the genesis block exists
	assert.EqualValues(t, 0, chain1.HeadBlockNumber())
}

// TestTestChainDeployAndTransact ensures contracts can be deployed, transacted with and read, and that each
// transaction is committed in its own block with its logs.
func TestTestChainDeployAndTransact(t *testing.T) {
	testChain := newTestChainForTest(t)
	counter := newCounterContract(t)

	// Track committed blocks through events
	blocksAdded := 0
	testChain.Events.BlockAdded.Subscribe(func(event BlockAddedEvent) error {
		blocksAdded++
		return nil
	})

	// Deploy the contract, the constructor sets the count to 10
	address, results, err := testChain.DeployContract(counter, testChain.Operator())
	require.NoError(t, err)
	assert.EqualValues(t, address, results.Receipt.ContractAddress)
	assert.EqualValues(t, 10, readCount(t, testChain, counter, address))
	assert.EqualValues(t, "Counter", testChain.Labels[address])

	// Increment from a non-privileged account
	sender := testChain.AccountAddresses()[1]
	results, err = testChain.SendTransaction(types.NewCallMessage(sender, &address, nil, counter.contractABI.Methods["increment"].ID))
	require.NoError(t, err)
	assert.True(t, results.Succeeded())
	assert.EqualValues(t, 11, readCount(t, testChain, counter, address))

	// The receipt should contain the emitted event
	require.Len(t, results.Logs(), 1)
	log := results.Logs()[0]
	assert.EqualValues(t, counter.contractABI.Events["Incremented"].ID, log.Topics[0])
	assert.EqualValues(t, common.BytesToHash(sender.Bytes()), log.Topics[1])
	assert.EqualValues(t, testChain.Head().Hash, log.BlockHash)
	assert.EqualValues(t, 0, log.Index)

	// Two blocks were committed on top of genesis, and the sender nonce was consumed
	assert.EqualValues(t, 2, testChain.HeadBlockNumber())
	assert.EqualValues(t, 2, blocksAdded)
	assert.EqualValues(t, 1, testChain.NonceAt(sender))
}

// TestTestChainRevertedTransaction ensures a reverted transaction discards its state changes and logs, is still
// committed, and reports its revert reason and trace.
func TestTestChainRevertedTransaction(t *testing.T) {
	testChain := newTestChainForTest(t)
	counter := newCounterContract(t)
	address, _, err := testChain.DeployContract(counter, testChain.Operator())
	require.NoError(t, err)

	sender := testChain.AccountAddresses()[1]
	results, err := testChain.SendTransaction(types.NewCallMessage(sender, &address, nil, counter.contractABI.Methods["incrementThenFail"].ID))
	require.Error(t, err)

	// The error should describe the revert
	var execErr *ExecutionRevertedError
	require.True(t, errors.As(err, &execErr))
	assert.EqualValues(t, "Failed()", execErr.Reason)
	assert.EqualValues(t, "chain1", execErr.ChainName)
	require.NotNil(t, execErr.Trace)
	assert.EqualValues(t, "incrementThenFail", execErr.Trace.MethodName)
	assert.Contains(t, execErr.Trace.String(), "Failed()")

	// The transaction was committed but its effects were discarded
	assert.False(t, results.Succeeded())
	assert.EqualValues(t, gethTypes.ReceiptStatusFailed, results.Receipt.Status)
	assert.Empty(t, results.Logs())
	assert.EqualValues(t, 10, readCount(t, testChain, counter, address))
	assert.EqualValues(t, 1, testChain.NonceAt(sender))
}

// TestTestChainNestedRevertBubbles ensures that a failed inner call reverts the inner contract's state and that the
// revert data bubbles up through the caller.
func TestTestChainNestedRevertBubbles(t *testing.T) {
	testChain := newTestChainForTest(t)
	counter := newCounterContract(t)
	outer, _, err := testChain.DeployContract(counter, testChain.Operator())
	require.NoError(t, err)
	inner, _, err := testChain.DeployContract(newCounterContract(t), testChain.Operator())
	require.NoError(t, err)

	input, err := counter.contractABI.Pack("forward", inner)
	require.NoError(t, err)
	_, err = testChain.SendTransaction(types.NewCallMessage(testChain.Operator(), &outer, nil, input))

	var execErr *ExecutionRevertedError
	require.True(t, errors.As(err, &execErr))
	assert.EqualValues(t, "Failed()", execErr.Reason)
	require.Len(t, execErr.Trace.ChildCallFrames, 1)
	assert.True(t, execErr.Trace.ChildCallFrames[0].Reverted())
	assert.EqualValues(t, 10, readCount(t, testChain, counter, inner))
}

// TestTestChainPostCommitStep ensures the post-commit step runs after successful transactions only, and that its
// error is returned to the sender.
func TestTestChainPostCommitStep(t *testing.T) {
	testChain := newTestChainForTest(t)
	counter := newCounterContract(t)
	address, _, err := testChain.DeployContract(counter, testChain.Operator())
	require.NoError(t, err)

	var observed []*types.MessageResults
	stepErr := errors.New("post-commit failure")
	failStep := false
	testChain.SetPostCommitFunc(func(chain *TestChain, results *types.MessageResults) error {
		assert.Same(t, testChain, chain)
		observed = append(observed, results)
		if failStep {
			return stepErr
		}
		return nil
	})

	// A successful transaction runs the step with its own results
	results, err := testChain.SendTransaction(types.NewCallMessage(testChain.Operator(), &address, nil, counter.contractABI.Methods["increment"].ID))
	require.NoError(t, err)
	require.Len(t, observed, 1)
	assert.Same(t, results, observed[0])

	// A reverted transaction does not
	_, err = testChain.SendTransaction(types.NewCallMessage(testChain.Operator(), &address, nil, counter.contractABI.Methods["incrementThenFail"].ID))
	require.Error(t, err)
	assert.Len(t, observed, 1)

	// A failing step surfaces its error, while the transaction stays committed
	failStep = true
	_, err = testChain.SendTransaction(types.NewCallMessage(testChain.Operator(), &address, nil, counter.contractABI.Methods["increment"].ID))
	assert.ErrorIs(t, err, stepErr)
	assert.EqualValues(t, 12, readCount(t, testChain, counter, address))
}

// TestTestChainValueTransfer ensures plain value transfers move balances and fail when underfunded.
func TestTestChainValueTransfer(t *testing.T) {
	testChain := newTestChainForTest(t)
	from := testChain.AccountAddresses()[1]
	to := common.HexToAddress("0xdead")

	_, err := testChain.Transfer(from, to, big.NewInt(500))
	require.NoError(t, err)
	assert.EqualValues(t, 500, testChain.BalanceAt(to).Uint64())

	// Transferring more than the balance reverts without moving funds
	_, err = testChain.Transfer(to, from, big.NewInt(501))
	require.Error(t, err)
	assert.EqualValues(t, 500, testChain.BalanceAt(to).Uint64())
}

// abiOnlyContract is a NativeContract which accepts every call, used to register ABIs on a chain.
type abiOnlyContract struct {
	name        string
	contractABI *abi.ABI
}

func (c *abiOnlyContract) Name() string                         { return c.name }
func (c *abiOnlyContract) ABI() *abi.ABI                        { return c.contractABI }
func (c *abiOnlyContract) Run(ctx *CallContext) ([]byte, error) { return nil, nil }

// TestTestChainRevertReasonUsesDeploymentOrder ensures custom error selectors known to several deployed contracts
// always resolve through the contract deployed first.
func TestTestChainRevertReasonUsesDeploymentOrder(t *testing.T) {
	testChain := newTestChainForTest(t)
	failed := abi.NewError("Failed", abi.Arguments{})
	names := []string{"FirstFailure", "SecondFailure", "ThirdFailure", "FourthFailure"}
	for i, name := range names {
		contractABI := &abi.ABI{Errors: map[string]abi.Error{name: failed}}
		_, _, err := testChain.DeployContract(&abiOnlyContract{name: name, contractABI: contractABI}, testChain.Operator())
		require.NoError(t, err)

		// ABIs are listed in deployment order
		abis := testChain.knownABIs()
		require.Len(t, abis, i+1)
		assert.Contains(t, abis[i].Errors, name)
	}

	for i := 0; i < 20; i++ {
		frame := &types.CallFrame{}
		testChain.annotateFailedFrame(frame, NewRevertErrorWithData(failed.ID[:4]))
		assert.EqualValues(t, "FirstFailure()", frame.RevertReason)
	}
}

// TestTestChainStateRootMatchesHead ensures each committed block carries the root of the chain state, that the state
// is readable at that root, and that read-only calls leave it untouched.
func TestTestChainStateRootMatchesHead(t *testing.T) {
	testChain := newTestChainForTest(t)
	t.Cleanup(testChain.Close)
	counter := newCounterContract(t)
	genesisRoot := testChain.Head().Header.Root

	address, results, err := testChain.DeployContract(counter, testChain.Operator())
	require.NoError(t, err)
	assert.EqualValues(t, testChain.Head().Header.Root, results.PostStateRoot)
	assert.NotEqual(t, genesisRoot, results.PostStateRoot)

	// The committed state holds the constructor's storage write
	committed, err := state.OpenState(results.PostStateRoot, testChain.stateDatabase)
	require.NoError(t, err)
	assert.EqualValues(t, 10, state.NewContractStorage(committed, address).GetUint256(state.SlotIndex(0)).Uint64())
	assert.NotEmpty(t, committed.GetCode(address))

	// Read-only calls do not change the state root
	readCount(t, testChain, counter, address)
	root, err := testChain.commitState(testChain.HeadBlockNumber())
	require.NoError(t, err)
	assert.EqualValues(t, results.PostStateRoot, root)
}
