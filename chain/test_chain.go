package chain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	gethState "github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/core/tracing"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/relayfuzz/chain/config"
	"github.com/crytic/relayfuzz/chain/state"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/utils"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// MaxCallDepth describes the maximum depth of nested message calls, matching the EVM limit.
const MaxCallDepth = 1024

// accountKeySeed is the seed every TestChain derives its accounts from, so that all chains share account addresses.
var accountKeySeed = []byte("relayfuzz-test-chain-account")

// Account describes an externally owned account of a TestChain.
type Account struct {
	// Key describes the private key of the account.
	Key *ecdsa.PrivateKey

	// Address describes the address of the account.
	Address common.Address
}

// PostCommitFunc describes a step executed synchronously after a TestChain commits a transaction, with the results
// of the committed transaction. An error returned by the step is returned by the call which sent the transaction.
type PostCommitFunc func(chain *TestChain, results *types.MessageResults) error

// TestChain represents a simulated chain used for testing. It maintains blocks in-memory and executes NativeContract
// implementations over a geth state database. Each transaction is mined in its own block. A TestChain is not
// thread safe: it is owned by a single fuzzer trial.
type TestChain struct {
	// testChainConfig represents the configuration used by this TestChain.
	testChainConfig config.TestChainConfig

	// state represents the current world state, the subject of state changes when executing new transactions.
	// It is reopened at the new root after every block commit.
	state *gethState.StateDB

	// stateDatabase refers to the in-memory database which state stores its tries in.
	stateDatabase gethState.Database

	// blocks represents the blocks committed to the chain, starting with the genesis block.
	blocks []*types.Block

	// accounts represents the externally owned accounts created at genesis. The first account is privileged.
	accounts []Account

	// contracts maps deployed contract addresses to their implementation.
	contracts map[common.Address]NativeContract

	// contractOrder lists the addresses of contracts in the order they were deployed.
	contractOrder []common.Address

	// postCommitFunc describes the step run after each committed transaction, or nil if there is none.
	postCommitFunc PostCommitFunc

	// Labels maps an address to its label if one exists. This is useful for call traces and reports.
	Labels map[common.Address]string

	// Events defines the event system for the TestChain.
	Events TestChainEvents

	// logger describes the logger used by this chain.
	logger *logging.Logger
}

// NewTestChain creates a simulated chain from the provided configuration, creating and funding its accounts in a
// genesis block. Returns the chain, or an error if one occurs.
func NewTestChain(testChainConfig config.TestChainConfig) (*TestChain, error) {
	if err := testChainConfig.Validate(); err != nil {
		return nil, err
	}

	stateDatabase := state.NewDatabase()
	stateDB, err := state.OpenState(gethTypes.EmptyRootHash, stateDatabase)
	if err != nil {
		return nil, err
	}

	t := &TestChain{
		testChainConfig: testChainConfig,
		state:           stateDB,
		stateDatabase:   stateDatabase,
		blocks:          make([]*types.Block, 0),
		accounts:        make([]Account, 0, testChainConfig.AccountCount),
		contracts:       make(map[common.Address]NativeContract),
		Labels:          make(map[common.Address]string),
		logger:          logging.GlobalLogger.NewSubLogger("module", logging.CHAIN_SERVICE).NewSubLogger("chain", testChainConfig.Name),
	}

	// Derive and fund every account
	initialBalance, overflow := uint256.FromBig(testChainConfig.InitialBalance.BigInt())
	if overflow {
		return nil, errors.Errorf("initial balance for chain '%s' overflows 256 bits", testChainConfig.Name)
	}
	for i := 0; i < testChainConfig.AccountCount; i++ {
		key, address, err := utils.DeriveAccount(accountKeySeed, uint64(i))
		if err != nil {
			return nil, err
		}
		t.accounts = append(t.accounts, Account{Key: key, Address: address})
		t.state.SetBalance(address, initialBalance, tracing.BalanceIncreaseGenesisBalance)
	}

	// Commit the genesis block
	root, err := t.commitState(0)
	if err != nil {
		return nil, err
	}
	header := &gethTypes.Header{
		ParentHash: common.Hash{},
		Root:       root,
		Number:     big.NewInt(0),
		Difficulty: new(big.Int),
		Time:       0,
	}
	t.blocks = append(t.blocks, types.NewBlock(header, nil, nil))
	return t, nil
}

// Close releases the trie cache of the chain's state database. The chain must not be used afterwards.
func (t *TestChain) Close() {
	t.stateDatabase.TrieDB().Close()
}

// commitState commits the pending state changes for the given block number and reopens the state at the new root,
// as committing invalidates the tries cached by the previous state object.
// Returns the new state root, or an error if one occurs.
func (t *TestChain) commitState(blockNumber uint64) (common.Hash, error) {
	root, err := t.state.Commit(blockNumber, true, true)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "could not commit state of chain '%s'", t.Name())
	}
	t.state, err = state.OpenState(root, t.stateDatabase)
	if err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

// ChainID returns the numeric id of the chain.
func (t *TestChain) ChainID() uint64 {
	return t.testChainConfig.ChainID
}

// Name returns the symbolic name of the chain.
func (t *TestChain) Name() string {
	return t.testChainConfig.Name
}

// Accounts returns the externally owned accounts of the chain. The first account is the privileged
// deployer/operator.
func (t *TestChain) Accounts() []Account {
	return slices.Clone(t.accounts)
}

// AccountAddresses returns the addresses of the externally owned accounts of the chain.
func (t *TestChain) AccountAddresses() []common.Address {
	return utils.SliceSelect(t.accounts, func(a Account) common.Address {
		return a.Address
	})
}

// Operator returns the privileged deployer/operator account address.
func (t *TestChain) Operator() common.Address {
	return t.accounts[0].Address
}

// SetPostCommitFunc sets the step executed after every committed transaction. A nil value removes it.
func (t *TestChain) SetPostCommitFunc(postCommitFunc PostCommitFunc) {
	t.postCommitFunc = postCommitFunc
}

// Head returns the most recently committed block.
func (t *TestChain) Head() *types.Block {
	return t.blocks[len(t.blocks)-1]
}

// HeadBlockNumber returns the block number of the most recently committed block.
func (t *TestChain) HeadBlockNumber() uint64 {
	return t.Head().Header.Number.Uint64()
}

// Blocks returns the committed blocks, starting with the genesis block.
func (t *TestChain) Blocks() []*types.Block {
	return slices.Clone(t.blocks)
}

// BalanceAt returns the native balance of the given address.
func (t *TestChain) BalanceAt(address common.Address) *big.Int {
	return t.state.GetBalance(address).ToBig()
}

// NonceAt returns the nonce of the given address.
func (t *TestChain) NonceAt(address common.Address) uint64 {
	return t.state.GetNonce(address)
}

// StorageAt returns the value of a storage slot of the given address.
func (t *TestChain) StorageAt(address common.Address, slot common.Hash) common.Hash {
	return t.state.GetState(address, slot)
}

// ContractAt returns the NativeContract deployed at the given address, or nil if there is none.
func (t *TestChain) ContractAt(address common.Address) NativeContract {
	if len(t.state.GetCode(address)) == 0 {
		return nil
	}
	return t.contracts[address]
}

// DeployContract deploys the provided NativeContract from the given account, running its constructor if it is a
// ContractInitializer. The contract address is derived from the deployer address and nonce. Returns the contract
// address and the results of the deployment transaction, or an error if the deployment failed.
func (t *TestChain) DeployContract(contract NativeContract, from common.Address) (common.Address, *types.MessageResults, error) {
	address := crypto.CreateAddress(from, t.state.GetNonce(from))
	msg := types.NewCallMessage(from, nil, nil, []byte(contract.Name()))

	results, err := t.applyMessage(msg, func(frame *types.CallFrame) ([]byte, error) {
		frame.ToAddress = address
		frame.ToContractName = contract.Name()
		frame.MethodName = "constructor"

		if len(t.state.GetCode(address)) > 0 {
			return nil, errors.Errorf("contract address collision at %v", address)
		}
		t.state.SetCode(address, crypto.Keccak256([]byte(contract.Name())))
		t.state.SetNonce(address, 1, tracing.NonceChangeNewContract)
		t.contracts[address] = contract

		if initializer, ok := contract.(ContractInitializer); ok {
			ctx := &CallContext{chain: t, frame: frame, Caller: from, Origin: from, Address: address, Value: new(big.Int)}
			if err := initializer.Initialize(ctx); err != nil {
				delete(t.contracts, address)
				return nil, err
			}
		}
		t.contractOrder = append(t.contractOrder, address)
		return nil, nil
	})
	if err != nil {
		return common.Address{}, results, err
	}

	results.Receipt.ContractAddress = address
	t.Labels[address] = contract.Name()
	t.logger.Debug("Deployed ", contract.Name(), " at ", address.String())
	err = t.Events.ContractDeployed.Publish(ContractDeployedEvent{Chain: t, Address: address, Contract: contract})
	if err != nil {
		return address, results, err
	}
	return address, results, t.runPostCommit(results)
}

// SendTransaction executes the provided message as a transaction in a new block and commits it, then runs the
// post-commit step with its results. The message nonce is populated from state. A reverted transaction is still
// committed (its sender nonce is consumed) and returns an *ExecutionRevertedError; the post-commit step only runs
// for successful transactions. Returns the transaction results, or an error if one occurred.
func (t *TestChain) SendTransaction(msg *types.CallMessage) (*types.MessageResults, error) {
	if msg.MsgTo == nil {
		return nil, errors.New("cannot send a transaction without a destination, use DeployContract instead")
	}

	results, err := t.applyMessage(msg, func(frame *types.CallFrame) ([]byte, error) {
		return t.execute(frame, msg.MsgFrom, msg.MsgFrom, *msg.MsgTo, msg.MsgValue, msg.MsgData, 0)
	})
	if err != nil {
		return results, err
	}
	return results, t.runPostCommit(results)
}

// Transfer sends native value from one account to another in a new transaction.
func (t *TestChain) Transfer(from common.Address, to common.Address, value *big.Int) (*types.MessageResults, error) {
	return t.SendTransaction(types.NewCallMessage(from, &to, value, nil))
}

// CallContract executes a read-only message call against the current state, discarding any state changes. Returns
// the return data, or an *ExecutionRevertedError if the call failed.
func (t *TestChain) CallContract(from common.Address, to common.Address, input []byte) ([]byte, error) {
	contract := t.ContractAt(to)
	if contract == nil {
		return nil, errors.WithStack(ErrNotAContract)
	}

	snapshot := t.state.Snapshot()
	frame, ret, err := t.call(nil, from, from, to, new(big.Int), input, 0)
	t.state.RevertToSnapshot(snapshot)
	if err != nil {
		return nil, t.newExecutionRevertedError(common.Hash{}, frame, err)
	}
	return ret, nil
}

// applyMessage executes a transaction in a new block using the provided function, then commits the block.
// Returns the transaction results, along with an *ExecutionRevertedError if execution failed.
func (t *TestChain) applyMessage(msg *types.CallMessage, exec func(frame *types.CallFrame) ([]byte, error)) (*types.MessageResults, error) {
	parent := t.Head()
	blockNumber := new(big.Int).Add(parent.Header.Number, big.NewInt(1))

	// Consume the sender nonce, which is never reverted
	msg.MsgNonce = t.state.GetNonce(msg.MsgFrom)
	txHash := msg.Hash(t.ChainID())
	t.state.SetNonce(msg.MsgFrom, msg.MsgNonce+1, tracing.NonceChangeEoACall)
	t.state.SetTxContext(txHash, 0)

	// Execute the message, unwinding its state changes if it fails
	frame := &types.CallFrame{SenderAddress: msg.MsgFrom, CallValue: msg.MsgValue, InputData: msg.MsgData}
	if msg.MsgTo != nil {
		frame.ToAddress = *msg.MsgTo
	}
	snapshot := t.state.Snapshot()
	ret, execErr := exec(frame)
	if execErr != nil {
		t.state.RevertToSnapshot(snapshot)
		t.annotateFailedFrame(frame, execErr)
	} else {
		frame.ReturnData = ret
	}

	// Build the receipt
	receipt := &gethTypes.Receipt{
		Type:             gethTypes.LegacyTxType,
		Status:           gethTypes.ReceiptStatusSuccessful,
		TxHash:           txHash,
		BlockNumber:      blockNumber,
		TransactionIndex: 0,
	}
	if execErr != nil {
		receipt.Status = gethTypes.ReceiptStatusFailed
	}
	logs := t.state.GetLogs(txHash, blockNumber.Uint64(), common.Hash{})
	receipt.Logs = logs
	for _, log := range logs {
		receipt.Bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			receipt.Bloom.Add(topic.Bytes())
		}
	}

	// Commit the block
	root, err := t.commitState(blockNumber.Uint64())
	if err != nil {
		return nil, err
	}
	header := &gethTypes.Header{
		ParentHash: parent.Hash,
		Root:       root,
		TxHash:     txHash,
		Bloom:      receipt.Bloom,
		Number:     blockNumber,
		Difficulty: new(big.Int),
		Time:       parent.Header.Time + 1,
	}
	results := &types.MessageResults{
		PostStateRoot:     header.Root,
		Receipt:           receipt,
		ReturnData:        frame.ReturnData,
		ExecutionError:    execErr,
		Trace:             frame,
		AdditionalResults: make(map[string]any),
	}
	block := types.NewBlock(header, []*types.CallMessage{msg}, []*types.MessageResults{results})
	receipt.BlockHash = block.Hash
	for _, log := range logs {
		log.BlockHash = block.Hash
	}
	t.blocks = append(t.blocks, block)

	t.logger.Trace("Committed block ", blockNumber.String(), " with ", len(logs), " logs")
	if err := t.Events.BlockAdded.Publish(BlockAddedEvent{Chain: t, Block: block}); err != nil {
		return results, err
	}

	if execErr != nil {
		return results, t.newExecutionRevertedError(txHash, frame, execErr)
	}
	return results, nil
}

// runPostCommit runs the post-commit step, if one is set.
func (t *TestChain) runPostCommit(results *types.MessageResults) error {
	if t.postCommitFunc == nil {
		return nil
	}
	return t.postCommitFunc(t, results)
}

// call performs a message call, recording it as a new child frame of parent (or a new root frame if parent is nil).
// Returns the recorded frame, the return data and an error if the call failed.
func (t *TestChain) call(parent *types.CallFrame, caller common.Address, origin common.Address, to common.Address, value *big.Int, input []byte, depth int) (*types.CallFrame, []byte, error) {
	frame := &types.CallFrame{
		SenderAddress:   caller,
		ToAddress:       to,
		CallValue:       new(big.Int).Set(value),
		InputData:       common.CopyBytes(input),
		ParentCallFrame: parent,
	}
	if parent != nil {
		parent.ChildCallFrames = append(parent.ChildCallFrames, frame)
	}

	snapshot := t.state.Snapshot()
	ret, err := t.execute(frame, caller, origin, to, value, input, depth)
	if err != nil {
		t.state.RevertToSnapshot(snapshot)
		t.annotateFailedFrame(frame, err)
		return frame, frame.ReturnData, err
	}
	frame.ReturnData = ret
	return frame, ret, nil
}

// execute transfers value and runs the contract at the destination address (if any) within the provided frame.
// Calls to addresses without a contract succeed after the transfer.
func (t *TestChain) execute(frame *types.CallFrame, caller common.Address, origin common.Address, to common.Address, value *big.Int, input []byte, depth int) ([]byte, error) {
	if depth > MaxCallDepth {
		return nil, NewRevertErrorWithData(nil)
	}

	if value == nil {
		value = new(big.Int)
	}
	amount, overflow := uint256.FromBig(value)
	if overflow || value.Sign() < 0 {
		return nil, errors.Errorf("invalid call value %v", value)
	}
	if err := state.Transfer(t.state, caller, to, amount); err != nil {
		if errors.Is(err, state.ErrInsufficientBalance) {
			return nil, NewRevertErrorWithData(nil)
		}
		return nil, err
	}

	contract := t.ContractAt(to)
	if contract == nil {
		return nil, nil
	}

	frame.ToContractName = contract.Name()
	if len(input) >= 4 {
		if method, err := contract.ABI().MethodById(input[:4]); err == nil {
			frame.MethodName = method.Name
		}
	}
	ctx := &CallContext{
		chain:   t,
		frame:   frame,
		depth:   depth,
		Caller:  caller,
		Origin:  origin,
		Address: to,
		Value:   new(big.Int).Set(value),
		Input:   common.CopyBytes(input),
	}
	return contract.Run(ctx)
}

// annotateFailedFrame records the failure of a call frame, along with its revert data and decoded reason.
func (t *TestChain) annotateFailedFrame(frame *types.CallFrame, err error) {
	frame.ReturnError = err
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		frame.ReturnData = revertErr.Data()
		frame.RevertReason = revertErr.Reason()
		if frame.RevertReason == "" {
			frame.RevertReason = decodeRevertReason(frame.ReturnData, t.knownABIs()...)
		}
	}
}

// knownABIs returns the ABIs of every contract deployed on the chain, in deployment order.
func (t *TestChain) knownABIs() []*abi.ABI {
	return utils.SliceSelect(t.contractOrder, func(address common.Address) *abi.ABI {
		return t.contracts[address].ABI()
	})
}

// newExecutionRevertedError creates an *ExecutionRevertedError describing a failed execution.
func (t *TestChain) newExecutionRevertedError(txHash common.Hash, frame *types.CallFrame, err error) *ExecutionRevertedError {
	return &ExecutionRevertedError{
		ChainName:  t.Name(),
		TxHash:     txHash,
		Reason:     frame.RevertReason,
		ReturnData: frame.ReturnData,
		Trace:      frame,
		Err:        err,
	}
}
