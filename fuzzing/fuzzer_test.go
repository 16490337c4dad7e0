package fuzzing

import (
	"context"
	"math/big"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/contracts"
	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/crytic/relayfuzz/fuzzing/proposals"
	"github.com/crytic/relayfuzz/relay"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedProposalAction is an Action submitting a predetermined proposal from the first authorized caller of a chain.
type fixedProposalAction struct {
	// source describes the index of the chain the proposal is submitted on.
	source int

	// calls describes the calls of the proposal, as (receiver index, value, payload) of the destination chain.
	calls []fixedCall
}

// fixedCall describes a call of a fixedProposalAction.
type fixedCall struct {
	receiver int
	value    int64
	payload  []byte
}

// Name returns the name of the action.
func (a *fixedProposalAction) Name() string {
	return "fixed_proposal"
}

// Execute submits the proposal.
func (a *fixedProposalAction) Execute(runner *TrialRunner, record *ActionRecord) error {
	destination := 1 - a.source
	receivers := runner.Receivers(destination)
	calls := make([]proposals.Call, len(a.calls))
	for i, call := range a.calls {
		calls[i] = proposals.NewCall(receivers[call.receiver], big.NewInt(call.value), call.payload)
	}
	proposal := proposals.NewProposal(runner.Chains()[destination].Name(), runner.Deployment(destination).Executor, calls)
	return runner.SendProposal(record, a.source, runner.Callers(a.source)[0], proposal)
}

// getFuzzingTestConfig returns a small, deterministic project configuration.
func getFuzzingTestConfig() *config.ProjectConfig {
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Fuzzing.TrialCount = 2
	projectConfig.Fuzzing.ActionsPerTrial = 15
	projectConfig.Fuzzing.MaxCallsPerProposal = 6
	projectConfig.Fuzzing.MaxPayloadSize = 64
	projectConfig.Fuzzing.Seed = 7
	return projectConfig
}

// newTestTrialRunner returns a TrialRunner which was set up using the provided config.
func newTestTrialRunner(t *testing.T, projectConfig *config.ProjectConfig) *TrialRunner {
	runner := NewTrialRunner(projectConfig, 0, 1)
	require.NoError(t, runner.Setup())
	t.Cleanup(runner.Relayer().Detach)
	return runner
}

// requireReceiver asserts the payload and value last recorded by a receiver.
func requireReceiver(t *testing.T, runner *TrialRunner, index int, receiver int, payload []byte, value int64) {
	recordedPayload, recordedValue, err := contracts.ReadReceiver(runner.Chains()[index], runner.Receivers(index)[receiver])
	require.NoError(t, err)
	assert.EqualValues(t, payload, recordedPayload)
	assert.EqualValues(t, value, recordedValue.Int64())
}

// TestTrialSetup ensures a trial is set up with distinct non-operator callers, fresh receivers, an empty tracker and a
// zero command counter.
func TestTrialSetup(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	for i, testChain := range runner.Chains() {
		callers := runner.Callers(i)
		require.Len(t, callers, 5)
		seen := make(map[common.Address]bool)
		for _, caller := range callers {
			assert.NotEqualValues(t, testChain.Operator(), caller)
			assert.False(t, seen[caller])
			seen[caller] = true
		}
		assert.Len(t, runner.Receivers(i), 5)
	}
	assert.Zero(t, runner.Relayer().CommandCounter())
	assert.Zero(t, runner.Tracker().Len())
	require.NoError(t, runner.CheckInvariants())
}

// TestSendProposalToReceiver sends one call from chain1 to receiver #3 of chain2 and ensures only that receiver
// changed, and that exactly one command was relayed.
func TestSendProposalToReceiver(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	action := &fixedProposalAction{source: 0, calls: []fixedCall{{receiver: 3, value: 500, payload: []byte{0x01, 0x02}}}}
	require.NoError(t, runner.ExecuteAction(action))

	requireReceiver(t, runner, 1, 3, []byte{0x01, 0x02}, 500)
	for i := 0; i < 5; i++ {
		requireReceiver(t, runner, 0, i, []byte{}, 0)
		if i != 3 {
			requireReceiver(t, runner, 1, i, []byte{}, 0)
		}
	}
	assert.EqualValues(t, 1, runner.Relayer().CommandCounter())
	require.NoError(t, runner.CheckInvariants())

	sequence := runner.Sequence()
	require.Len(t, sequence, 1)
	assert.EqualValues(t, "chain1", sequence[0].SourceChain)
	assert.EqualValues(t, "chain2", sequence[0].DestinationChain)
	assert.EqualValues(t, []common.Hash{relay.CommandID(0)}, sequence[0].CommandIDs)
}

// TestSendEmptyProposal ensures an empty proposal is relayed without funding the executor or changing any receiver.
func TestSendEmptyProposal(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	executorBalance := runner.Chains()[1].BalanceAt(runner.Deployment(1).Executor)
	require.NoError(t, runner.ExecuteAction(&fixedProposalAction{source: 0}))

	assert.EqualValues(t, 0, executorBalance.Cmp(runner.Chains()[1].BalanceAt(runner.Deployment(1).Executor)))
	assert.EqualValues(t, 1, runner.Relayer().CommandCounter())
	assert.Zero(t, runner.Tracker().Len())
	require.NoError(t, runner.CheckInvariants())
}

// TestDuplicateTargetKeepsLastCall ensures a proposal calling the same receiver twice leaves only its last call.
func TestDuplicateTargetKeepsLastCall(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	require.NoError(t, runner.ExecuteAction(&fixedProposalAction{source: 1, calls: []fixedCall{
		{receiver: 2, value: 10, payload: []byte{0xaa}},
		{receiver: 2, value: 20, payload: []byte{0xbb, 0xcc}},
	}}))

	requireReceiver(t, runner, 0, 2, []byte{0xbb, 0xcc}, 20)
	expectation := runner.Tracker().Expected("chain1", runner.Receivers(0)[2])
	assert.EqualValues(t, []byte{0xbb, 0xcc}, expectation.Payload)
	assert.EqualValues(t, 20, expectation.Value.Int64())
	require.NoError(t, runner.CheckInvariants())
}

// TestSequentialActionsSameReceiver ensures the second of two actions targeting the same receiver is observed.
func TestSequentialActionsSameReceiver(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	require.NoError(t, runner.ExecuteAction(&fixedProposalAction{source: 0, calls: []fixedCall{{receiver: 1, value: 3, payload: []byte{0x01}}}}))
	require.NoError(t, runner.CheckInvariants())
	require.NoError(t, runner.ExecuteAction(&fixedProposalAction{source: 0, calls: []fixedCall{{receiver: 1, value: 4, payload: []byte{0x02}}}}))
	require.NoError(t, runner.CheckInvariants())

	requireReceiver(t, runner, 1, 1, []byte{0x02}, 4)
	sequence := runner.Sequence()
	require.Len(t, sequence, 2)
	assert.EqualValues(t, []common.Hash{relay.CommandID(1)}, sequence[1].CommandIDs)
}

// TestInvariantViolationDetected ensures a tracker diverging from the receivers is reported with every mismatch.
func TestInvariantViolationDetected(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	require.NoError(t, runner.ExecuteAction(&fixedProposalAction{source: 0, calls: []fixedCall{{receiver: 0, value: 1, payload: []byte{0x01}}}}))

	// Expect a call which was never made
	runner.Tracker().Record("chain1", runner.Receivers(0)[4], []byte{0x09}, big.NewInt(9))
	err := runner.CheckInvariants()
	var violation *InvariantViolationError
	require.True(t, errors.As(err, &violation))
	require.Len(t, violation.Mismatches, 1)
	mismatch := violation.Mismatches[0]
	assert.EqualValues(t, "chain1", mismatch.Chain)
	assert.EqualValues(t, runner.Receivers(0)[4], mismatch.Receiver)
	assert.EqualValues(t, []byte{0x09}, mismatch.ExpectedPayload)
	assert.Empty(t, mismatch.ObservedPayload)
	assert.NotEmpty(t, mismatch.Diff)
}

// TestRemovedCallerRejected ensures a proposal from a caller removed from the destination whitelist fails to be
// delivered, and that the failing action is still recorded.
func TestRemovedCallerRejected(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	action := &fixedProposalAction{source: 0, calls: []fixedCall{{receiver: 0, value: 0, payload: []byte{0x01}}}}
	require.NoError(t, runner.ExecuteAction(action))

	err := contracts.SetWhitelistedProposalCaller(runner.Chains()[1], runner.Deployment(1).Executor, "chain1", runner.Callers(0)[0], false)
	require.NoError(t, err)

	err = runner.ExecuteAction(action)
	var revertErr *chain.ExecutionRevertedError
	require.True(t, errors.As(err, &revertErr))
	assert.EqualValues(t, "NotWhitelistedCaller()", revertErr.Reason)
	assert.Len(t, runner.Sequence(), 2)
	assert.EqualValues(t, 1, runner.Relayer().CommandCounter())
}

// TestTrialRun ensures a trial of random actions completes, relaying one message per action under strictly
// increasing command ids.
func TestTrialRun(t *testing.T) {
	projectConfig := getFuzzingTestConfig()
	runner := NewTrialRunner(projectConfig, 0, 11)
	require.NoError(t, runner.Setup())
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.False(t, result.Failed(), "trial failed: %v", result.Failure)
	assert.True(t, result.Completed)
	assert.EqualValues(t, projectConfig.Fuzzing.ActionsPerTrial, result.ActionsExecuted)
	assert.EqualValues(t, projectConfig.Fuzzing.ActionsPerTrial, result.MessagesRelayed)

	for i, delivery := range runner.Relayer().Deliveries() {
		assert.EqualValues(t, relay.CommandID(uint64(i)), delivery.CommandID)
	}
	for i, record := range runner.Sequence() {
		assert.EqualValues(t, SendProposalsActionName, record.Action)
		assert.EqualValues(t, []common.Hash{relay.CommandID(uint64(i))}, record.CommandIDs)
	}
}

// TestTrialRunRequiresSetup ensures a trial cannot run before it was set up.
func TestTrialRunRequiresSetup(t *testing.T) {
	_, err := NewTrialRunner(getFuzzingTestConfig(), 0, 1).Run(context.Background())
	assert.Error(t, err)
}

// TestTrialRunCancelled ensures a cancelled trial stops before executing actions, without failing.
func TestTrialRunCancelled(t *testing.T) {
	runner := newTestTrialRunner(t, getFuzzingTestConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.False(t, result.Completed)
	assert.Zero(t, result.ActionsExecuted)
}

// TestFuzzerRunsAllTrials ensures every trial of a campaign runs across workers and that metrics account for them.
func TestFuzzerRunsAllTrials(t *testing.T) {
	projectConfig := getFuzzingTestConfig()
	projectConfig.Fuzzing.TrialCount = 3
	projectConfig.Fuzzing.ActionsPerTrial = 10
	projectConfig.Fuzzing.Workers = 2
	fuzzer, err := NewFuzzer(*projectConfig)
	require.NoError(t, err)
	require.NoError(t, fuzzer.Start(context.Background()))

	require.NoError(t, fuzzer.Results().Err())
	results := fuzzer.Results().TrialResults()
	require.Len(t, results, 3)
	for i, result := range results {
		assert.EqualValues(t, i, result.TrialIndex)
		assert.True(t, result.Completed)
	}
	assert.EqualValues(t, 3, fuzzer.Metrics().TrialsStarted())
	assert.EqualValues(t, 3, fuzzer.Metrics().TrialsFinished())
	assert.EqualValues(t, 30, fuzzer.Metrics().ActionsExecuted())
	assert.EqualValues(t, 30, fuzzer.Metrics().MessagesRelayed())
	assert.Zero(t, fuzzer.Metrics().TrialsFailed())
}

// TestFuzzerReportsFailedTrial ensures a failing invariant aborts its trial, is reported with the action sequence
// which led to it, and stops the campaign.
func TestFuzzerReportsFailedTrial(t *testing.T) {
	projectConfig := getFuzzingTestConfig()
	fuzzer, err := NewFuzzer(*projectConfig)
	require.NoError(t, err)

	violation := errors.New("violated after three actions")
	fuzzer.Hooks.InvariantCheckFuncs = append(fuzzer.Hooks.InvariantCheckFuncs, func(runner *TrialRunner) error {
		if len(runner.Sequence()) == 3 {
			return violation
		}
		return nil
	})
	require.NoError(t, fuzzer.Start(context.Background()))

	failures := fuzzer.Results().FailedTrials()
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], violation)
	assert.Len(t, failures[0].Sequence, 3)
	assert.EqualValues(t, fuzzer.TrialSeeds()[0], failures[0].Seed)
	assert.Contains(t, failures[0].Log().String(), "Action sequence")
	assert.Error(t, fuzzer.Results().Err())

	// The campaign stopped after the first failure
	assert.Len(t, fuzzer.Results().TrialResults(), 1)
}

// TestFuzzerTrialReplay ensures replaying a trial seed reproduces the same action sequence.
func TestFuzzerTrialReplay(t *testing.T) {
	projectConfig := getFuzzingTestConfig()
	sequences := make([]string, 0)
	for i := 0; i < 2; i++ {
		fuzzer, err := NewFuzzer(*projectConfig)
		require.NoError(t, err)
		fuzzer.Events.TrialFinished.Subscribe(func(event TrialFinishedEvent) error {
			sequences = append(sequences, event.Runner.Sequence().String())
			return nil
		})
		result, err := fuzzer.RunTrial(context.Background(), 0, 99)
		require.NoError(t, err)
		assert.True(t, result.Completed)
	}
	require.Len(t, sequences, 2)
	assert.EqualValues(t, sequences[0], sequences[1])
}

// TestWeightedActionStrategy ensures action weights are validated.
func TestWeightedActionStrategy(t *testing.T) {
	projectConfig := getFuzzingTestConfig()
	runner := newTestTrialRunner(t, projectConfig)

	_, err := NewWeightedActionStrategy(DefaultActions(), map[string]uint64{"unknown": 1}, runner.randomProvider)
	assert.Error(t, err)
	_, err = NewWeightedActionStrategy(DefaultActions(), map[string]uint64{SendProposalsActionName: 0}, runner.randomProvider)
	assert.Error(t, err)

	strategy, err := NewWeightedActionStrategy(DefaultActions(), map[string]uint64{SendProposalsActionName: 3}, runner.randomProvider)
	require.NoError(t, err)
	action, err := strategy.NextAction()
	require.NoError(t, err)
	assert.EqualValues(t, SendProposalsActionName, action.Name())
}
