package fuzzing

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/contracts"
	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/crytic/relayfuzz/fuzzing/proposals"
	"github.com/crytic/relayfuzz/fuzzing/tracker"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/relay"
	"github.com/crytic/relayfuzz/utils"
	"github.com/crytic/relayfuzz/utils/randomutils"
	"github.com/pkg/errors"
)

// TrialRunner runs a single trial: it sets up two fresh chains connected by a relayer, then executes random actions,
// checking invariants after each one. A TrialRunner owns every piece of state of its trial and is not thread safe.
type TrialRunner struct {
	// trialIndex describes the index of the trial in its campaign.
	trialIndex int

	// seed describes the seed the trial's random provider was created with.
	seed int64

	// config describes the project configuration of the trial.
	config *config.ProjectConfig

	// fuzzer describes the Fuzzer running the trial, or nil if the trial runs on its own.
	fuzzer *Fuzzer

	// randomProvider offers a source of random data for every random decision of the trial.
	randomProvider *rand.Rand

	// chains describes the two chains of the trial, in configuration order.
	chains [2]*chain.TestChain

	// deployments describes the proposal relaying contracts deployed on each chain.
	deployments [2]*contracts.Deployment

	// receivers describes the receiver pool of each chain.
	receivers [2][]common.Address

	// callers describes the accounts of each chain authorized to submit proposals.
	callers [2][]common.Address

	// relayer relays messages between the two chains.
	relayer *relay.Relayer

	// tracker records the expected state of the receivers.
	tracker *tracker.Tracker

	// generator produces the proposals submitted by actions.
	generator *proposals.RandomGenerator

	// strategy selects the actions of the trial.
	strategy ActionStrategy

	// sequence describes the actions executed so far.
	sequence ActionSequence

	// logger describes the logger of the trial.
	logger *logging.Logger
}

// NewTrialRunner returns a TrialRunner for the trial at trialIndex, drawing all of its randomness from seed. The
// trial must be set up before it is run.
func NewTrialRunner(projectConfig *config.ProjectConfig, trialIndex int, seed int64) *TrialRunner {
	return &TrialRunner{
		trialIndex:     trialIndex,
		seed:           seed,
		config:         projectConfig,
		randomProvider: rand.New(rand.NewSource(seed)),
		sequence:       make(ActionSequence, 0),
		logger:         logging.GlobalLogger.NewSubLogger("module", logging.FUZZING_SERVICE).NewSubLogger("trial", fmt.Sprintf("%d", trialIndex)),
	}
}

// TrialIndex returns the index of the trial in its campaign.
func (r *TrialRunner) TrialIndex() int {
	return r.trialIndex
}

// Seed returns the seed of the trial.
func (r *TrialRunner) Seed() int64 {
	return r.seed
}

// Chains returns the two chains of the trial.
func (r *TrialRunner) Chains() [2]*chain.TestChain {
	return r.chains
}

// Deployment returns the contracts deployed on the chain at index.
func (r *TrialRunner) Deployment(index int) *contracts.Deployment {
	return r.deployments[index]
}

// Receivers returns the receiver pool of the chain at index.
func (r *TrialRunner) Receivers(index int) []common.Address {
	return append([]common.Address(nil), r.receivers[index]...)
}

// Callers returns the authorized callers of the chain at index.
func (r *TrialRunner) Callers(index int) []common.Address {
	return append([]common.Address(nil), r.callers[index]...)
}

// Relayer returns the relayer of the trial.
func (r *TrialRunner) Relayer() *relay.Relayer {
	return r.relayer
}

// Tracker returns the expected state tracker of the trial.
func (r *TrialRunner) Tracker() *tracker.Tracker {
	return r.tracker
}

// Generator returns the proposal generator of the trial.
func (r *TrialRunner) Generator() *proposals.RandomGenerator {
	return r.generator
}

// Sequence returns the actions executed so far.
func (r *TrialRunner) Sequence() ActionSequence {
	return append(ActionSequence(nil), r.sequence...)
}

// SetActionStrategy replaces the strategy selecting the actions of the trial.
func (r *TrialRunner) SetActionStrategy(strategy ActionStrategy) {
	r.strategy = strategy
}

// Setup creates the chains of the trial and deploys the proposal relaying contracts, receivers and cross-chain
// whitelists. The relayer starts with a zero command counter and the tracker starts empty.
// Returns an error if one occurs.
func (r *TrialRunner) Setup() error {
	// Create fresh chains and deploy the relaying contracts
	for i := range r.chains {
		testChain, err := chain.NewTestChain(r.config.Chains[i])
		if err != nil {
			return err
		}
		r.chains[i] = testChain

		r.deployments[i], err = contracts.Deploy(testChain)
		if err != nil {
			return err
		}

		// The operator is privileged, callers are sampled from the remaining accounts
		candidates := utils.SliceWhere(testChain.AccountAddresses(), func(address common.Address) bool {
			return address != testChain.Operator()
		})
		r.callers[i] = randomutils.SampleDistinct(r.randomProvider, candidates, r.config.Fuzzing.CallerPoolSize)

		r.receivers[i], err = contracts.DeployReceivers(testChain, r.config.Fuzzing.ReceiverPoolSize)
		if err != nil {
			return err
		}
	}

	// Each executor trusts the sender and the callers of the other chain
	for i := range r.chains {
		other := 1 - i
		executor := r.deployments[i].Executor
		sourceChain := r.chains[other].Name()
		err := contracts.SetWhitelistedProposalSender(r.chains[i], executor, sourceChain, r.deployments[other].Sender, true)
		if err != nil {
			return err
		}
		for _, caller := range r.callers[other] {
			err = contracts.SetWhitelistedProposalCaller(r.chains[i], executor, sourceChain, caller, true)
			if err != nil {
				return err
			}
		}
	}

	// Connect the chains
	relayer, err := relay.NewRelayer(
		relay.Endpoint{Chain: r.chains[0], Gateway: r.deployments[0].Gateway},
		relay.Endpoint{Chain: r.chains[1], Gateway: r.deployments[1].Gateway},
	)
	if err != nil {
		return err
	}
	relayer.Attach()
	r.relayer = relayer
	r.tracker = tracker.NewTracker()

	r.generator = proposals.NewRandomGenerator(proposals.GeneratorConfig{
		MaxCalls:       r.config.Fuzzing.MaxCallsPerProposal,
		MaxCallValue:   r.config.Fuzzing.MaxCallValue,
		MaxPayloadSize: r.config.Fuzzing.MaxPayloadSize,
	}, r.randomProvider)
	if r.strategy == nil {
		if r.fuzzer != nil {
			r.strategy, err = r.fuzzer.Hooks.NewActionStrategyFunc(r.fuzzer, r.randomProvider)
		} else {
			r.strategy, err = NewWeightedActionStrategy(DefaultActions(), r.config.Fuzzing.ActionWeights, r.randomProvider)
		}
		if err != nil {
			return err
		}
	}
	r.sequence = make(ActionSequence, 0)

	// Run any additional setup
	if r.fuzzer != nil && r.fuzzer.Hooks.TrialSetupFunc != nil {
		if err = r.fuzzer.Hooks.TrialSetupFunc(r); err != nil {
			return err
		}
	}

	r.logger.Debug("Trial set up with seed ", r.seed)
	return nil
}

// ExecuteAction executes an action and records it in the trial's action sequence, even if it fails.
// Returns an error if the action failed.
func (r *TrialRunner) ExecuteAction(action Action) error {
	record := &ActionRecord{
		Index:  len(r.sequence),
		Action: action.Name(),
	}
	r.sequence = append(r.sequence, record)
	err := action.Execute(r, record)

	if r.fuzzer != nil {
		r.fuzzer.metrics.actionsExecuted.Add(1)
		publishErr := r.fuzzer.Events.ActionExecuted.Publish(ActionExecutedEvent{Runner: r, Record: record, Err: err})
		if err == nil {
			err = publishErr
		}
	}
	return err
}

// SendProposal funds the executor of the other chain with the value of the proposal, then submits the proposal to
// the sender of the chain at source from caller, which relays it before returning. Once relayed, the tracker expects
// every call of the proposal, in order. The action is described in record.
// Returns an error if funding, submission or relay failed.
func (r *TrialRunner) SendProposal(record *ActionRecord, source int, caller common.Address, proposal *proposals.Proposal) error {
	sourceChain := r.chains[source]
	destinationChain := r.chains[1-source]
	record.SourceChain = sourceChain.Name()
	record.DestinationChain = destinationChain.Name()
	record.Caller = caller
	record.Proposal = proposal

	// The executor forwards the value of every call, so it must hold it before the proposal arrives.
	if value := proposal.TotalCallValue(); value.Sign() > 0 {
		executor := r.deployments[1-source].Executor
		_, err := destinationChain.Transfer(destinationChain.Operator(), executor, value)
		if err != nil {
			return errors.Wrapf(err, "failed to fund executor on chain '%s'", destinationChain.Name())
		}
	}

	firstDelivery := len(r.relayer.Deliveries())
	_, err := contracts.SendProposals(sourceChain, r.deployments[source].Sender, caller, new(big.Int),
		[]contracts.InterchainCall{proposal.ToInterchainCall()})
	for _, delivery := range r.relayer.Deliveries()[firstDelivery:] {
		record.CommandIDs = append(record.CommandIDs, delivery.CommandID)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to send proposals from chain '%s'", sourceChain.Name())
	}

	// Later calls to the same receiver overwrite earlier ones
	for _, call := range proposal.Calls {
		r.tracker.Record(destinationChain.Name(), call.Target(), call.CallData(), call.Value())
	}
	return nil
}

// CheckInvariants runs every invariant check of the trial. Without a Fuzzer, only the receiver state invariant is
// checked. Returns the first violation encountered.
func (r *TrialRunner) CheckInvariants() error {
	checks := []InvariantCheckFunc{CheckReceiverState}
	if r.fuzzer != nil {
		checks = r.fuzzer.Hooks.InvariantCheckFuncs
	}
	for _, check := range checks {
		if err := check(r); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the chains created by Setup. The runner must not be used afterwards.
func (r *TrialRunner) Close() {
	for _, testChain := range r.chains {
		if testChain != nil {
			testChain.Close()
		}
	}
}

// Run executes up to the configured amount of actions, checking invariants after each one, and once after setup if
// configured. The trial stops at the first failed action or invariant violation, or when ctx is cancelled between
// actions. The trial must be set up before it is run.
// Returns the result of the trial, or an error if the trial could not be run.
func (r *TrialRunner) Run(ctx context.Context) (*TrialResult, error) {
	if r.relayer == nil {
		return nil, errors.New("trial must be set up before it is run")
	}
	defer r.relayer.Detach()

	result := &TrialResult{
		TrialIndex: r.trialIndex,
		Seed:       r.seed,
	}
	fail := func(err error) (*TrialResult, error) {
		result.ActionsExecuted = len(r.sequence)
		result.MessagesRelayed = r.relayer.CommandCounter()
		result.Failure = &TrialFailure{
			TrialIndex: r.trialIndex,
			Seed:       r.seed,
			Sequence:   r.Sequence(),
			Err:        err,
		}
		return result, nil
	}

	if r.config.Fuzzing.CheckInvariantsAfterSetup {
		if err := r.CheckInvariants(); err != nil {
			return fail(err)
		}
	}

	for i := 0; i < r.config.Fuzzing.ActionsPerTrial; i++ {
		if utils.CheckContextDone(ctx) {
			result.ActionsExecuted = len(r.sequence)
			result.MessagesRelayed = r.relayer.CommandCounter()
			return result, nil
		}

		action, err := r.strategy.NextAction()
		if err != nil {
			return nil, err
		}
		if err = r.ExecuteAction(action); err != nil {
			return fail(err)
		}
		if err = r.CheckInvariants(); err != nil {
			return fail(err)
		}
	}

	result.ActionsExecuted = len(r.sequence)
	result.MessagesRelayed = r.relayer.CommandCounter()
	result.Completed = true
	return result, nil
}
