package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/crytic/relayfuzz/relay"
	"github.com/crytic/relayfuzz/utils"
	"github.com/crytic/relayfuzz/utils/randomutils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Fuzzer runs a campaign of independent trials, each relaying random proposals between two fresh chains and
// checking that receivers end up in the expected state.
type Fuzzer struct {
	// ctx describes the context for the fuzzing run, used to cancel running operations.
	ctx context.Context
	// ctxCancelFunc describes a function which can be used to cancel the fuzzing operations ctx tracks.
	ctxCancelFunc context.CancelFunc
	// ctxLock synchronizes access to ctx and ctxCancelFunc.
	ctxLock sync.Mutex

	// config describes the project configuration which the fuzzing is targeting.
	config config.ProjectConfig

	// campaignID uniquely identifies the campaign in logs and reports.
	campaignID uuid.UUID

	// seed describes the seed the trial seeds of the campaign are derived from.
	seed int64

	// metrics represents the metrics for the fuzzing campaign.
	metrics *FuzzerMetrics

	// results collects the results of the campaign's trials.
	results *FuzzerResults

	// Events describes the event system for the Fuzzer.
	Events FuzzerEvents

	// Hooks describes the replaceable functions used by the Fuzzer.
	Hooks FuzzerHooks

	// logger describes the Fuzzer's log object that can be used to log important events
	logger *logging.Logger
}

// NewFuzzer returns an instance of a new Fuzzer provided a project configuration, or an error if one is encountered
// while initializing the code.
func NewFuzzer(config config.ProjectConfig) (*Fuzzer, error) {
	// Create the sub-logger for the fuzzer
	logger := logging.GlobalLogger.NewSubLogger("module", logging.FUZZING_SERVICE)

	// Validate our provided config
	err := config.Validate()
	if err != nil {
		logger.Error("Invalid configuration", err)
		return nil, err
	}

	// Seed from the current time if no seed was provided.
	seed := config.Fuzzing.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Create and return our fuzzing instance.
	campaignID := uuid.New()
	fuzzer := &Fuzzer{
		config:     config,
		campaignID: campaignID,
		seed:       seed,
		metrics:    newFuzzerMetrics(),
		results:    NewFuzzerResults(),
		Hooks: FuzzerHooks{
			NewActionStrategyFunc: defaultNewActionStrategyFunc,
			InvariantCheckFuncs:   []InvariantCheckFunc{CheckReceiverState},
		},
		logger: logger.NewSubLogger("campaign", campaignID.String()),
	}

	// Count relayed messages of every trial
	fuzzer.Events.TrialStarting.Subscribe(fuzzer.onTrialStarting)
	return fuzzer, nil
}

// Config exposes the underlying project configuration provided to the Fuzzer.
func (f *Fuzzer) Config() config.ProjectConfig {
	return f.config
}

// CampaignID returns the unique id of the campaign.
func (f *Fuzzer) CampaignID() uuid.UUID {
	return f.campaignID
}

// Seed returns the seed the trial seeds of the campaign are derived from.
func (f *Fuzzer) Seed() int64 {
	return f.seed
}

// Metrics exposes the metrics of the campaign.
func (f *Fuzzer) Metrics() *FuzzerMetrics {
	return f.metrics
}

// Results exposes the results of the campaign's trials.
func (f *Fuzzer) Results() *FuzzerResults {
	return f.results
}

// TrialSeeds returns the seed of every trial of the campaign. Trial seeds only depend on the campaign seed, so a trial
// is reproducible regardless of which worker runs it.
func (f *Fuzzer) TrialSeeds() []int64 {
	randomProvider := rand.New(rand.NewSource(f.seed))
	seeds := make([]int64, f.config.Fuzzing.TrialCount)
	for i := range seeds {
		seeds[i] = randomutils.ForkSeed(randomProvider)
	}
	return seeds
}

// onTrialStarting subscribes the campaign metrics to the relayer of a starting trial.
func (f *Fuzzer) onTrialStarting(event TrialStartingEvent) error {
	f.metrics.trialsStarted.Add(1)
	event.Runner.Relayer().Events.MessageRelayed.Subscribe(func(relay.MessageRelayedEvent) error {
		f.metrics.messagesRelayed.Add(1)
		return nil
	})
	return nil
}

// newTrialRunner returns a TrialRunner bound to the Fuzzer for the trial at trialIndex.
func (f *Fuzzer) newTrialRunner(trialIndex int, seed int64) *TrialRunner {
	runner := NewTrialRunner(&f.config, trialIndex, seed)
	runner.fuzzer = f
	runner.logger = f.logger.NewSubLogger("trial", fmt.Sprintf("%d", trialIndex))
	return runner
}

// RunTrial sets up and runs a single trial with the provided seed. Failures are recorded in the Fuzzer's results and
// reported in the returned TrialResult.
// Returns an error if the trial could not be set up or run.
func (f *Fuzzer) RunTrial(ctx context.Context, trialIndex int, seed int64) (*TrialResult, error) {
	runner := f.newTrialRunner(trialIndex, seed)
	defer runner.Close()
	err := runner.Setup()
	if err != nil {
		return nil, err
	}

	err = f.Events.TrialStarting.Publish(TrialStartingEvent{Runner: runner})
	if err != nil {
		return nil, err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	f.results.addTrialResult(result)
	f.metrics.trialsFinished.Add(1)

	if result.Failed() {
		f.metrics.trialsFailed.Add(1)
		f.logger.Error("Trial ", trialIndex, " failed", result.Failure.Log())
	} else {
		f.logger.Debug("Trial ", trialIndex, " finished after ", result.ActionsExecuted, " actions")
	}

	err = f.Events.TrialFinished.Publish(TrialFinishedEvent{Runner: runner, Result: result})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runTrialsLoop runs every trial of the campaign across the configured amount of workers, until every trial ran or
// Fuzzer.ctx is cancelled. Returns the first error a trial could not be run with.
func (f *Fuzzer) runTrialsLoop(ctx context.Context) error {
	f.logger.Info("Running ", f.config.Fuzzing.TrialCount, " trials with ", f.config.Fuzzing.Workers, " workers")

	group := new(errgroup.Group)
	group.SetLimit(f.config.Fuzzing.Workers)
	for trialIndex, seed := range f.TrialSeeds() {
		// Go blocks until a worker is free, so the context is checked before every trial.
		if utils.CheckContextDone(ctx) {
			break
		}
		trialIndex, seed := trialIndex, seed
		group.Go(func() error {
			// The campaign may have stopped while this trial waited for a worker.
			if utils.CheckContextDone(ctx) {
				return nil
			}
			result, err := f.RunTrial(ctx, trialIndex, seed)
			if err != nil {
				f.Stop()
				return err
			}
			if result.Failed() && f.config.Fuzzing.StopOnFailedTrial {
				f.Stop()
			}
			return nil
		})
	}
	return group.Wait()
}

// Start begins a fuzzing campaign using the provided project configuration. This operation will not return until an
// error is encountered, every trial ran or the campaign was cancelled. Its execution can be cancelled using the Stop
// method or the provided context.
// Returns an error if a trial could not be run. Trial failures are reported through Results.
func (f *Fuzzer) Start(ctx context.Context) error {
	// Create our running context (allows us to cancel across threads)
	f.ctxLock.Lock()
	f.ctx, f.ctxCancelFunc = context.WithCancel(ctx)

	// If we set a timeout, create the timeout context now, as we're about to begin fuzzing.
	if f.config.Fuzzing.Timeout > 0 {
		f.logger.Info("Running with a timeout of ", colors.Bold, f.config.Fuzzing.Timeout, " seconds")
		timeoutCtx, timeoutCancel := context.WithTimeout(f.ctx, time.Duration(f.config.Fuzzing.Timeout)*time.Second)
		cancel := f.ctxCancelFunc
		f.ctx, f.ctxCancelFunc = timeoutCtx, func() { timeoutCancel(); cancel() }
	}
	runCtx := f.ctx
	f.ctxLock.Unlock()
	defer f.Stop()

	f.logger.Info("Starting campaign ", colors.Bold, f.campaignID.String(), colors.Reset, " with seed ", f.seed)

	// Publish a fuzzer starting event.
	err := f.Events.FuzzerStarting.Publish(FuzzerStartingEvent{Fuzzer: f})
	if err != nil {
		return err
	}

	// Start our printing loop now that we're about to begin fuzzing.
	printLoopDone := make(chan struct{})
	go func() {
		f.runMetricsPrintLoop(runCtx)
		close(printLoopDone)
	}()

	// Run the main trial loop
	err = f.runTrialsLoop(runCtx)

	// Stop the metrics loop and print a final update
	f.Stop()
	<-printLoopDone
	f.printMetrics()

	// Publish a fuzzer stopping event.
	fuzzerStoppingErr := f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: err})
	if err == nil && fuzzerStoppingErr != nil {
		err = fuzzerStoppingErr
	}

	// Report the results
	failures := f.results.FailedTrials()
	if len(failures) == 0 {
		f.logger.Info(colors.GreenBold, fmt.Sprintf("%d trials passed", len(f.results.TrialResults())), colors.Reset)
	} else {
		f.logger.Error(colors.RedBold, fmt.Sprintf("%d of %d trials failed", len(failures), len(f.results.TrialResults())), colors.Reset)
	}
	return err
}

// Stop stops a running operation invoked by the Start method. This method may return before complete operation
// teardown occurs. Trials stop between two actions.
func (f *Fuzzer) Stop() {
	f.ctxLock.Lock()
	defer f.ctxLock.Unlock()

	// Call the cancel function on our running context to stop all working goroutines
	if f.ctxCancelFunc != nil {
		f.ctxCancelFunc()
	}
}

// printMetrics logs the current metrics of the campaign.
func (f *Fuzzer) printMetrics() {
	f.logger.Info(
		"trials: ", colors.Bold, fmt.Sprintf("%d/%d", f.metrics.TrialsFinished(), f.config.Fuzzing.TrialCount), colors.Reset,
		", failed: ", colors.Bold, f.metrics.TrialsFailed(), colors.Reset,
		", actions: ", colors.Bold, f.metrics.ActionsExecuted(), colors.Reset,
		", relayed: ", colors.Bold, f.metrics.MessagesRelayed(), colors.Reset,
	)
}

// runMetricsPrintLoop prints metrics to the console in a loop until ctx signals a stopped operation.
func (f *Fuzzer) runMetricsPrintLoop(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.printMetrics()
		}
	}
}
