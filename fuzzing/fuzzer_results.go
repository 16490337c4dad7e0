package fuzzing

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ReceiverMismatch describes a receiver whose recorded last call differs from the expected one.
type ReceiverMismatch struct {
	// Chain describes the name of the chain the receiver is deployed on.
	Chain string

	// Receiver describes the address of the receiver.
	Receiver common.Address

	// ExpectedPayload and ExpectedValue describe the last call the receiver should have recorded.
	ExpectedPayload []byte
	ExpectedValue   *big.Int

	// ObservedPayload and ObservedValue describe the last call the receiver recorded.
	ObservedPayload []byte
	ObservedValue   *big.Int

	// Diff describes the difference between the expected and observed calls.
	Diff string
}

// String returns a human readable representation of the mismatch.
func (m ReceiverMismatch) String() string {
	return fmt.Sprintf("receiver %v on chain '%s': expected (%v, %v), observed (%v, %v)",
		m.Receiver.Hex(), m.Chain,
		hexutil.Encode(m.ExpectedPayload), m.ExpectedValue,
		hexutil.Encode(m.ObservedPayload), m.ObservedValue,
	)
}

// InvariantViolationError is returned when the state of receivers diverges from the expected state.
type InvariantViolationError struct {
	// Mismatches describes every receiver whose state diverged.
	Mismatches []ReceiverMismatch
}

// Error returns the error message.
func (e *InvariantViolationError) Error() string {
	lines := make([]string, len(e.Mismatches))
	for i, mismatch := range e.Mismatches {
		lines[i] = mismatch.String()
	}
	return fmt.Sprintf("receiver state diverged from expected state:\n%s", strings.Join(lines, "\n"))
}

// TrialFailure describes a trial aborted by a failed action or an invariant violation.
type TrialFailure struct {
	// TrialIndex describes the index of the failed trial in its campaign.
	TrialIndex int

	// Seed describes the seed of the failed trial, with which it can be replayed.
	Seed int64

	// Sequence describes the actions executed in the trial, up to and including the failing one.
	Sequence ActionSequence

	// Err describes the cause of the failure.
	Err error
}

// Error returns the error message.
func (f *TrialFailure) Error() string {
	return fmt.Sprintf("trial %d (seed %d) failed after %d actions: %v", f.TrialIndex, f.Seed, len(f.Sequence), f.Err)
}

// Unwrap returns the cause of the failure.
func (f *TrialFailure) Unwrap() error {
	return f.Err
}

// Log returns a logging.LogBuffer describing the failure: its cause, the revert trace if a transaction reverted, and
// the action sequence which led to it.
func (f *TrialFailure) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append(colors.RedBold, fmt.Sprintf("[FAILED] Trial %d (seed %d)", f.TrialIndex, f.Seed), colors.Reset, "\n")
	buffer.Append(f.Err.Error(), "\n")

	var revertErr *chain.ExecutionRevertedError
	if errors.As(f.Err, &revertErr) && revertErr.Trace != nil {
		buffer.Append(colors.Bold, "Revert trace:", colors.Reset, "\n")
		buffer.Append(revertErr.Trace.Log().Args()...)
		buffer.Append("\n")
	}

	buffer.Append(colors.Bold, "Action sequence:", colors.Reset, "\n")
	buffer.Append(f.Sequence.Log().Args()...)
	return buffer
}

// TrialResult describes the outcome of a single trial.
type TrialResult struct {
	// TrialIndex describes the index of the trial in its campaign.
	TrialIndex int

	// Seed describes the seed of the trial.
	Seed int64

	// ActionsExecuted describes the amount of actions the trial executed.
	ActionsExecuted int

	// MessagesRelayed describes the amount of cross-chain messages relayed in the trial.
	MessagesRelayed uint64

	// Completed indicates whether the trial executed every action without being cancelled or failing.
	Completed bool

	// Failure describes the failure of the trial, or nil if it did not fail.
	Failure *TrialFailure
}

// Failed indicates whether the trial failed.
func (r *TrialResult) Failed() bool {
	return r.Failure != nil
}

// FuzzerResults collects the results of the trials of a campaign. It is safe for concurrent use.
type FuzzerResults struct {
	trials     []*TrialResult
	trialsLock sync.Mutex
}

// NewFuzzerResults returns an empty FuzzerResults.
func NewFuzzerResults() *FuzzerResults {
	return &FuzzerResults{
		trials: make([]*TrialResult, 0),
	}
}

// addTrialResult records the result of a trial.
func (r *FuzzerResults) addTrialResult(result *TrialResult) {
	r.trialsLock.Lock()
	defer r.trialsLock.Unlock()
	r.trials = append(r.trials, result)
}

// TrialResults returns the results of every finished trial, sorted by trial index.
func (r *FuzzerResults) TrialResults() []*TrialResult {
	r.trialsLock.Lock()
	trials := append([]*TrialResult(nil), r.trials...)
	r.trialsLock.Unlock()

	sort.Slice(trials, func(i, j int) bool {
		return trials[i].TrialIndex < trials[j].TrialIndex
	})
	return trials
}

// FailedTrials returns the failure of every failed trial, sorted by trial index.
func (r *FuzzerResults) FailedTrials() []*TrialFailure {
	failures := make([]*TrialFailure, 0)
	for _, trial := range r.TrialResults() {
		if trial.Failed() {
			failures = append(failures, trial.Failure)
		}
	}
	return failures
}

// Err returns every trial failure as a single error, or nil if no trial failed.
func (r *FuzzerResults) Err() error {
	var result *multierror.Error
	for _, failure := range r.FailedTrials() {
		result = multierror.Append(result, failure)
	}
	return result.ErrorOrNil()
}
