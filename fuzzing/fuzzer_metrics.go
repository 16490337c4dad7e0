package fuzzing

import (
	"sync/atomic"
)

// FuzzerMetrics represents a struct tracking metrics for a Fuzzer run. It is safe for concurrent use.
type FuzzerMetrics struct {
	// trialsStarted describes the amount of trials which were set up.
	trialsStarted atomic.Uint64

	// trialsFinished describes the amount of trials which stopped.
	trialsFinished atomic.Uint64

	// trialsFailed describes the amount of trials which failed.
	trialsFailed atomic.Uint64

	// actionsExecuted describes the amount of actions executed across all trials.
	actionsExecuted atomic.Uint64

	// messagesRelayed describes the amount of cross-chain messages relayed across all trials.
	messagesRelayed atomic.Uint64
}

// newFuzzerMetrics obtains a new FuzzerMetrics struct with every counter at zero.
func newFuzzerMetrics() *FuzzerMetrics {
	return &FuzzerMetrics{}
}

// TrialsStarted returns the amount of trials which were set up.
func (m *FuzzerMetrics) TrialsStarted() uint64 {
	return m.trialsStarted.Load()
}

// TrialsFinished returns the amount of trials which stopped, whether they completed, failed or were cancelled.
func (m *FuzzerMetrics) TrialsFinished() uint64 {
	return m.trialsFinished.Load()
}

// TrialsFailed returns the amount of trials which failed.
func (m *FuzzerMetrics) TrialsFailed() uint64 {
	return m.trialsFailed.Load()
}

// ActionsExecuted returns the amount of actions executed across all trials.
func (m *FuzzerMetrics) ActionsExecuted() uint64 {
	return m.actionsExecuted.Load()
}

// MessagesRelayed returns the amount of cross-chain messages relayed across all trials.
func (m *FuzzerMetrics) MessagesRelayed() uint64 {
	return m.messagesRelayed.Load()
}
