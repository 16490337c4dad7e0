package fuzzing

import (
	"github.com/crytic/relayfuzz/events"
)

// FuzzerEvents defines event emitters for a Fuzzer.
type FuzzerEvents struct {
	// FuzzerStarting emits events when the Fuzzer initialized state and is about to begin running trials.
	FuzzerStarting events.EventEmitter[FuzzerStartingEvent]

	// FuzzerStopping emits events when the Fuzzer is exiting its main loop.
	FuzzerStopping events.EventEmitter[FuzzerStoppingEvent]

	// TrialStarting emits events when a trial was set up and is about to execute its actions. Events are published
	// from the goroutine running the trial.
	TrialStarting events.EventEmitter[TrialStartingEvent]

	// TrialFinished emits events when a trial stopped, whether it completed, failed or was cancelled.
	TrialFinished events.EventEmitter[TrialFinishedEvent]

	// ActionExecuted emits events after every action of every trial.
	ActionExecuted events.EventEmitter[ActionExecutedEvent]
}

// FuzzerStartingEvent describes an event where a Fuzzer has initialized all state variables and is about to begin
// running trials.
type FuzzerStartingEvent struct {
	// Fuzzer represents the instance of the Fuzzer for which the event occurred.
	Fuzzer *Fuzzer
}

// FuzzerStoppingEvent describes an event where a Fuzzer is exiting its main loop.
type FuzzerStoppingEvent struct {
	// Fuzzer represents the instance of the Fuzzer for which the event occurred.
	Fuzzer *Fuzzer

	// Err describes a potential error returned by the fuzzer run.
	Err error
}

// TrialStartingEvent describes an event where a trial was set up and is about to execute its actions.
type TrialStartingEvent struct {
	// Runner represents the TrialRunner of the trial.
	Runner *TrialRunner
}

// TrialFinishedEvent describes an event where a trial stopped.
type TrialFinishedEvent struct {
	// Runner represents the TrialRunner of the trial.
	Runner *TrialRunner

	// Result describes the result of the trial.
	Result *TrialResult
}

// ActionExecutedEvent describes an event where a trial executed an action.
type ActionExecutedEvent struct {
	// Runner represents the TrialRunner of the trial.
	Runner *TrialRunner

	// Record describes the executed action.
	Record *ActionRecord

	// Err describes the error the action failed with, or nil if it succeeded.
	Err error
}
