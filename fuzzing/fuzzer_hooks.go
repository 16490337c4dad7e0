package fuzzing

import (
	"math/rand"
)

// FuzzerHooks defines the hooks that can be used for the Fuzzer on an API level.
type FuzzerHooks struct {
	// NewActionStrategyFunc describes the function used to create the ActionStrategy of a new trial. The random
	// provider supplied is owned by the trial.
	NewActionStrategyFunc NewActionStrategyFunc

	// TrialSetupFunc describes an optional function called at the end of a trial's setup, before any action.
	TrialSetupFunc TrialSetupFunc

	// InvariantCheckFuncs describes the invariants checked after every action of every trial.
	InvariantCheckFuncs []InvariantCheckFunc
}

// NewActionStrategyFunc describes a function which creates the ActionStrategy of a trial.
// Returns the new ActionStrategy, or an error if one occurred.
type NewActionStrategyFunc func(fuzzer *Fuzzer, randomProvider *rand.Rand) (ActionStrategy, error)

// TrialSetupFunc describes a function which prepares additional state in a trial after its default setup.
type TrialSetupFunc func(runner *TrialRunner) error

// defaultNewActionStrategyFunc is a NewActionStrategyFunc which selects among DefaultActions according to the
// configured action weights.
func defaultNewActionStrategyFunc(fuzzer *Fuzzer, randomProvider *rand.Rand) (ActionStrategy, error) {
	return NewWeightedActionStrategy(DefaultActions(), fuzzer.config.Fuzzing.ActionWeights, randomProvider)
}
