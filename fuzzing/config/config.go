package config

import (
	"encoding/json"
	"math"
	"os"

	"github.com/crytic/relayfuzz/chain/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the configuration of a relay fuzzing campaign.
type ProjectConfig struct {
	// Fuzzing describes the configuration used in fuzzing campaigns.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Chains describes the two chains proposals are relayed between.
	Chains []config.TestChainConfig `json:"chains"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig describes the configuration options used by the fuzzing.Fuzzer.
type FuzzingConfig struct {
	// Workers describes the amount of trials to run in parallel.
	Workers int `json:"workers"`

	// TrialCount describes the amount of independent trials to run.
	TrialCount int `json:"trialCount"`

	// ActionsPerTrial describes the maximum amount of actions executed in a trial.
	ActionsPerTrial int `json:"actionsPerTrial"`

	// ReceiverPoolSize describes the amount of receiver contracts deployed on each chain.
	ReceiverPoolSize int `json:"receiverPoolSize"`

	// CallerPoolSize describes the amount of accounts of each chain authorized to submit proposals.
	CallerPoolSize int `json:"callerPoolSize"`

	// MaxCallsPerProposal describes the maximum amount of calls in a generated proposal.
	MaxCallsPerProposal int `json:"maxCallsPerProposal"`

	// MaxCallValue describes the maximum native value of a generated call.
	MaxCallValue int64 `json:"maxCallValue"`

	// MaxPayloadSize describes the maximum length of the payload of a generated call.
	MaxPayloadSize int `json:"maxPayloadSize"`

	// Seed describes the seed of the campaign's random provider. A zero value seeds from the current time.
	Seed int64 `json:"seed"`

	// Timeout describes a time in seconds for which the fuzzing operation should run. Providing negative or zero value
	// will result in no timeout.
	Timeout int `json:"timeout"`

	// StopOnFailedTrial describes whether the fuzzing.Fuzzer should stop after the first failed trial.
	StopOnFailedTrial bool `json:"stopOnFailedTrial"`

	// CheckInvariantsAfterSetup describes whether invariants are checked once after setup, before any action.
	CheckInvariantsAfterSetup bool `json:"checkInvariantsAfterSetup"`

	// ActionWeights maps action names to the weight they are selected with. Actions not listed have a weight of one.
	ActionWeights map[string]uint64 `json:"actionWeights"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor indicates whether console output should be colorized.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Values missing from the
// file keep their defaults.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify the worker count is a positive number.
	if p.Fuzzing.Workers <= 0 {
		return errors.New("worker count must be a positive number")
	}

	// Verify the run size
	if p.Fuzzing.TrialCount <= 0 {
		return errors.New("trial count must be a positive number")
	}
	if p.Fuzzing.ActionsPerTrial <= 0 {
		return errors.New("actions per trial must be a positive number")
	}

	// Verify the pools
	if p.Fuzzing.ReceiverPoolSize <= 0 {
		return errors.New("receiver pool size must be a positive number")
	}
	if p.Fuzzing.CallerPoolSize <= 0 {
		return errors.New("caller pool size must be a positive number")
	}

	// Verify the proposal bounds
	if p.Fuzzing.MaxCallsPerProposal < 0 || p.Fuzzing.MaxCallValue < 0 || p.Fuzzing.MaxPayloadSize < 0 {
		return errors.New("proposal bounds must not be negative")
	}
	if p.Fuzzing.MaxCallsPerProposal == math.MaxInt || p.Fuzzing.MaxCallValue == math.MaxInt64 || p.Fuzzing.MaxPayloadSize == math.MaxInt {
		return errors.New("proposal bounds must be below the maximum value of their type")
	}

	// Verify that some action can be selected
	if len(p.Fuzzing.ActionWeights) > 0 {
		total := uint64(0)
		for _, weight := range p.Fuzzing.ActionWeights {
			total += weight
		}
		if total == 0 {
			return errors.New("action weights must not all be zero")
		}
	}

	// Verify the chains
	if len(p.Chains) != 2 {
		return errors.Errorf("exactly two chains must be configured, found %d", len(p.Chains))
	}
	for i := range p.Chains {
		if err := p.Chains[i].Validate(); err != nil {
			return err
		}
		// The first account is the operator, callers are sampled from the rest
		if p.Chains[i].AccountCount-1 < p.Fuzzing.CallerPoolSize {
			return errors.Errorf("chain '%s' has %d accounts, which is not enough for a caller pool of %d and an operator",
				p.Chains[i].Name, p.Chains[i].AccountCount, p.Fuzzing.CallerPoolSize)
		}
	}
	if p.Chains[0].Name == p.Chains[1].Name {
		return errors.Errorf("chains must have distinct names, both are named '%s'", p.Chains[0].Name)
	}
	return nil
}
