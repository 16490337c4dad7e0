package config

import (
	"github.com/crytic/relayfuzz/chain/config"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project: ten trials of up to a thousand actions,
// relaying between chain1 and chain2.
func GetDefaultProjectConfig() *ProjectConfig {
	// Create a project configuration
	projectConfig := &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Workers:                   1,
			TrialCount:                10,
			ActionsPerTrial:           1000,
			ReceiverPoolSize:          5,
			CallerPoolSize:            5,
			MaxCallsPerProposal:       20,
			MaxCallValue:              1000,
			MaxPayloadSize:            1000,
			Seed:                      0,
			Timeout:                   0,
			StopOnFailedTrial:         true,
			CheckInvariantsAfterSetup: true,
			ActionWeights:             map[string]uint64{},
		},
		Chains: []config.TestChainConfig{
			*config.DefaultTestChainConfig(1, "chain1"),
			*config.DefaultTestChainConfig(2, "chain2"),
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	// Return the project configuration
	return projectConfig
}
