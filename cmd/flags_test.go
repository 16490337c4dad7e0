package cmd

import (
	"testing"

	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzFlagsOverrideConfig(t *testing.T) {
	projectConfig := config.GetDefaultProjectConfig()
	require.NoError(t, fuzzCmd.ParseFlags([]string{
		"--workers", "4",
		"--trials", "3",
		"--actions", "50",
		"--seed", "1234",
		"--stop-on-failure=false",
		"--log-level", "debug",
		"--no-color",
	}))
	require.NoError(t, updateProjectConfigWithFuzzFlags(fuzzCmd, projectConfig))

	assert.Equal(t, 4, projectConfig.Fuzzing.Workers)
	assert.Equal(t, 3, projectConfig.Fuzzing.TrialCount)
	assert.Equal(t, 50, projectConfig.Fuzzing.ActionsPerTrial)
	assert.EqualValues(t, 1234, projectConfig.Fuzzing.Seed)
	assert.False(t, projectConfig.Fuzzing.StopOnFailedTrial)
	assert.Equal(t, zerolog.DebugLevel, projectConfig.Logging.Level)
	assert.True(t, projectConfig.Logging.NoColor)

	// Values without a flag keep their configured value
	defaults := config.GetDefaultProjectConfig()
	assert.Equal(t, defaults.Fuzzing.Timeout, projectConfig.Fuzzing.Timeout)
	assert.Equal(t, defaults.Fuzzing.ReceiverPoolSize, projectConfig.Fuzzing.ReceiverPoolSize)
	assert.NoError(t, projectConfig.Validate())
}

func TestInitFlagsRenameChains(t *testing.T) {
	projectConfig := config.GetDefaultProjectConfig()
	require.NoError(t, initCmd.ParseFlags([]string{"--chains", "ethereum,avalanche"}))
	require.NoError(t, updateProjectConfigWithInitFlags(initCmd, projectConfig))
	assert.Equal(t, "ethereum", projectConfig.Chains[0].Name)
	assert.Equal(t, "avalanche", projectConfig.Chains[1].Name)

	require.NoError(t, initCmd.ParseFlags([]string{"--chains", "ethereum"}))
	assert.Error(t, updateProjectConfigWithInitFlags(initCmd, config.GetDefaultProjectConfig()))
}
