package cmd

import (
	"fmt"

	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addFuzzFlags adds the various flags for the fuzz command
func addFuzzFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	// Config file
	fuzzCmd.Flags().String("config", "", "path to config file")

	// Number of workers
	fuzzCmd.Flags().Int("workers", 0,
		fmt.Sprintf("number of trials to run in parallel (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Workers))

	// Run size
	fuzzCmd.Flags().Int("trials", 0,
		fmt.Sprintf("number of independent trials to run (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.TrialCount))
	fuzzCmd.Flags().Int("actions", 0,
		fmt.Sprintf("maximum actions to run in each trial (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.ActionsPerTrial))

	// Seed
	fuzzCmd.Flags().Int64("seed", 0,
		"seed of the campaign (unless a config file is provided, default is 0). 0 means that the campaign is seeded from the current time")

	// Timeout
	fuzzCmd.Flags().Int("timeout", 0,
		fmt.Sprintf("number of seconds to run the fuzzer campaign for (unless a config file is provided, default is %d). 0 means that timeout is not enforced", defaultConfig.Fuzzing.Timeout))

	// Stop on failure
	fuzzCmd.Flags().Bool("stop-on-failure", false,
		fmt.Sprintf("stop the campaign after the first failed trial (unless a config file is provided, default is %t)", defaultConfig.Fuzzing.StopOnFailedTrial))

	addLoggingFlags(fuzzCmd.Flags())
	return nil
}

// addLoggingFlags adds the flags overriding the logging configuration to a flag set
func addLoggingFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "", "minimum level of emitted logs, e.g. debug or warn (unless a config file is provided, default is info)")
	flags.String("log-dir", "", "directory structured log files are written to (unless a config file is provided, no log file is kept)")
	flags.Bool("no-color", false, "disable colored terminal output")
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Fuzzing.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update the run size
	if cmd.Flags().Changed("trials") {
		projectConfig.Fuzzing.TrialCount, err = cmd.Flags().GetInt("trials")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("actions") {
		projectConfig.Fuzzing.ActionsPerTrial, err = cmd.Flags().GetInt("actions")
		if err != nil {
			return err
		}
	}

	// Update seed
	if cmd.Flags().Changed("seed") {
		projectConfig.Fuzzing.Seed, err = cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
	}

	// Update timeout
	if cmd.Flags().Changed("timeout") {
		projectConfig.Fuzzing.Timeout, err = cmd.Flags().GetInt("timeout")
		if err != nil {
			return err
		}
	}

	// Update stop on failure
	if cmd.Flags().Changed("stop-on-failure") {
		projectConfig.Fuzzing.StopOnFailedTrial, err = cmd.Flags().GetBool("stop-on-failure")
		if err != nil {
			return err
		}
	}

	return updateProjectConfigWithLoggingFlags(cmd, projectConfig)
}

// updateProjectConfigWithLoggingFlags will update the logging configuration of projectConfig with any logging flags
// that were provided to cmd
func updateProjectConfigWithLoggingFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if cmd.Flags().Changed("log-level") {
		levelName, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		projectConfig.Logging.Level, err = zerolog.ParseLevel(levelName)
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("log-dir") {
		logDirectory, err := cmd.Flags().GetString("log-dir")
		if err != nil {
			return err
		}
		projectConfig.Logging.LogDirectory = logDirectory
	}

	if cmd.Flags().Changed("no-color") {
		noColor, err := cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
		projectConfig.Logging.NoColor = noColor
	}
	return nil
}
