package cmd

import (
	"fmt"

	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/spf13/cobra"
)

// addReplayFlags adds the various flags for the replay command
func addReplayFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	replayCmd.Flags().SortFlags = false

	// Config file
	replayCmd.Flags().String("config", "", "path to config file")

	// Trial to replay
	replayCmd.Flags().Int64("seed", 0, "seed of the trial to replay, as printed in its failure report")
	replayCmd.Flags().Int("trial", 0, "index of the trial to replay, only used to label its logs")
	if err := replayCmd.MarkFlagRequired("seed"); err != nil {
		return err
	}

	// Trial length
	replayCmd.Flags().Int("actions", 0,
		fmt.Sprintf("maximum actions to run in the trial (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.ActionsPerTrial))

	addLoggingFlags(replayCmd.Flags())
	return nil
}

// updateProjectConfigWithReplayFlags will update the given projectConfig with any CLI arguments that were provided to the replay command
func updateProjectConfigWithReplayFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the trial length
	if cmd.Flags().Changed("actions") {
		projectConfig.Fuzzing.ActionsPerTrial, err = cmd.Flags().GetInt("actions")
		if err != nil {
			return err
		}
	}

	return updateProjectConfigWithLoggingFlags(cmd, projectConfig)
}
