package cmd

import (
	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Chain names
	initCmd.Flags().StringSlice("chains", []string{}, "names of the two chains proposals are relayed between (default is chain1,chain2)")

	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if !cmd.Flags().Changed("chains") {
		return nil
	}

	names, err := cmd.Flags().GetStringSlice("chains")
	if err != nil {
		return err
	}
	if len(names) != len(projectConfig.Chains) {
		return errors.Errorf("exactly %d chain names must be provided, found %d", len(projectConfig.Chains), len(names))
	}
	for i, name := range names {
		projectConfig.Chains[i].Name = name
	}
	return nil
}
