package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crytic/relayfuzz/cmd/exitcodes"
	"github.com/crytic/relayfuzz/fuzzing"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fuzzCmd represents the command provider for fuzzing
var fuzzCmd = &cobra.Command{
	Use:               "fuzz",
	Short:             "Starts a fuzzing campaign",
	Long:              `Starts a fuzzing campaign relaying random proposals between two fresh chains in every trial`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidNoArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the fuzz command
	err := addFuzzFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the fuzz command", err)
	}

	// Add the fuzz command and its associated flags to the root command
	rootCmd.AddCommand(fuzzCmd)
}

// unusedFlags returns the flags of cmd which have not been set in the current command line, with their "--" prefix
// so completion does not mistake them for positional arguments.
func unusedFlags(cmd *cobra.Command) []string {
	var flags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			flags = append(flags, "--"+flag.Name)
		}
	})
	return flags
}

// cmdValidateFuzzArgs makes sure that there are no positional arguments provided to the fuzz command
func cmdValidateFuzzArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("%s does not accept any positional arguments, only flags and their associated values", cmd.Name())
		cmdLogger.Error("Failed to validate args to the "+cmd.Name()+" command", err)
		return err
	}
	return nil
}

// cmdRunFuzz executes the CLI fuzz command. The campaign stops on keyboard interrupts, and the command exits with
// exitcodes.ExitCodeTestFailed if any trial failed.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithFuzzFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	closeLogs, err := setupGlobalLogger(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}
	defer closeLogs()

	fuzzer, err := fuzzing.NewFuzzer(*projectConfig)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Stop our fuzzing on keyboard interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)
	go func() {
		if _, ok := <-c; ok {
			cmdLogger.Warn("Interrupted, stopping the campaign after the current actions")
			fuzzer.Stop()
		}
	}()

	fuzzErr := fuzzer.Start(context.Background())
	if fuzzErr != nil {
		return exitcodes.NewErrorWithExitCode(fuzzErr, exitcodes.ExitCodeFuzzerError)
	}

	// If we have failed trials, we'll want to return a special exit code
	if len(fuzzer.Results().FailedTrials()) > 0 {
		return exitcodes.NewErrorWithExitCode(fuzzer.Results().Err(), exitcodes.ExitCodeTestFailed)
	}
	return nil
}
