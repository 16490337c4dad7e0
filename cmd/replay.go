package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/crytic/relayfuzz/cmd/exitcodes"
	"github.com/crytic/relayfuzz/fuzzing"
	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/spf13/cobra"
)

// replayCmd represents the command provider for replaying a single trial
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replays a single trial from its seed",
	Long: `Replays a single trial from the trial seed printed in its failure report. A trial only depends on its seed
and on the project configuration, so replaying with the configuration of the campaign executes the same actions.`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidNoArgs,
	RunE:              cmdRunReplay,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the replay command
	err := addReplayFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the replay command", err)
	}

	// Add the replay command and its associated flags to the root command
	rootCmd.AddCommand(replayCmd)
}

// cmdRunReplay executes the CLI replay command, resolving the project configuration the same way the fuzz command does.
func cmdRunReplay(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithReplayFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	trialIndex, err := cmd.Flags().GetInt("trial")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	closeLogs, err := setupGlobalLogger(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	defer closeLogs()

	fuzzer, err := fuzzing.NewFuzzer(*projectConfig)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Stop the trial on keyboard interrupts
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmdLogger.Info("Replaying trial ", trialIndex, " with seed ", colors.Bold, seed, colors.Reset)
	result, err := fuzzer.RunTrial(ctx, trialIndex, seed)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}
	if result.Failed() {
		return exitcodes.NewErrorWithExitCode(result.Failure, exitcodes.ExitCodeTestFailed)
	}

	cmdLogger.Info(colors.GreenBold, "Trial passed", colors.Reset, " after ", result.ActionsExecuted, " actions")
	return nil
}
