package cmd

import (
	"os"

	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger used by the cmd package. It is independent of logging.GlobalLogger, which is only
// configured once a project configuration has been read.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel).NewSubLogger("module", logging.CLI_SERVICE)

var rootCmd = &cobra.Command{
	Use:     "relayfuzz",
	Short:   "A cross-chain proposal relay fuzzing harness",
	Long:    "relayfuzz relays random proposals between two simulated chains and checks that every receiver ends up in the expected state",
	Version: version.GetInfo().Short(),
}

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

func Execute() error {
	return rootCmd.Execute()
}
