package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/relayfuzz/fuzzing/config"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/crytic/relayfuzz/utils"
	"github.com/spf13/cobra"
)

// readProjectConfig resolves the project configuration of a command through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (relayfuzz.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If relayfuzz.json can't be found, use the default project configuration.
func readProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `relayfuzz.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		return config.ReadProjectConfigFromFile(configPath)
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed {
		return nil, existenceError
	}

	// Possibility #3: --config flag was not used and relayfuzz.json was not found, so use the default project config
	cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
	return config.GetDefaultProjectConfig(), nil
}

// setupGlobalLogger replaces logging.GlobalLogger with a logger writing to the console, and to a structured log file
// if the project configuration names a log directory. It must be called before any fuzzing object is created, as
// sub-loggers do not observe writers added to their parent afterwards.
// Returns a function closing the log file, or an error if the log file could not be created.
func setupGlobalLogger(projectConfig *config.ProjectConfig) (func(), error) {
	logging.GlobalLogger = logging.NewLogger(projectConfig.Logging.Level)
	logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
	if projectConfig.Logging.NoColor {
		colors.DisableColor()
	}

	if projectConfig.Logging.LogDirectory == "" {
		return func() {}, nil
	}
	fileName := DefaultLogFilePrefix + time.Now().UTC().Format("20060102-150405") + ".log"
	file, err := utils.CreateFile(projectConfig.Logging.LogDirectory, fileName)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	cmdLogger.Info("Writing structured logs to: ", colors.Bold, file.Name(), colors.Reset)
	return func() {
		logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
		_ = file.Close()
	}, nil
}

// cmdValidNoArgs will return which flags are valid for dynamic completion for commands taking no positional arguments
func cmdValidNoArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return unusedFlags(cmd), cobra.ShellCompDirectiveNoFileComp
}
