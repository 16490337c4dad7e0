package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh]",
	Short:     "Generate shell completion code for the specified shell",
	ValidArgs: []string{"bash", "zsh"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Long: `To load completions:

Bash:

  $ source <(relayfuzz completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ relayfuzz completion bash > /etc/bash_completion.d/relayfuzz
  # macOS:
  $ relayfuzz completion bash > $(brew --prefix)/etc/bash_completion.d/relayfuzz

Zsh:

  $ relayfuzz completion zsh > "${fpath[1]}/_relayfuzz"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			err = cmd.Root().GenZshCompletion(os.Stdout)
		}
		if err != nil {
			return errors.Wrapf(err, "unable to generate a %s completion", args[0])
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
