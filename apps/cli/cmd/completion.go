package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a shell completion script for hitcase and write it to stdout.

  $ source <(hitcase completion bash)
  $ hitcase completion zsh > "${fpath[1]}/_hitcase"
  $ hitcase completion fish | source
  PS> hitcase completion powershell | Out-String | Invoke-Expression

Scenario names after --scenario are completed from the case files in the
current directory.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

// completeScenarios offers the scenario names found in case files under the
// current directory.
func completeScenarios(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	files, err := collectFiles([]string{"."})
	if err != nil || len(files) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	set, err := loadCases(files, "")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return scenarioNames(set), cobra.ShellCompDirectiveNoFileComp
}
