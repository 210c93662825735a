package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
)

var validateSheetFlag string

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate case files without executing them",
	Long: `Load case files and report every record that would be excluded from a run:
missing required fields, unsupported methods, bad extract names, duplicate
case ids or steps.

Examples:
  hitcase validate cases.yaml
  hitcase validate ./cases/ --sheet smoke`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&validateSheetFlag, "sheet", getEnvString("HITCASE_SHEET", ""), "Excel sheet to read (default: first sheet) (env: HITCASE_SHEET)")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	if len(files) == 0 {
		return exitf(ExitUsageError, "no case files found")
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	hasErrors := false
	for _, file := range files {
		set, err := cases.LoadFile(file, validateSheetFlag)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", red("✗"), file, err)
			hasErrors = true
			continue
		}

		_, rejected := cases.Group(set.Cases)
		problems := append(set.Invalid, rejected...)
		if len(problems) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d cases)\n", green("✓"), file, len(set.Cases))
			continue
		}

		hasErrors = true
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d cases, %d invalid)\n", red("✗"), file, len(set.Cases)-len(rejected), len(problems))
		for _, ce := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", ce.Error())
		}
	}

	if hasErrors {
		return exitf(ExitParseError, "validation failed")
	}

	return nil
}
