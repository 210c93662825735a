package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
)

var listSheetFlag string

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List scenarios and their steps",
	Long: `List the scenarios defined in case files, with their steps in run order.

Examples:
  hitcase list cases.yaml
  hitcase list ./cases/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&listSheetFlag, "sheet", getEnvString("HITCASE_SHEET", ""), "Excel sheet to read (default: first sheet) (env: HITCASE_SHEET)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	if len(files) == 0 {
		return exitf(ExitUsageError, "no case files found")
	}

	set, err := loadCases(files, listSheetFlag)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	out := cmd.OutOrStdout()

	scenarios, rejected := cases.Group(set.Cases)
	for _, sc := range scenarios {
		fmt.Fprintf(out, "\n%s\n", bold(sc.Name))
		for _, c := range sc.Steps {
			fmt.Fprintf(out, "  %d. %-6s %s  %s\n", c.Step, c.Method, c.API, gray(c.CaseID))
			if c.Description != "" {
				fmt.Fprintf(out, "     %s\n", c.Description)
			}
			if c.Depends != "" {
				fmt.Fprintf(out, "     %s %s\n", gray("depends:"), c.Depends)
			}
		}
	}

	if invalid := len(set.Invalid) + len(rejected); invalid > 0 {
		fmt.Fprintf(out, "\n%d invalid record(s); run 'hitcase validate' for details\n", invalid)
	}

	return nil
}
