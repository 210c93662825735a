package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.SuiteResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	if len(result.ConfigErrors) > 0 {
		fmt.Fprintf(f.writer, "\n%s\n", bold("Invalid cases:"))
		for _, ce := range result.ConfigErrors {
			fmt.Fprintf(f.writer, "  %s %s\n", red("!"), ce.Error())
		}
	}

	for _, sc := range result.Scenarios {
		fmt.Fprintf(f.writer, "\n%s %s\n\n", bold("Scenario: "+sc.Name), cyan(fmt.Sprintf("(%dms)", sc.Duration.Milliseconds())))

		for _, s := range sc.Steps {
			name := stepName(s)
			switch s.Status {
			case runner.StatusSkipped:
				fmt.Fprintf(f.writer, "  %s %s", yellow("-"), name)
				if s.SkipReason != "" {
					fmt.Fprintf(f.writer, " (%s)", s.SkipReason)
				}
				fmt.Fprintf(f.writer, "\n")
				continue
			case runner.StatusError:
				fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), name, red(fmt.Sprintf("(%s)", s.ErrorMessage())))
				if s.Retries > 0 {
					fmt.Fprintf(f.writer, "    after %d retries\n", s.Retries)
				}
				continue
			}

			symbol := green("✓")
			if s.Status != runner.StatusPassed {
				symbol = red("✗")
			}

			fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, name, cyan(fmt.Sprintf("(%dms)", s.Duration.Milliseconds())))

			if f.verbose && s.Request != nil {
				fmt.Fprintf(f.writer, "    %s %s\n", s.Request.Method, s.Request.URL)
			}
			if f.verbose && s.Response != nil {
				fmt.Fprintf(f.writer, "    Status: %d\n", s.Response.StatusCode)
			}
			if f.verbose && s.Retries > 0 {
				fmt.Fprintf(f.writer, "    Retries: %d\n", s.Retries)
			}

			for _, d := range s.Diffs {
				fmt.Fprintf(f.writer, "    %s %s\n", red("→"), d.Path)
				fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(d.Expected, 100))
				if d.Missing {
					fmt.Fprintf(f.writer, "      Actual:   (missing)\n")
				} else {
					fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(d.Actual, 100))
				}
				if d.Message != "" {
					fmt.Fprintf(f.writer, "      %s\n", d.Message)
				}
			}

			if f.verbose && len(s.Extracted) > 0 {
				fmt.Fprintf(f.writer, "    Extracted:\n")
				names := make([]string, 0, len(s.Extracted))
				for name := range s.Extracted {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(f.writer, "      %s = %s\n", name, formatValue(s.Extracted[name], 100))
				}
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Errored > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d errors", result.Errored)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total())
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration().Milliseconds())
	if result.Cancelled {
		fmt.Fprintf(f.writer, "%s\n", yellow("Run cancelled"))
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitcase"), version)
}
