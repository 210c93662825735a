package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *runner.SuiteResult)
	FormatError(err error)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap", "html"}

// Options are shared by every formatter built with New.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	Title   string
}

// New returns the formatter registered under format.
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "", "console":
		consoleOpts := []ConsoleOption{WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)}
		if opts.Writer != nil {
			consoleOpts = append(consoleOpts, WithWriter(opts.Writer))
		}
		return NewConsoleFormatter(consoleOpts...), nil
	case "json":
		var jsonOpts []JSONOption
		if opts.Writer != nil {
			jsonOpts = append(jsonOpts, JSONWithWriter(opts.Writer))
		}
		return NewJSONFormatter(jsonOpts...), nil
	case "junit":
		var junitOpts []JUnitOption
		if opts.Writer != nil {
			junitOpts = append(junitOpts, JUnitWithWriter(opts.Writer))
		}
		return NewJUnitFormatter(junitOpts...), nil
	case "tap":
		var tapOpts []TAPOption
		if opts.Writer != nil {
			tapOpts = append(tapOpts, TAPWithWriter(opts.Writer))
		}
		return NewTAPFormatter(tapOpts...), nil
	case "html":
		htmlOpts := []HTMLOption{HTMLWithTitle(opts.Title)}
		if opts.Writer != nil {
			htmlOpts = append(htmlOpts, HTMLWithWriter(opts.Writer))
		}
		return NewHTMLFormatter(htmlOpts...), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
}

// stepName is the label used for a step in every format.
func stepName(s *runner.StepResult) string {
	name := fmt.Sprintf("[%d] %s", s.Step, s.CaseID)
	if s.Description != "" {
		name += ": " + s.Description
	}
	return name
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v value.Value, maxLen int) string {
	switch v.Kind() {
	case value.Array:
		return fmt.Sprintf("[array with %d items]", v.Len())
	case value.Object:
		return fmt.Sprintf("{object with %d keys}", v.Len())
	}
	str := v.String()
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
