package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// HTMLOutput represents the complete HTML output structure
type HTMLOutput struct {
	Title          string
	Version        string
	RunID          string
	Summary        HTMLSummary
	Scenarios      []HTMLScenario
	ConfigErrors   []string
	Cancelled      bool
	Duration       float64
	Time           string
	PassRate       float64
	PassedPercent  float64
	FailedPercent  float64
	ErroredPercent float64
	SkippedPercent float64
}

// HTMLSummary represents the test summary for HTML output
type HTMLSummary struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
	Skipped int
}

type HTMLScenario struct {
	Name        string
	StatusClass string
	Duration    float64
	Steps       []HTMLStep
}

// HTMLStep represents a single step result for HTML output
type HTMLStep struct {
	Name        string
	StatusClass string
	Duration    float64
	Retries     int
	Error       string
	SkipReason  string
	Request     *HTMLRequest
	Response    *HTMLResponse
	Diffs       []HTMLDiff
	Extracted   []HTMLExtracted
}

// HTMLRequest represents request details for HTML output
type HTMLRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// HTMLResponse represents response details for HTML output
type HTMLResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
	Duration   float64
}

type HTMLDiff struct {
	Path        string
	ExpectedStr string
	ActualStr   string
	Message     string
}

type HTMLExtracted struct {
	Name  string
	Value string
}

// HTMLFormatter formats test results as HTML
type HTMLFormatter struct {
	writer  io.Writer
	title   string
	version string
	output  HTMLOutput
}

// HTMLOption is a functional option for HTMLFormatter
type HTMLOption func(*HTMLFormatter)

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
		title:  "API Test Report",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

// HTMLWithTitle sets the report title; empty keeps the default
func HTMLWithTitle(title string) HTMLOption {
	return func(f *HTMLFormatter) {
		if title != "" {
			f.title = title
		}
	}
}

// FormatResult converts the suite into the report model
func (f *HTMLFormatter) FormatResult(result *runner.SuiteResult) {
	out := HTMLOutput{
		RunID: result.RunID,
		Summary: HTMLSummary{
			Total:   result.Total(),
			Passed:  result.Passed,
			Failed:  result.Failed,
			Errored: result.Errored,
			Skipped: result.Skipped,
		},
		Cancelled: result.Cancelled,
		Duration:  float64(result.Duration().Milliseconds()),
		Time:      result.StartedAt.Format("2006-01-02 15:04:05"),
		PassRate:  result.PassRate(),
	}

	if total := out.Summary.Total; total > 0 {
		out.PassedPercent = float64(result.Passed) / float64(total) * 100
		out.FailedPercent = float64(result.Failed) / float64(total) * 100
		out.ErroredPercent = float64(result.Errored) / float64(total) * 100
		out.SkippedPercent = float64(result.Skipped) / float64(total) * 100
	}

	for _, ce := range result.ConfigErrors {
		out.ConfigErrors = append(out.ConfigErrors, ce.Error())
	}

	for _, sc := range result.Scenarios {
		hs := HTMLScenario{
			Name:        sc.Name,
			StatusClass: string(sc.Status),
			Duration:    float64(sc.Duration.Milliseconds()),
		}
		for _, s := range sc.Steps {
			step := HTMLStep{
				Name:        stepName(s),
				StatusClass: string(s.Status),
				Duration:    float64(s.Duration.Milliseconds()),
				Retries:     s.Retries,
				SkipReason:  s.SkipReason,
			}
			if s.Status == runner.StatusError {
				step.Error = s.ErrorMessage()
			}
			if s.Request != nil {
				step.Request = &HTMLRequest{
					Method:  s.Request.Method,
					URL:     s.Request.URL,
					Headers: s.Request.Headers,
				}
				if !s.Request.Body.IsNull() {
					step.Request.Body = s.Request.Body.String()
				}
			}
			if s.Response != nil {
				step.Response = &HTMLResponse{
					StatusCode: s.Response.StatusCode,
					Headers:    s.Response.Headers,
					Body:       s.Response.Body.String(),
					Duration:   float64(s.Response.Duration.Milliseconds()),
				}
			}
			for _, d := range s.Diffs {
				step.Diffs = append(step.Diffs, HTMLDiff{
					Path:        d.Path,
					ExpectedStr: d.Expected.String(),
					ActualStr:   actualText(d),
					Message:     d.Message,
				})
			}
			names := make([]string, 0, len(s.Extracted))
			for name := range s.Extracted {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				step.Extracted = append(step.Extracted, HTMLExtracted{Name: name, Value: s.Extracted[name].Text()})
			}
			hs.Steps = append(hs.Steps, step)
		}
		out.Scenarios = append(out.Scenarios, hs)
	}

	f.output = out
}

// FormatError handles errors (no-op for HTML, errors are in step results)
func (f *HTMLFormatter) FormatError(err error) {
	// Errors are included in individual step results
}

// FormatHeader captures the version for the HTML report
func (f *HTMLFormatter) FormatHeader(version string) {
	f.version = version
}

var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// Flush writes the accumulated HTML output
func (f *HTMLFormatter) Flush(totalDuration time.Duration) error {
	out := f.output
	out.Title = f.title
	out.Version = f.version
	if totalDuration > 0 {
		out.Duration = float64(totalDuration.Milliseconds())
	}
	return reportTemplate.Execute(f.writer, out)
}

// ReportFileName returns the report file name for a run started at t.
func ReportFileName(t time.Time) string {
	return "report_" + t.Format("20060102_150405") + ".html"
}

// WriteReport renders result as an HTML report file in dir and returns its
// path.
func WriteReport(dir, title, version string, result *runner.SuiteResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(dir, ReportFileName(result.StartedAt))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	defer file.Close()

	f := NewHTMLFormatter(HTMLWithWriter(file), HTMLWithTitle(title))
	f.FormatHeader(version)
	f.FormatResult(result)
	if err := f.Flush(result.Duration()); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return path, nil
}
