package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID        string            `json:"runId"`
	Summary      JSONSummary       `json:"summary"`
	Scenarios    []JSONScenario    `json:"scenarios"`
	ConfigErrors []JSONConfigError `json:"configErrors,omitempty"`
	Cancelled    bool              `json:"cancelled,omitempty"`
	Duration     float64           `json:"duration"`
	Time         string            `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Errored  int     `json:"errored"`
	Skipped  int     `json:"skipped"`
	PassRate float64 `json:"passRate"`
}

type JSONScenario struct {
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	Duration float64    `json:"duration"`
	Steps    []JSONStep `json:"steps"`
}

// JSONStep represents a single step result
type JSONStep struct {
	CaseID      string                 `json:"caseId"`
	Step        int                    `json:"step"`
	Description string                 `json:"description,omitempty"`
	Status      string                 `json:"status"`
	Duration    float64                `json:"duration"`
	Attempts    int                    `json:"attempts,omitempty"`
	Retries     int                    `json:"retries,omitempty"`
	Error       string                 `json:"error,omitempty"`
	SkipReason  string                 `json:"skipReason,omitempty"`
	Request     *JSONRequest           `json:"request,omitempty"`
	Response    *JSONResponse          `json:"response,omitempty"`
	Diffs       []assertions.Diff      `json:"diffs,omitempty"`
	Extracted   map[string]value.Value `json:"extracted,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    value.Value       `json:"body"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       value.Value       `json:"body"`
	Duration   float64           `json:"duration"`
}

type JSONConfigError struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	CaseID string `json:"caseId,omitempty"`
	Reason string `json:"reason"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer io.Writer
	output JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// BuildJSONOutput converts a suite result into its JSON document.
func BuildJSONOutput(result *runner.SuiteResult) JSONOutput {
	out := JSONOutput{
		RunID: result.RunID,
		Summary: JSONSummary{
			Total:    result.Total(),
			Passed:   result.Passed,
			Failed:   result.Failed,
			Errored:  result.Errored,
			Skipped:  result.Skipped,
			PassRate: result.PassRate(),
		},
		Scenarios: make([]JSONScenario, 0, len(result.Scenarios)),
		Cancelled: result.Cancelled,
		Duration:  float64(result.Duration().Milliseconds()),
		Time:      result.FinishedAt.Format(time.RFC3339),
	}

	for _, ce := range result.ConfigErrors {
		out.ConfigErrors = append(out.ConfigErrors, JSONConfigError{
			Source: ce.Source,
			Index:  ce.Index,
			CaseID: ce.CaseID,
			Reason: ce.Reason,
		})
	}

	for _, sc := range result.Scenarios {
		js := JSONScenario{
			Name:     sc.Name,
			Status:   string(sc.Status),
			Duration: float64(sc.Duration.Milliseconds()),
			Steps:    make([]JSONStep, 0, len(sc.Steps)),
		}
		for _, s := range sc.Steps {
			step := JSONStep{
				CaseID:      s.CaseID,
				Step:        s.Step,
				Description: s.Description,
				Status:      string(s.Status),
				Duration:    float64(s.Duration.Milliseconds()),
				Attempts:    s.Attempts,
				Retries:     s.Retries,
				SkipReason:  s.SkipReason,
				Diffs:       s.Diffs,
				Extracted:   s.Extracted,
			}
			if s.Status != runner.StatusSkipped {
				step.Error = s.ErrorMessage()
			}
			if s.Request != nil {
				step.Request = &JSONRequest{
					Method:  s.Request.Method,
					URL:     s.Request.URL,
					Headers: s.Request.Headers,
					Body:    s.Request.Body,
				}
			}
			if s.Response != nil {
				step.Response = &JSONResponse{
					StatusCode: s.Response.StatusCode,
					Headers:    s.Response.Headers,
					Body:       s.Response.Body,
					Duration:   float64(s.Response.Duration.Milliseconds()),
				}
			}
			js.Steps = append(js.Steps, step)
		}
		out.Scenarios = append(out.Scenarios, js)
	}
	return out
}

func (f *JSONFormatter) FormatResult(result *runner.SuiteResult) {
	f.output = BuildJSONOutput(result)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual step results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	if totalDuration > 0 {
		f.output.Duration = float64(totalDuration.Milliseconds())
	}
	if f.output.Scenarios == nil {
		f.output.Scenarios = []JSONScenario{}
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
