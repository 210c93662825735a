package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// JSONExporter exports metrics to JSON format
type JSONExporter struct {
	writer   io.Writer
	filePath string
	pretty   bool
	version  string
	now      func() time.Time
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONWriter sets the output writer for JSON metrics
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONFile sets the output file for JSON metrics
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) {
		j.filePath = path
	}
}

// WithJSONPretty enables pretty-printed JSON output
func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

// WithJSONVersion records the tool version in the metadata block
func WithJSONVersion(version string) JSONOption {
	return func(j *JSONExporter) {
		j.version = version
	}
}

// NewJSONExporter creates a new JSON metrics exporter
func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{
		pretty:  true,
		version: "dev",
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// JSONMetricsOutput is the complete JSON output structure
type JSONMetricsOutput struct {
	Metadata JSONMetadata      `json:"metadata"`
	Summary  *AggregateMetrics `json:"summary"`
	// NotPassed holds the case ids of executed steps that failed or errored,
	// in execution order.
	NotPassed []string       `json:"not_passed"`
	Steps     []*StepMetrics `json:"steps"`
}

// JSONMetadata contains metadata about the metrics collection
type JSONMetadata struct {
	GeneratedAt string `json:"generated_at"`
	RunID       string `json:"run_id"`
	Version     string `json:"version"`
}

// Export writes the aggregate and per-step metrics as one JSON document.
// The file, when configured, is replaced atomically.
func (j *JSONExporter) Export(metrics *AggregateMetrics, steps []*StepMetrics) error {
	output := JSONMetricsOutput{
		Metadata: JSONMetadata{
			GeneratedAt: j.now().UTC().Format(time.RFC3339),
			RunID:       metrics.RunID,
			Version:     j.version,
		},
		Summary:   metrics,
		NotPassed: []string{},
		Steps:     steps,
	}
	for _, s := range steps {
		if s.Status == string(runner.StatusFailed) || s.Status == string(runner.StatusError) {
			output.NotPassed = append(output.NotPassed, s.CaseID)
		}
	}

	marshal := json.Marshal
	if j.pretty {
		marshal = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
	}
	data, err := marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if j.filePath != "" {
		if err := writeFileAtomic(j.filePath, data); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	if j.writer != nil {
		if _, err := fmt.Fprintf(j.writer, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}

// writeFileAtomic writes data to a temp file beside path and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".metrics-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Close closes the JSON exporter
func (j *JSONExporter) Close() error {
	return nil
}
