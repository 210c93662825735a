package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

func sampleSuite() *runner.SuiteResult {
	return &runner.SuiteResult{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Scenarios: []*runner.ScenarioResult{{
			Name:   "orders",
			Status: runner.StatusError,
			Steps: []*runner.StepResult{
				{
					CaseID: "a", Scenario: "orders", Step: 1, Status: runner.StatusPassed, Attempts: 1,
					Request:  &runner.SentRequest{Method: "GET", URL: "http://api/orders"},
					Response: &runner.ReceivedResponse{StatusCode: 200, Duration: 10 * time.Millisecond},
				},
				{
					CaseID: "b", Scenario: "orders", Step: 2, Status: runner.StatusFailed, Attempts: 2,
					Response: &runner.ReceivedResponse{StatusCode: 400, Duration: 20 * time.Millisecond},
				},
				{
					CaseID: "c", Scenario: "orders", Step: 3, Status: runner.StatusError, Attempts: 3,
					Duration: 5 * time.Millisecond, Err: errors.New("connection refused"),
				},
				{CaseID: "d", Scenario: "orders", Step: 4, Status: runner.StatusSkipped},
			},
		}},
	}
}

type captureExporter struct {
	agg    *AggregateMetrics
	steps  []*StepMetrics
	closed bool
}

func (c *captureExporter) Export(m *AggregateMetrics, steps []*StepMetrics) error {
	c.agg, c.steps = m, steps
	return nil
}

func (c *captureExporter) Close() error {
	c.closed = true
	return nil
}

func TestFromSuite(t *testing.T) {
	agg := FromSuite(sampleSuite()).GetAggregate()

	assert.Equal(t, "run-1", agg.RunID)
	assert.Equal(t, int64(3), agg.TotalRequests)
	assert.Equal(t, int64(1), agg.SuccessCount)
	assert.Equal(t, int64(1), agg.FailureCount)
	assert.Equal(t, int64(1), agg.ErrorCount)
	assert.Equal(t, int64(1), agg.SkippedCount)
	assert.Equal(t, int64(3), agg.RetryCount)
	assert.InDelta(t, 5.0, agg.MinDurationMs, 0.001)
	assert.InDelta(t, 20.0, agg.MaxDurationMs, 0.001)
	assert.InDelta(t, 35.0/3, agg.AvgDurationMs, 0.001)
	assert.InDelta(t, 10.0, agg.P50DurationMs, 0.1)
	assert.InDelta(t, 20.0, agg.P99DurationMs, 0.1)
	assert.Equal(t, map[int]int64{200: 1, 400: 1}, agg.StatusCodes)

	sa := agg.ByScenario["orders"]
	require.NotNil(t, sa)
	assert.Equal(t, "error", sa.Status)
	assert.Equal(t, int64(3), sa.TotalRequests)
	assert.Equal(t, int64(1), sa.SuccessCount)
	assert.Equal(t, int64(2), sa.FailureCount)
}

func TestFromSuite_StepMetrics(t *testing.T) {
	steps := FromSuite(sampleSuite()).Steps()
	require.Len(t, steps, 4)

	assert.Equal(t, "GET", steps[0].RequestMethod)
	assert.Equal(t, "http://api/orders", steps[0].RequestURL)
	assert.Equal(t, 200, steps[0].StatusCode)
	assert.True(t, steps[0].Passed())
	assert.False(t, steps[1].Passed())
	assert.Equal(t, 0, steps[2].StatusCode)
	assert.Equal(t, "skipped", steps[3].Status)
}

func TestCollector_FlushAndClose(t *testing.T) {
	exp := &captureExporter{}
	c := FromSuite(sampleSuite(), exp)

	require.NoError(t, c.Flush())
	require.NotNil(t, exp.agg)
	assert.Equal(t, int64(3), exp.agg.TotalRequests)
	assert.Len(t, exp.steps, 4)

	require.NoError(t, c.Close())
	assert.True(t, exp.closed)
}

func TestCollector_Empty(t *testing.T) {
	agg := FromSuite(&runner.SuiteResult{RunID: "empty"}).GetAggregate()
	assert.Equal(t, int64(0), agg.TotalRequests)
	assert.Zero(t, agg.AvgDurationMs)
	assert.Empty(t, agg.ByScenario)
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "metrics.json")
	exp := NewJSONExporter(WithJSONWriter(&buf), WithJSONFile(path), WithJSONPretty(false), WithJSONVersion("1.2.3"))

	require.NoError(t, FromSuite(sampleSuite(), exp).Flush())

	var out JSONMetricsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "run-1", out.Metadata.RunID)
	assert.Equal(t, "1.2.3", out.Metadata.Version)
	assert.Equal(t, int64(3), out.Summary.TotalRequests)
	assert.Len(t, out.Steps, 4)
	assert.Equal(t, []string{"b", "c"}, out.NotPassed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(bytes.TrimSpace(buf.Bytes())), string(data))
}

func TestPrometheusExporter(t *testing.T) {
	exp := NewPrometheusExporter()
	require.NoError(t, FromSuite(sampleSuite(), exp).Flush())

	assert.Equal(t, 1.0, testutil.ToFloat64(exp.runs))
	assert.Equal(t, 3.0, testutil.ToFloat64(exp.retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.steps.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(exp.scenarioSteps.WithLabelValues("orders", "not_passed")))

	server := httptest.NewServer(exp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `hitcase_steps{status="passed"} 1`)
	assert.Contains(t, string(body), `hitcase_responses_by_status{code="400"} 1`)
	assert.Contains(t, string(body), "hitcase_request_duration_seconds_count 2")
}

func TestPrometheusExporter_ReplacesLastRun(t *testing.T) {
	exp := NewPrometheusExporter()
	require.NoError(t, FromSuite(sampleSuite(), exp).Flush())
	require.NoError(t, FromSuite(&runner.SuiteResult{RunID: "empty"}, exp).Flush())

	assert.Equal(t, 2.0, testutil.ToFloat64(exp.runs))
	assert.Equal(t, 0.0, testutil.ToFloat64(exp.steps.WithLabelValues("passed")))
	assert.Equal(t, 0, testutil.CollectAndCount(exp.byStatusCode))
}

func TestPrometheusExporter_Textfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitcase.prom")
	exp := NewPrometheusExporter(WithPrometheusTextfile(path))
	require.NoError(t, FromSuite(sampleSuite(), exp).Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE hitcase_runs_total counter")
	assert.Contains(t, string(data), `hitcase_steps{status="error"} 1`)
	assert.NoError(t, exp.Close())
}
