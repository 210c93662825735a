// Package metrics provides metrics export functionality for hitcase suite results.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// StepMetrics represents metrics collected from one executed step
type StepMetrics struct {
	CaseID        string    `json:"case_id"`
	Scenario      string    `json:"scenario"`
	RequestMethod string    `json:"request_method,omitempty"`
	RequestURL    string    `json:"request_url,omitempty"`
	StatusCode    int       `json:"status_code,omitempty"`
	DurationMs    float64   `json:"duration_ms"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	DiffCount     int       `json:"diff_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// Passed reports whether the step passed
func (m *StepMetrics) Passed() bool {
	return m.Status == string(runner.StatusPassed)
}

// AggregateMetrics represents aggregated metrics from one suite run
type AggregateMetrics struct {
	RunID           string                        `json:"run_id"`
	TotalRequests   int64                         `json:"total_requests"`
	SuccessCount    int64                         `json:"success_count"`
	FailureCount    int64                         `json:"failure_count"`
	ErrorCount      int64                         `json:"error_count"`
	SkippedCount    int64                         `json:"skipped_count"`
	RetryCount      int64                         `json:"retry_count"`
	TotalDurationMs float64                       `json:"total_duration_ms"`
	MinDurationMs   float64                       `json:"min_duration_ms"`
	MaxDurationMs   float64                       `json:"max_duration_ms"`
	AvgDurationMs   float64                       `json:"avg_duration_ms"`
	P50DurationMs   float64                       `json:"p50_duration_ms"`
	P95DurationMs   float64                       `json:"p95_duration_ms"`
	P99DurationMs   float64                       `json:"p99_duration_ms"`
	StatusCodes     map[int]int64                 `json:"status_codes"`
	ByScenario      map[string]*ScenarioAggregate `json:"by_scenario"`
}

// ScenarioAggregate represents aggregated metrics for a single scenario
type ScenarioAggregate struct {
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	TotalRequests int64   `json:"total_requests"`
	SuccessCount  int64   `json:"success_count"`
	FailureCount  int64   `json:"failure_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MinDurationMs float64 `json:"min_duration_ms"`
	MaxDurationMs float64 `json:"max_duration_ms"`
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export exports metrics to the target destination
	Export(metrics *AggregateMetrics, steps []*StepMetrics) error

	// Close closes the exporter and flushes any buffered data
	Close() error
}

// Collector collects metrics from suite runs
type Collector struct {
	mu        sync.Mutex
	steps     []*StepMetrics
	aggregate *AggregateMetrics
	histogram *hdrhistogram.Histogram
	exporters []Exporter
}

// NewCollector creates a new metrics collector
func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{
		steps:     make([]*StepMetrics, 0),
		exporters: exporters,
		// 1us to 60s, 3 significant digits
		histogram: hdrhistogram.New(1, 60_000_000, 3),
		aggregate: &AggregateMetrics{
			StatusCodes: make(map[int]int64),
			ByScenario:  make(map[string]*ScenarioAggregate),
		},
	}
}

// FromSuite collects metrics for every step of a suite result.
func FromSuite(result *runner.SuiteResult, exporters ...Exporter) *Collector {
	c := NewCollector(exporters...)
	c.aggregate.RunID = result.RunID
	for _, sc := range result.Scenarios {
		for _, s := range sc.Steps {
			c.Record(stepMetrics(s, result.StartedAt))
		}
		if sa, ok := c.aggregate.ByScenario[sc.Name]; ok {
			sa.Status = string(sc.Status)
		}
	}
	return c
}

func stepMetrics(s *runner.StepResult, ts time.Time) *StepMetrics {
	m := &StepMetrics{
		CaseID:     s.CaseID,
		Scenario:   s.Scenario,
		DurationMs: float64(s.Duration.Microseconds()) / 1000,
		Status:     string(s.Status),
		Attempts:   s.Attempts,
		DiffCount:  len(s.Diffs),
		Timestamp:  ts,
	}
	if s.Request != nil {
		m.RequestMethod = s.Request.Method
		m.RequestURL = s.Request.URL
	}
	if s.Response != nil {
		m.StatusCode = s.Response.StatusCode
		m.DurationMs = float64(s.Response.Duration.Microseconds()) / 1000
	}
	return m
}

// Record records a step metric. Skipped steps are counted but carry no
// latency.
func (c *Collector) Record(m *StepMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.steps = append(c.steps, m)

	if m.Status == string(runner.StatusSkipped) {
		c.aggregate.SkippedCount++
		return
	}
	c.updateAggregate(m)
}

func (c *Collector) updateAggregate(m *StepMetrics) {
	agg := c.aggregate
	agg.TotalRequests++
	agg.TotalDurationMs += m.DurationMs
	if m.Attempts > 1 {
		agg.RetryCount += int64(m.Attempts - 1)
	}

	switch m.Status {
	case string(runner.StatusPassed):
		agg.SuccessCount++
	case string(runner.StatusError):
		agg.ErrorCount++
	default:
		agg.FailureCount++
	}

	// Update min/max
	if agg.TotalRequests == 1 {
		agg.MinDurationMs = m.DurationMs
		agg.MaxDurationMs = m.DurationMs
	} else {
		if m.DurationMs < agg.MinDurationMs {
			agg.MinDurationMs = m.DurationMs
		}
		if m.DurationMs > agg.MaxDurationMs {
			agg.MaxDurationMs = m.DurationMs
		}
	}
	agg.AvgDurationMs = agg.TotalDurationMs / float64(agg.TotalRequests)

	// Record latency in microseconds
	latencyUs := int64(m.DurationMs * 1000)
	if latencyUs < 1 {
		latencyUs = 1
	}
	if latencyUs > 60_000_000 {
		latencyUs = 60_000_000
	}
	_ = c.histogram.RecordValue(latencyUs)
	agg.P50DurationMs = float64(c.histogram.ValueAtQuantile(50)) / 1000
	agg.P95DurationMs = float64(c.histogram.ValueAtQuantile(95)) / 1000
	agg.P99DurationMs = float64(c.histogram.ValueAtQuantile(99)) / 1000

	if m.StatusCode != 0 {
		agg.StatusCodes[m.StatusCode]++
	}

	// Update per-scenario aggregates
	sa, ok := agg.ByScenario[m.Scenario]
	if !ok {
		sa = &ScenarioAggregate{
			Name:          m.Scenario,
			MinDurationMs: m.DurationMs,
			MaxDurationMs: m.DurationMs,
		}
		agg.ByScenario[m.Scenario] = sa
	}
	sa.TotalRequests++
	if m.Passed() {
		sa.SuccessCount++
	} else {
		sa.FailureCount++
	}
	if m.DurationMs < sa.MinDurationMs {
		sa.MinDurationMs = m.DurationMs
	}
	if m.DurationMs > sa.MaxDurationMs {
		sa.MaxDurationMs = m.DurationMs
	}
	sa.AvgDurationMs = (sa.AvgDurationMs*float64(sa.TotalRequests-1) + m.DurationMs) / float64(sa.TotalRequests)
}

// GetAggregate returns the aggregated metrics
func (c *Collector) GetAggregate() *AggregateMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregate
}

// Steps returns the recorded step metrics
func (c *Collector) Steps() []*StepMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*StepMetrics(nil), c.steps...)
}

// Flush exports all aggregated metrics
func (c *Collector) Flush() error {
	agg, steps := c.GetAggregate(), c.Steps()
	for _, exp := range c.exporters {
		if err := exp.Export(agg, steps); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all exporters
func (c *Collector) Close() error {
	for _, exp := range c.exporters {
		if err := exp.Close(); err != nil {
			return err
		}
	}
	return nil
}
