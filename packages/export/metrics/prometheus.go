package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter publishes the last suite aggregate through a
// Prometheus registry. It can write a node_exporter textfile and serve the
// registry over HTTP.
type PrometheusExporter struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	textfile string

	runs          prometheus.Counter
	steps         *prometheus.GaugeVec
	retries       prometheus.Gauge
	duration      *prometheus.GaugeVec
	byStatusCode  *prometheus.GaugeVec
	scenarioSteps *prometheus.GaugeVec
	scenarioAvg   *prometheus.GaugeVec
	latency       prometheus.Histogram
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusTextfile writes the registry to path after every Export
func WithPrometheusTextfile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.textfile = path
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hitcase",
			Name:      "runs_total",
			Help:      "Number of suite runs exported by this process",
		}),
		steps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hitcase",
			Name:      "steps",
			Help:      "Steps in the last run by outcome",
		}, []string{"status"}),
		retries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hitcase",
			Name:      "retries",
			Help:      "Retries made in the last run",
		}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hitcase",
			Name:      "step_duration_ms",
			Help:      "Step duration statistics of the last run in milliseconds",
		}, []string{"quantile"}),
		byStatusCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hitcase",
			Name:      "responses_by_status",
			Help:      "Responses in the last run by HTTP status code",
		}, []string{"code"}),
		scenarioSteps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hitcase",
			Name:      "scenario_steps",
			Help:      "Executed steps per scenario in the last run by outcome",
		}, []string{"scenario", "outcome"}),
		scenarioAvg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hitcase",
			Name:      "scenario_duration_avg_ms",
			Help:      "Average step duration per scenario in the last run",
		}, []string{"scenario"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hitcase",
			Name:      "request_duration_seconds",
			Help:      "Request latency across all exported runs",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	p.registry.MustRegister(
		p.runs, p.steps, p.retries, p.duration,
		p.byStatusCode, p.scenarioSteps, p.scenarioAvg, p.latency,
	)

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the underlying Prometheus registry
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Export replaces the last-run gauges with metrics and records step
// latencies in the cumulative histogram.
func (p *PrometheusExporter) Export(metrics *AggregateMetrics, steps []*StepMetrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs.Inc()

	p.steps.Reset()
	p.steps.WithLabelValues("passed").Set(float64(metrics.SuccessCount))
	p.steps.WithLabelValues("failed").Set(float64(metrics.FailureCount))
	p.steps.WithLabelValues("error").Set(float64(metrics.ErrorCount))
	p.steps.WithLabelValues("skipped").Set(float64(metrics.SkippedCount))
	p.retries.Set(float64(metrics.RetryCount))

	p.duration.Reset()
	p.duration.WithLabelValues("min").Set(metrics.MinDurationMs)
	p.duration.WithLabelValues("max").Set(metrics.MaxDurationMs)
	p.duration.WithLabelValues("avg").Set(metrics.AvgDurationMs)
	p.duration.WithLabelValues("0.50").Set(metrics.P50DurationMs)
	p.duration.WithLabelValues("0.95").Set(metrics.P95DurationMs)
	p.duration.WithLabelValues("0.99").Set(metrics.P99DurationMs)

	p.byStatusCode.Reset()
	for code, count := range metrics.StatusCodes {
		p.byStatusCode.WithLabelValues(strconv.Itoa(code)).Set(float64(count))
	}

	p.scenarioSteps.Reset()
	p.scenarioAvg.Reset()
	for name, sa := range metrics.ByScenario {
		p.scenarioSteps.WithLabelValues(name, "passed").Set(float64(sa.SuccessCount))
		p.scenarioSteps.WithLabelValues(name, "not_passed").Set(float64(sa.FailureCount))
		p.scenarioAvg.WithLabelValues(name).Set(sa.AvgDurationMs)
	}

	for _, s := range steps {
		if s.StatusCode != 0 {
			p.latency.Observe(s.DurationMs / 1000)
		}
	}

	if p.textfile != "" {
		if err := prometheus.WriteToTextfile(p.textfile, p.registry); err != nil {
			return fmt.Errorf("failed to write metrics textfile: %w", err)
		}
	}
	return nil
}

// Close releases nothing; the registry stays readable.
func (p *PrometheusExporter) Close() error {
	return nil
}
