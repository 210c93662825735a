package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/core/vars"
	"github.com/abdul-hamid-achik/hitcase/packages/export/metrics"
	apihttp "github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/notify"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// loadSettings reads the config file, selects the environment and lays the
// flag overrides on top. Relative paths in the file resolve against the
// file's directory; paths given as flags stay relative to the working
// directory.
func loadSettings(configPath, environment string, overrides *config.Config) (*config.Config, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	resolvePaths(fileCfg)

	cfg, err := fileCfg.WithEnvironment(environment)
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}

	cfg = cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	return cfg, nil
}

func resolvePaths(cfg *config.Config) {
	cfg.EnvFile = cfg.Resolve(cfg.EnvFile)
	cfg.LogPath = cfg.Resolve(cfg.LogPath)
	cfg.ReportPath = cfg.Resolve(cfg.ReportPath)
	cfg.HistoryDB = cfg.Resolve(cfg.HistoryDB)
	if len(cfg.Cases) > 0 {
		resolved := make([]string, len(cfg.Cases))
		for i, p := range cfg.Cases {
			resolved[i] = cfg.Resolve(p)
		}
		cfg.Cases = resolved
	}
	if cfg.Metrics != nil {
		m := *cfg.Metrics
		m.PrometheusFile = cfg.Resolve(m.PrometheusFile)
		m.JSONFile = cfg.Resolve(m.JSONFile)
		cfg.Metrics = &m
	}
}

// seedVariables combines the env file with config variables; config wins.
func seedVariables(cfg *config.Config) (map[string]value.Value, error) {
	var fromFile map[string]value.Value
	if cfg.EnvFile != "" {
		loaded, err := vars.LoadDotEnv(cfg.EnvFile)
		if err != nil {
			return nil, &ExitError{Code: ExitConfigError, Err: err}
		}
		fromFile = loaded
	}

	fromConfig, err := vars.FromConfig(cfg.Variables)
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	return vars.Merge(fromFile, fromConfig), nil
}

// newClient builds the HTTP executor shared by every scenario of a run.
func newClient(cfg *config.Config, logger *slog.Logger) *apihttp.Client {
	headers := config.DefaultHeaders(version)
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	opts := []apihttp.ClientOption{
		apihttp.WithTimeout(cfg.TimeoutDuration()),
		apihttp.WithFollowRedirects(cfg.GetFollowRedirects()),
		apihttp.WithMaxRedirects(cfg.MaxRedirects),
		apihttp.WithValidateSSL(cfg.GetValidateSSL()),
		apihttp.WithDefaultHeaders(headers),
		apihttp.WithRateLimit(cfg.RateLimit),
		apihttp.WithLogger(logger),
	}
	if cfg.Proxy != "" {
		opts = append(opts, apihttp.WithProxy(cfg.Proxy))
	}
	return apihttp.NewClient(opts...)
}

func runnerConfig(cfg *config.Config, seeds map[string]value.Value, scenario string, logger *slog.Logger) *runner.Config {
	return &runner.Config{
		BaseURLs:       cfg.BaseURLs,
		Timeout:        cfg.TimeoutDuration(),
		MaxRetries:     cfg.Retries,
		Backoff:        cfg.RetryDelayDuration(),
		MaxBackoff:     cfg.MaxRetryDelayDuration(),
		RetryOn:        cfg.RetryOn,
		Concurrency:    cfg.Concurrency,
		Variables:      seeds,
		ScenarioFilter: scenario,
		Bail:           cfg.GetBail(),
		Logger:         logger,
	}
}

// buildNotifier returns nil when no notifier is configured.
func buildNotifier(cfg *config.Config) (*notify.Manager, error) {
	nc := cfg.Notify
	if nc == nil {
		return nil, nil
	}

	on, err := notify.ParseNotifyOn(nc.On)
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	m := notify.NewManager(on)

	if s := nc.Slack; s != nil && s.WebhookURL != "" {
		var opts []notify.SlackOption
		if s.Channel != "" {
			opts = append(opts, notify.WithSlackChannel(s.Channel))
		}
		if s.Username != "" {
			opts = append(opts, notify.WithSlackUsername(s.Username))
		}
		m.AddNotifier(notify.NewSlackNotifier(s.WebhookURL, opts...))
	}

	if t := nc.Teams; t != nil && t.WebhookURL != "" {
		m.AddNotifier(notify.NewTeamsNotifier(t.WebhookURL))
	}

	if e := nc.Email; e != nil && e.Host != "" {
		if e.From == "" || len(e.To) == 0 {
			return nil, exitf(ExitConfigError, "notify.email: from and to are required")
		}
		opts := []notify.EmailOption{
			notify.WithEmailPort(e.Port),
			notify.WithEmailAttachReport(e.GetAttachReport()),
		}
		if e.Username != "" {
			opts = append(opts, notify.WithEmailAuth(e.Username, e.Password))
		}
		m.AddNotifier(notify.NewEmailNotifier(e.Host, e.From, e.To, opts...))
	}

	if m.Len() == 0 {
		return nil, nil
	}
	return m, nil
}

// buildExporters returns the metric exporters configured for cfg. The
// Prometheus exporter is also returned on its own so watch mode can serve
// its registry.
func buildExporters(cfg *config.Config, serve bool) ([]metrics.Exporter, *metrics.PrometheusExporter) {
	var (
		exporters []metrics.Exporter
		prom      *metrics.PrometheusExporter
	)

	mc := cfg.Metrics
	if mc == nil {
		mc = &config.MetricsConfig{}
	}

	if mc.PrometheusFile != "" || serve {
		var opts []metrics.PrometheusOption
		if mc.PrometheusFile != "" {
			opts = append(opts, metrics.WithPrometheusTextfile(mc.PrometheusFile))
		}
		prom = metrics.NewPrometheusExporter(opts...)
		exporters = append(exporters, prom)
	}
	if mc.JSONFile != "" {
		exporters = append(exporters, metrics.NewJSONExporter(
			metrics.WithJSONFile(mc.JSONFile),
			metrics.WithJSONVersion(version),
		))
	}
	return exporters, prom
}

func describeEnvironment(cfg *config.Config, requested string) string {
	if requested != "" {
		return requested
	}
	return cfg.DefaultEnvironment
}

func platformsSummary(cfg *config.Config) string {
	if len(cfg.BaseURLs) == 0 {
		return "no base URLs configured"
	}
	if u, ok := cfg.BaseURLs[runner.DefaultPlatform]; ok && len(cfg.BaseURLs) == 1 {
		return u
	}
	return fmt.Sprintf("%d platforms", len(cfg.BaseURLs))
}
