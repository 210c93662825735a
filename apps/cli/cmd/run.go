package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitcase/packages/history"
	apihttp "github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/logging"
	"github.com/abdul-hamid-achik/hitcase/packages/notify"
	"github.com/abdul-hamid-achik/hitcase/packages/output"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

var runCmd = &cobra.Command{
	Use:   "run [file|directory]...",
	Short: "Run test cases",
	Long: `Run the test cases in YAML, JSON or Excel files. Without arguments the
files listed under "cases" in the config file are used.

Examples:
  hitcase run cases.yaml
  hitcase run ./cases/ --env staging
  hitcase run cases.xlsx --sheet smoke --scenario "login*"
  hitcase run cases.yaml --base-url default=http://localhost:8080 --var token=abc
  hitcase run cases.yaml -o junit --output-file results.xml
  hitcase run ./cases/ --watch`,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag         string
	envFileFlag     string
	configFlag      string
	scenarioFlag    string
	sheetFlag       string
	verboseFlag     int
	quietFlag       bool
	bailFlag        bool
	timeoutFlag     int
	retriesFlag     int
	noColorFlag     bool
	dryRunFlag      bool
	outputFlag      string
	outputFileFlag  string
	concurrencyFlag int
	rateLimitFlag   float64
	watchFlag       bool
	proxyFlag       string
	insecureFlag    bool
	baseURLFlag     map[string]string
	varFlag         map[string]string

	logPathFlag     string
	logLevelFlag    string
	reportPathFlag  string
	reportTitleFlag string
	historyDBFlag   string
	metricsAddrFlag string
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("HITCASE_ENV", ""), "Config environment to use (env: HITCASE_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITCASE_ENV_FILE", ""), "Path to .env file with seed variables (env: HITCASE_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITCASE_CONFIG", ""), "Path to config file (env: HITCASE_CONFIG)")
	runCmd.Flags().StringVarP(&scenarioFlag, "scenario", "s", getEnvString("HITCASE_SCENARIO", ""), "Run only scenarios matching pattern (x, x*, *x, *x*) (env: HITCASE_SCENARIO)")
	runCmd.Flags().StringVar(&sheetFlag, "sheet", getEnvString("HITCASE_SHEET", ""), "Excel sheet to read (default: first sheet) (env: HITCASE_SHEET)")
	runCmd.Flags().StringToStringVar(&baseURLFlag, "base-url", nil, "Base URL per platform, e.g. default=http://localhost:8080")
	runCmd.Flags().StringToStringVar(&varFlag, "var", nil, "Seed variable, e.g. token=abc")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v shows requests, -vv also logs to stderr)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HITCASE_QUIET", false), "Suppress all output except errors (env: HITCASE_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITCASE_NO_COLOR", false), "Disable colored output (env: HITCASE_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITCASE_OUTPUT", "console"), "Output format: "+strings.Join(output.Formats, ", ")+" (env: HITCASE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITCASE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HITCASE_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&reportPathFlag, "report-dir", getEnvString("HITCASE_REPORT_DIR", ""), "Directory for the HTML report (env: HITCASE_REPORT_DIR)")
	runCmd.Flags().StringVar(&reportTitleFlag, "report-title", getEnvString("HITCASE_REPORT_TITLE", ""), "HTML report title (env: HITCASE_REPORT_TITLE)")
	runCmd.Flags().StringVar(&logPathFlag, "log-dir", getEnvString("HITCASE_LOG_DIR", ""), "Directory for the run log file (env: HITCASE_LOG_DIR)")
	runCmd.Flags().StringVar(&logLevelFlag, "log-level", getEnvString("HITCASE_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HITCASE_LOG_LEVEL)")
	runCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("HITCASE_HISTORY_DB", ""), "SQLite database recording every run (env: HITCASE_HISTORY_DB)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HITCASE_BAIL", false), "Stop starting scenarios after the first one that does not pass (env: HITCASE_BAIL)")
	runCmd.Flags().IntVar(&timeoutFlag, "timeout", getEnvInt("HITCASE_TIMEOUT", 0), "Request timeout in milliseconds (env: HITCASE_TIMEOUT)")
	runCmd.Flags().IntVar(&retriesFlag, "retries", getEnvInt("HITCASE_RETRIES", 0), "Retries for transient failures (env: HITCASE_RETRIES)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Load cases and show what would run without executing")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("HITCASE_CONCURRENCY", 0), "Number of scenarios run at once (env: HITCASE_CONCURRENCY)")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", getEnvFloat("HITCASE_RATE_LIMIT", 0), "Maximum requests per second across all scenarios (env: HITCASE_RATE_LIMIT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch case and config files and re-run on change")
	runCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", getEnvString("HITCASE_METRICS_ADDR", ""), "Serve Prometheus metrics on this address in watch mode, e.g. :9090 (env: HITCASE_METRICS_ADDR)")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITCASE_PROXY", ""), "Proxy URL for HTTP requests (env: HITCASE_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITCASE_INSECURE", false), "Disable SSL certificate validation (env: HITCASE_INSECURE)")

	_ = runCmd.RegisterFlagCompletionFunc("scenario", completeScenarios)
	_ = runCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(output.Formats, cobra.ShellCompDirectiveNoFileComp))
}

// flagOverrides collects the flags that override the config file. Zero
// values leave the file's setting alone.
func flagOverrides() *config.Config {
	o := &config.Config{
		Timeout:     timeoutFlag,
		Retries:     retriesFlag,
		Proxy:       proxyFlag,
		Concurrency: concurrencyFlag,
		RateLimit:   rateLimitFlag,
		Sheet:       sheetFlag,
		EnvFile:     envFileFlag,
		LogPath:     logPathFlag,
		LogLevel:    logLevelFlag,
		ReportPath:  reportPathFlag,
		ReportTitle: reportTitleFlag,
		HistoryDB:   historyDBFlag,
		BaseURLs:    baseURLFlag,
	}
	if bailFlag {
		o.Bail = config.BoolPtr(true)
	}
	if insecureFlag {
		o.ValidateSSL = config.BoolPtr(false)
	}
	if noColorFlag || quietFlag {
		o.NoColor = config.BoolPtr(true)
	}
	if verboseFlag > 0 {
		o.Verbose = config.BoolPtr(true)
	}
	if len(varFlag) > 0 {
		o.Variables = make(map[string]any, len(varFlag))
		for k, v := range varFlag {
			o.Variables[k] = v
		}
	}
	return o
}

// session holds everything that survives between runs in watch mode.
type session struct {
	cfg      *config.Config
	files    []string
	scenario string
	env      string
	seeds    map[string]value.Value

	format  string
	out     io.Writer
	verbose bool
	quiet   bool

	logger   *logging.Logger
	client   *apihttp.Client
	notifier *notify.Manager
	history  *history.Store
	metrics  []metrics.Exporter
	warn     io.Writer
}

func (s *session) newFormatter() (output.Formatter, error) {
	return output.New(strings.ToLower(s.format), output.Options{
		Writer:  s.out,
		Verbose: s.verbose,
		NoColor: s.cfg.GetNoColor(),
		Title:   s.cfg.ReportTitle,
	})
}

func (s *session) warnf(format string, args ...any) {
	fmt.Fprintf(s.warn, "warning: "+format+"\n", args...)
}

// runOnce loads the cases, runs them and hands the result to every
// reporting collaborator. Collaborator failures are warnings; they never
// change the outcome of the run.
func (s *session) runOnce(ctx context.Context) (*runner.SuiteResult, error) {
	set, err := loadCases(s.files, s.cfg.Sheet)
	if err != nil {
		return nil, err
	}

	formatter, err := s.newFormatter()
	if err != nil {
		return nil, &ExitError{Code: ExitUsageError, Err: err}
	}
	if !s.quiet {
		formatter.FormatHeader(version)
	}

	s.logger.Info("run started",
		"environment", s.env,
		"base_url", platformsSummary(s.cfg),
		"files", len(s.files),
		"cases", len(set.Cases))

	r := runner.NewRunner(runnerConfig(s.cfg, s.seeds, s.scenario, s.logger.Logger), s.client)
	result := r.Run(ctx, set)

	s.logger.Info("run finished",
		"run_id", result.RunID,
		"passed", result.Passed,
		"failed", result.Failed,
		"errors", result.Errored,
		"skipped", result.Skipped,
		"invalid", len(result.ConfigErrors),
		"duration", result.Duration())

	if !s.quiet || !result.Success() {
		formatter.FormatResult(result)
		if flushable, ok := formatter.(output.Flushable); ok {
			if err := flushable.Flush(result.Duration()); err != nil {
				return result, fmt.Errorf("error writing output: %w", err)
			}
		}
	}

	reportPath := ""
	if s.cfg.ReportPath != "" {
		path, err := output.WriteReport(s.cfg.ReportPath, s.cfg.ReportTitle, version, result)
		if err != nil {
			s.warnf("failed to write HTML report: %v", err)
		} else {
			reportPath = path
			s.logger.Info("report written", "path", path)
		}
	}

	if len(s.metrics) > 0 {
		collector := metrics.FromSuite(result, s.metrics...)
		if err := collector.Flush(); err != nil {
			s.warnf("failed to export metrics: %v", err)
		}
	}

	// the previous run decides whether this one is a recovery
	if s.notifier != nil && s.history != nil {
		if last, err := s.history.Last(ctx); err == nil {
			s.notifier.SetLastState(last.Success)
		} else if !errors.Is(err, history.ErrNoRuns) {
			s.warnf("failed to read run history: %v", err)
		}
	}

	if s.history != nil {
		if err := s.history.Record(context.WithoutCancel(ctx), history.FromSuite(result, s.env, reportPath)); err != nil {
			s.warnf("failed to record run history: %v", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(notify.FromSuite(result, s.env, reportPath)); err != nil {
			s.warnf("failed to send notification: %v", err)
		}
	}

	return result, nil
}

// dryRun prints the scenarios that would run.
func (s *session) dryRun(w io.Writer) error {
	set, err := loadCases(s.files, s.cfg.Sheet)
	if err != nil {
		return err
	}
	for _, name := range scenarioNames(set) {
		if runner.MatchesPattern(name, s.scenario) {
			fmt.Fprintf(w, "Would run: %s\n", name)
		}
	}
	for _, ce := range set.Invalid {
		fmt.Fprintf(w, "Would skip: %s\n", ce.Error())
	}
	return nil
}

func (s *session) close() {
	if s.history != nil {
		_ = s.history.Close()
	}
	for _, exp := range s.metrics {
		_ = exp.Close()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// newSession resolves settings and builds the long-lived collaborators.
func newSession(cmd *cobra.Command, args []string) (*session, error) {
	cfg, err := loadSettings(configFlag, envFlag, flagOverrides())
	if err != nil {
		return nil, err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Cases
	}
	if len(paths) == 0 {
		return nil, exitf(ExitUsageError, "no case files given and none configured under \"cases\"")
	}
	files, err := collectFiles(paths)
	if err != nil {
		return nil, &ExitError{Code: ExitUsageError, Err: err}
	}
	if len(files) == 0 {
		return nil, exitf(ExitUsageError, "no case files found")
	}

	seeds, err := seedVariables(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		files:    files,
		scenario: scenarioFlag,
		env:      describeEnvironment(cfg, envFlag),
		seeds:    seeds,
		format:   outputFlag,
		out:      cmd.OutOrStdout(),
		verbose:  cfg.GetVerbose(),
		quiet:    quietFlag,
		warn:     cmd.ErrOrStderr(),
	}

	var console io.Writer
	if verboseFlag > 1 {
		console = cmd.ErrOrStderr()
	}
	s.logger, err = logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogPath, Console: console})
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}

	s.notifier, err = buildNotifier(cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	if cfg.HistoryDB != "" {
		s.history, err = history.Open(cfg.HistoryDB)
		if err != nil {
			s.close()
			return nil, &ExitError{Code: ExitConfigError, Err: err}
		}
	}

	s.client = newClient(cfg, s.logger.Logger)
	return s, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.close()

	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return exitf(ExitUsageError, "cannot create output file: %w", err)
		}
		defer f.Close()
		s.out = f
	}

	if dryRunFlag {
		return s.dryRun(cmd.OutOrStdout())
	}

	var prom *metrics.PrometheusExporter
	s.metrics, prom = buildExporters(s.cfg, watchFlag && metricsAddrFlag != "")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchFlag {
		return s.watch(ctx, cmd.OutOrStdout(), prom)
	}

	result, err := s.runOnce(ctx)
	if err != nil {
		return err
	}
	if code := exitCodeFor(result); code != ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}
