package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitcase/packages/history"
	"github.com/abdul-hamid-achik/hitcase/packages/logging"
	"github.com/abdul-hamid-achik/hitcase/packages/output"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name   string
		result *runner.SuiteResult
		want   int
	}{
		{"all passed", &runner.SuiteResult{Passed: 3}, ExitSuccess},
		{"nothing ran", &runner.SuiteResult{}, ExitSuccess},
		{"one failure", &runner.SuiteResult{Passed: 2, Failed: 1}, ExitTestFailure},
		{"errors and passes", &runner.SuiteResult{Passed: 1, Errored: 2}, ExitTestFailure},
		{"every executed step errored", &runner.SuiteResult{Errored: 2, Skipped: 3}, ExitNetworkError},
		{"invalid case only", &runner.SuiteResult{Passed: 1, ConfigErrors: []*cases.CaseError{{Reason: "x"}}}, ExitTestFailure},
		{"cancelled with the rest skipped", &runner.SuiteResult{Passed: 1, Skipped: 4, Cancelled: true}, ExitCancelled},
		{"cancelled before anything ran", &runner.SuiteResult{Skipped: 2, Cancelled: true}, ExitCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.result))
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("boom")
	err := error(&ExitError{Code: ExitConfigError, Err: inner})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitConfigError, exitErr.Code)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, "exit status 1", (&ExitError{Code: 1}).Error())
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "cases: []")
	b := writeFile(t, dir, "sub/b.json", "[]")
	writeFile(t, dir, ".hidden/c.yaml", "cases: []")
	writeFile(t, dir, "hitcase.yaml", "timeout: 1000")
	writeFile(t, dir, "~$book.xlsx", "")
	writeFile(t, dir, "notes.txt", "")

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	explicit := filepath.Join(dir, "notes.txt")
	files, err = collectFiles([]string{explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "hitcase.yaml", `
defaultEnvironment: dev
baseUrls:
  default: http://localhost:3000
  admin: http://localhost:4000
environments:
  staging:
    baseUrls:
      default: https://staging.example.com
    variables:
      tenant: acme
timeout: 5000
historyDb: data/history.db
envFile: .env
variables:
  user: alice
`)

	cfg, err := loadSettings(cfgPath, "staging", &config.Config{Timeout: 1000, Retries: 3, BaseURLs: map[string]string{"admin": "http://admin.test"}})
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.BaseURLs["default"])
	assert.Equal(t, "http://admin.test", cfg.BaseURLs["admin"])
	assert.Equal(t, 1000, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, "acme", cfg.Variables["tenant"])
	assert.Equal(t, "alice", cfg.Variables["user"])
	assert.Equal(t, filepath.Join(dir, "data/history.db"), cfg.HistoryDB)
	assert.Equal(t, filepath.Join(dir, ".env"), cfg.EnvFile)

	_, err = loadSettings(cfgPath, "prod", &config.Config{})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitConfigError, exitErr.Code)

	_, err = loadSettings(filepath.Join(dir, "missing.yaml"), "", &config.Config{})
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitConfigError, exitErr.Code)
}

func TestSeedVariables(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "TOKEN=from-file\nUSER=bob\n")

	cfg := config.DefaultConfig()
	cfg.EnvFile = envFile
	cfg.Variables = map[string]any{"USER": "alice", "limit": 10}

	seeds, err := seedVariables(cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-file", seeds["TOKEN"].Str())
	assert.Equal(t, "alice", seeds["USER"].Str())
	assert.Equal(t, 10.0, seeds["limit"].Number())

	cfg.EnvFile = filepath.Join(dir, "missing.env")
	_, err = seedVariables(cfg)
	assert.Error(t, err)
}

func TestBuildNotifier(t *testing.T) {
	m, err := buildNotifier(config.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, m)

	cfg := config.DefaultConfig()
	cfg.Notify = &config.NotifyConfig{
		On:    "recovery",
		Slack: &config.SlackConfig{WebhookURL: "http://slack.test", Channel: "#qa"},
		Teams: &config.TeamsConfig{},
		Email: &config.EmailConfig{Host: "smtp.test", From: "qa@test", To: []string{"dev@test"}},
	}
	m, err = buildNotifier(cfg)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Len())

	cfg.Notify.Email.To = nil
	_, err = buildNotifier(cfg)
	assert.ErrorContains(t, err, "from and to are required")

	cfg.Notify = &config.NotifyConfig{On: "hourly"}
	_, err = buildNotifier(cfg)
	assert.Error(t, err)
}

func TestBuildExporters(t *testing.T) {
	exporters, prom := buildExporters(config.DefaultConfig(), false)
	assert.Empty(t, exporters)
	assert.Nil(t, prom)

	exporters, prom = buildExporters(config.DefaultConfig(), true)
	assert.Len(t, exporters, 1)
	assert.NotNil(t, prom)

	cfg := config.DefaultConfig()
	cfg.Metrics = &config.MetricsConfig{PrometheusFile: "m.prom", JSONFile: "m.json"}
	exporters, prom = buildExporters(cfg, false)
	assert.Len(t, exporters, 2)
	assert.NotNil(t, prom)
}

const flowCases = `cases:
  - case_id: login_001
    scenario: user_flow
    step: 1
    description: login
    method: POST
    api: /api/login
    data:
      username: ${user}
    expected:
      code: 200
    extract:
      token: data.token
  - case_id: info_001
    scenario: user_flow
    step: 2
    description: profile
    method: GET
    api: /api/user/info
    headers:
      Authorization: ${token}
    expected:
      data:
        username: ${user}
    depends: login_001
  - case_id: broken
    scenario: user_flow
    step: 3
    method: GET
    api: /api/broken
`

func flowServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			_, _ = w.Write([]byte(`{"code":200,"data":{"token":"tok-1"}}`))
		case "/api/user/info":
			if r.Header.Get("Authorization") != "tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"code":200,"data":{"username":"alice","id":7}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testSession(t *testing.T, baseURL string) (*session, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	file := writeFile(t, dir, "cases.yaml", flowCases)

	cfg := config.DefaultConfig()
	cfg.BaseURLs = map[string]string{"default": baseURL}
	cfg.Timeout = 2000
	cfg.ReportPath = filepath.Join(dir, "reports")
	cfg.Metrics = &config.MetricsConfig{JSONFile: filepath.Join(dir, "metrics.json")}

	logger, err := logging.New(logging.Options{})
	require.NoError(t, err)

	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)

	var out bytes.Buffer
	exporters, _ := buildExporters(cfg, false)
	s := &session{
		cfg:     cfg,
		files:   []string{file},
		env:     "test",
		seeds:   map[string]value.Value{"user": value.StringValue("alice")},
		format:  "json",
		out:     &out,
		logger:  logger,
		client:  newClient(cfg, logger.Logger),
		history: store,
		metrics: exporters,
		warn:    &bytes.Buffer{},
	}
	t.Cleanup(s.close)
	return s, &out
}

func TestSession_RunOnce(t *testing.T) {
	server := flowServer(t)
	s, out := testSession(t, server.URL)
	ctx := context.Background()

	result, err := s.runOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	require.Len(t, result.ConfigErrors, 1)
	assert.Equal(t, ExitTestFailure, exitCodeFor(result))

	var doc output.JSONOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, result.RunID, doc.RunID)
	assert.Equal(t, 2, doc.Summary.Passed)

	reports, err := os.ReadDir(s.cfg.ReportPath)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	data, err := os.ReadFile(s.cfg.Metrics.JSONFile)
	require.NoError(t, err)
	var m metrics.JSONMetricsOutput
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, int64(2), m.Summary.SuccessCount)

	last, err := s.history.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, last.RunID)
	assert.Equal(t, "test", last.Environment)
	assert.Equal(t, filepath.Join(s.cfg.ReportPath, reports[0].Name()), last.ReportPath)
	assert.False(t, last.Success)
}

func TestSession_RunOnceParseError(t *testing.T) {
	server := flowServer(t)
	s, _ := testSession(t, server.URL)
	s.files = []string{writeFile(t, t.TempDir(), "bad.yaml", "cases: [unclosed")}

	_, err := s.runOnce(context.Background())
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitParseError, exitErr.Code)
}

func TestSession_DryRun(t *testing.T) {
	s, _ := testSession(t, "http://unused.test")
	s.scenario = "user*"

	var out bytes.Buffer
	require.NoError(t, s.dryRun(&out))
	assert.Contains(t, out.String(), "Would run: user_flow")
	assert.Contains(t, out.String(), "Would skip:")
}

func TestWatchLoop_Debounces(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "cases.yaml", "cases: []")

	watcher, err := newWatcher([]string{file})
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reruns := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, cases.IsCaseFile, func(changed string) {
			reruns <- changed
		}, func(error) {})
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("cases: []\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}
	writeFile(t, dir, "notes.txt", "ignored")

	select {
	case changed := <-reruns:
		assert.Equal(t, file, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no rerun after file change")
	}

	select {
	case changed := <-reruns:
		t.Fatalf("unexpected second rerun for %s", changed)
	case <-time.After(2 * WatchDebounceDelay):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestInitValidateList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_PASSWORD", "secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"init", "--dir", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "hitcase project initialized!")

	cfg, err := config.LoadConfig(filepath.Join(dir, "hitcase.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.DefaultEnvironment)
	assert.Equal(t, []string{"cases.yaml"}, cfg.Cases)
	assert.Equal(t, 2, cfg.Retries)

	rootCmd.SetArgs([]string{"init", "--dir", dir})
	err = rootCmd.Execute()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitUsageError, exitErr.Code)

	out.Reset()
	rootCmd.SetArgs([]string{"validate", filepath.Join(dir, "cases.yaml")})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "(3 cases)")

	out.Reset()
	rootCmd.SetArgs([]string{"list", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "user_flow")
	assert.Contains(t, out.String(), "login_rejected")
	assert.Contains(t, out.String(), "user_info_001")
}

func TestValidate_ReportsInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "cases.yaml", flowCases)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"validate", file})
	err := rootCmd.Execute()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitParseError, exitErr.Code)
	assert.Contains(t, out.String(), "1 invalid")
	assert.Contains(t, out.String(), "broken")
}
