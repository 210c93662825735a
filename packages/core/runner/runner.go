package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/capture"
	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
	"github.com/abdul-hamid-achik/hitcase/packages/core/vars"
	"github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

const (
	// DefaultConcurrency is the default number of scenarios run at once
	DefaultConcurrency = 5
	// DefaultPlatform names the base URL used by cases without a platform
	DefaultPlatform = "default"
)

var (
	// ErrDependencyNotPassed marks a step skipped because its depends target
	// did not pass.
	ErrDependencyNotPassed = errors.New("dependency not passed")
	// ErrRunCancelled marks a step skipped because the run was cancelled.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrBailed marks a step skipped because an earlier scenario did not pass
	// and bail is on.
	ErrBailed = errors.New("bail: earlier scenario did not pass")
)

// Executor sends a request with retries. *http.Client implements it.
type Executor interface {
	Execute(ctx context.Context, req *http.Request, policy http.RetryPolicy) *http.Result
}

type Config struct {
	// BaseURLs maps platform names to base URLs; DefaultPlatform is used for
	// cases without a platform.
	BaseURLs map[string]string
	// Timeout applies to cases without their own; zero leaves the client default.
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RetryOn        []int
	Concurrency    int
	Variables      map[string]value.Value
	ScenarioFilter string
	Bail           bool
	Logger         *slog.Logger
}

type Runner struct {
	exec   Executor
	config *Config
	logger *slog.Logger
}

// NewRunner returns a runner sending requests through exec. A nil exec gets a
// default client.
func NewRunner(cfg *Config, exec Executor) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if exec == nil {
		opts := []http.ClientOption{http.WithLogger(logger)}
		if cfg.Timeout > 0 {
			opts = append(opts, http.WithTimeout(cfg.Timeout))
		}
		exec = http.NewClient(opts...)
	}
	return &Runner{exec: exec, config: cfg, logger: logger}
}

// Run executes every runnable case in set and returns when all scenarios
// have reached a terminal state. Scenarios run concurrently up to
// Config.Concurrency; steps within a scenario run in order. Cancelling ctx
// turns every step that has not started into a skipped step.
func (r *Runner) Run(ctx context.Context, set *cases.Set) *SuiteResult {
	suite := &SuiteResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	scenarios, rejected := cases.Group(set.Cases)
	suite.ConfigErrors = append(append(suite.ConfigErrors, set.Invalid...), rejected...)
	for _, ce := range suite.ConfigErrors {
		r.logger.Warn("case excluded", "source", ce.Source, "index", ce.Index, "case_id", ce.CaseID, "reason", ce.Reason)
	}

	var selected []*cases.Scenario
	for _, sc := range scenarios {
		if MatchesPattern(sc.Name, r.config.ScenarioFilter) {
			selected = append(selected, sc)
		}
	}

	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*ScenarioResult, len(selected))
	var wg sync.WaitGroup
	var bailed atomic.Bool
	sem := make(chan struct{}, concurrency)

	for i, sc := range selected {
		acquired := false
		select {
		case sem <- struct{}{}:
			acquired = true
		case <-ctx.Done():
		}

		var reason error
		switch {
		case ctx.Err() != nil:
			reason = ErrRunCancelled
		case bailed.Load():
			reason = ErrBailed
		}
		if reason != nil {
			if acquired {
				<-sem
			}
			results[i] = skipScenario(sc, reason)
			continue
		}

		wg.Add(1)
		go func(idx int, scenario *cases.Scenario) {
			defer wg.Done()
			defer func() { <-sem }()

			res := r.runScenario(ctx, scenario)
			results[idx] = res
			if r.config.Bail && res.Status != StatusPassed {
				bailed.Store(true)
			}
		}(i, sc)
	}

	wg.Wait()

	suite.Scenarios = results
	suite.Cancelled = ctx.Err() != nil
	suite.FinishedAt = time.Now()
	suite.tally()

	r.logger.Info("run finished",
		"run_id", suite.RunID,
		"passed", suite.Passed,
		"failed", suite.Failed,
		"errored", suite.Errored,
		"skipped", suite.Skipped,
		"duration", suite.Duration(),
	)
	return suite
}

func skipScenario(sc *cases.Scenario, reason error) *ScenarioResult {
	res := &ScenarioResult{Name: sc.Name}
	for _, c := range sc.Steps {
		res.Steps = append(res.Steps, skipped(c, reason))
	}
	res.Status = scenarioStatus(res.Steps)
	return res
}

func skipped(c *cases.Case, reason error) *StepResult {
	res := newStepResult(c)
	res.Status = StatusSkipped
	res.Err = reason
	res.SkipReason = reason.Error()
	return res
}

func newStepResult(c *cases.Case) *StepResult {
	return &StepResult{
		CaseID:      c.CaseID,
		Scenario:    c.Scenario,
		Step:        c.Step,
		Description: c.Description,
		Status:      StatusPending,
	}
}

// runScenario executes the steps of one scenario in order with a fresh
// variable store seeded from the configuration.
func (r *Runner) runScenario(ctx context.Context, sc *cases.Scenario) *ScenarioResult {
	start := time.Now()
	store := vars.NewStore(r.config.Variables)
	res := &ScenarioResult{Name: sc.Name}
	byID := make(map[string]*StepResult, len(sc.Steps))
	byStep := make(map[string]*StepResult, len(sc.Steps))

	r.logger.Info("scenario started", "scenario", sc.Name, "steps", len(sc.Steps))

	for _, c := range sc.Steps {
		var step *StepResult
		switch {
		case ctx.Err() != nil:
			step = skipped(c, ErrRunCancelled)
		case c.Depends != "":
			dep, ok := byID[c.Depends]
			if !ok {
				dep, ok = byStep[c.Depends]
			}
			if !ok {
				step = skipped(c, fmt.Errorf("%w: %q has not run", ErrDependencyNotPassed, c.Depends))
			} else if dep.Status != StatusPassed {
				step = skipped(c, fmt.Errorf("%w: %q is %s", ErrDependencyNotPassed, c.Depends, dep.Status))
			}
		}
		if step == nil {
			step = r.runStep(ctx, store, c)
		}

		r.logStep(step)
		res.Steps = append(res.Steps, step)
		byID[c.CaseID] = step
		byStep[strconv.Itoa(c.Step)] = step
	}

	res.Status = scenarioStatus(res.Steps)
	res.Duration = time.Since(start)
	r.logger.Info("scenario finished", "scenario", sc.Name, "status", res.Status, "duration", res.Duration)
	return res
}

func (r *Runner) logStep(step *StepResult) {
	attrs := []any{
		"scenario", step.Scenario,
		"step", step.Step,
		"case_id", step.CaseID,
		"status", step.Status,
		"duration", step.Duration,
	}
	switch step.Status {
	case StatusPassed:
		r.logger.Info("step finished", attrs...)
	case StatusSkipped:
		r.logger.Info("step finished", append(attrs, "reason", step.SkipReason)...)
	case StatusFailed:
		r.logger.Warn("step finished", append(attrs, "diffs", len(step.Diffs))...)
	default:
		r.logger.Error("step finished", append(attrs, "error", step.ErrorMessage())...)
	}
}

// runStep drives one case from running to a terminal state.
func (r *Runner) runStep(ctx context.Context, store *vars.Store, c *cases.Case) *StepResult {
	start := time.Now()
	res := newStepResult(c)
	res.Status = StatusRunning

	finish := func(status Status, err error) *StepResult {
		res.Status = status
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	req, body, err := r.buildRequest(store, c)
	if err != nil {
		return finish(StatusError, err)
	}
	res.Request = &SentRequest{
		Method:  req.Method,
		URL:     req.BuildURL(),
		Headers: req.Headers,
		Body:    body,
	}

	out := r.exec.Execute(ctx, req, r.policyFor(c))
	res.Attempts = out.Attempts
	res.Retries = out.Retries()
	if out.Response != nil {
		res.Response = &ReceivedResponse{
			StatusCode: out.Response.StatusCode,
			Headers:    out.Response.Headers,
			Body:       out.Response.BodyValue(),
			Duration:   out.Response.Duration,
		}
	}
	if out.Err != nil {
		return finish(StatusError, out.Err)
	}

	diffs := assertions.CheckStatus(out.Response.StatusCode, c.Status)
	if c.HasExpected() {
		expected, err := store.SubstituteTemplate(c.Expected)
		if err != nil {
			return finish(StatusError, fmt.Errorf("expected: %w", err))
		}
		_, bodyDiffs := assertions.Validate(res.Response.Body, expected)
		diffs = append(diffs, bodyDiffs...)
	}
	if c.Schema != "" {
		schemaDiffs, err := assertions.ValidateSchema(res.Response.Body, c.Schema, filepath.Dir(c.Source))
		if err != nil {
			return finish(StatusError, err)
		}
		diffs = append(diffs, schemaDiffs...)
	}
	if len(diffs) > 0 {
		res.Diffs = diffs
		return finish(StatusFailed, nil)
	}

	if len(c.Extract) > 0 {
		extracted, err := capture.ExtractAll(out.Response, c.Extract)
		if err != nil {
			return finish(StatusError, err)
		}
		for name, v := range extracted {
			store.Set(name, v)
			r.logger.Debug("variable extracted", "scenario", c.Scenario, "case_id", c.CaseID, "name", name, "value", v.Text())
		}
		res.Extracted = extracted
	}

	return finish(StatusPassed, nil)
}

// buildRequest substitutes the case into a request. It also returns the
// substituted body, which is what the request carries as JSON.
func (r *Runner) buildRequest(store *vars.Store, c *cases.Case) (*http.Request, value.Value, error) {
	api, err := store.Substitute(c.API)
	if err != nil {
		return nil, value.Value{}, fmt.Errorf("api: %w", err)
	}
	target, err := r.resolveURL(c.Platform, api)
	if err != nil {
		return nil, value.Value{}, err
	}

	headers, err := store.SubstituteMap(c.Headers)
	if err != nil {
		return nil, value.Value{}, fmt.Errorf("headers: %w", err)
	}
	params, err := store.SubstituteMap(c.Params)
	if err != nil {
		return nil, value.Value{}, fmt.Errorf("params: %w", err)
	}
	body, err := store.SubstituteValue(c.Data)
	if err != nil {
		return nil, value.Value{}, fmt.Errorf("data: %w", err)
	}

	req := http.NewRequest(c.Method, target).SetHeaders(headers)
	for k, v := range params {
		req.SetQueryParam(k, v)
	}
	if err := req.SetJSONBody(body); err != nil {
		return nil, value.Value{}, fmt.Errorf("data: %w", err)
	}

	if c.Timeout > 0 {
		req.SetTimeout(time.Duration(c.Timeout) * time.Millisecond)
	} else if r.config.Timeout > 0 {
		req.SetTimeout(r.config.Timeout)
	}
	if c.VerifySSL != nil {
		req.SetVerifySSL(*c.VerifySSL)
	}
	return req, body, nil
}

func (r *Runner) resolveURL(platform, api string) (string, error) {
	if strings.HasPrefix(api, "http://") || strings.HasPrefix(api, "https://") {
		return api, nil
	}
	if platform == "" {
		platform = DefaultPlatform
	}
	base, ok := r.config.BaseURLs[platform]
	if !ok || base == "" {
		return "", fmt.Errorf("no base URL configured for platform %q", platform)
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(api, "/"), nil
}

func (r *Runner) policyFor(c *cases.Case) http.RetryPolicy {
	policy := http.RetryPolicy{
		MaxRetries:   r.config.MaxRetries,
		Backoff:      r.config.Backoff,
		MaxBackoff:   r.config.MaxBackoff,
		RetryOn:      r.config.RetryOn,
		ExpectStatus: c.Status,
	}
	if c.Retries != nil {
		policy.MaxRetries = *c.Retries
	}
	return policy
}

// MatchesPattern supports "*x*", "x*", "*x" and exact names. An empty
// pattern matches everything.
func MatchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return name == pattern
}
