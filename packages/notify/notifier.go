// Package notify provides notification functionality for hitcase suite results.
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when the suite does not pass
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when the suite passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first pass after one
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name. Empty means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(s) {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return NotifyOn(s), nil
	}
	return "", fmt.Errorf("unknown notify policy %q", s)
}

// RunSummary represents the summary of a suite run for notifications
type RunSummary struct {
	RunID         string        `json:"run_id"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	ErroredTests  int           `json:"errored_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	InvalidCases  int           `json:"invalid_cases,omitempty"`
	PassRate      float64       `json:"pass_rate"`
	Duration      time.Duration `json:"duration"`
	StartedAt     time.Time     `json:"started_at"`
	Environment   string        `json:"environment,omitempty"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
	Cancelled     bool          `json:"cancelled,omitempty"`
	// ReportPath is the HTML report written for this run, if any
	ReportPath string `json:"report_path,omitempty"`
}

// FailedTest represents a failed or errored step for notifications
type FailedTest struct {
	Name     string   `json:"name"`
	Scenario string   `json:"scenario"`
	Status   string   `json:"status"`
	Errors   []string `json:"errors,omitempty"`
}

// Success reports whether the run finished with no failures, errors or
// invalid cases.
func (s *RunSummary) Success() bool {
	return !s.Cancelled && s.FailedTests == 0 && s.ErroredTests == 0 && s.InvalidCases == 0
}

// Problems is the number of steps and cases that did not pass.
func (s *RunSummary) Problems() int {
	return s.FailedTests + s.ErroredTests + s.InvalidCases
}

// FromSuite builds the notification summary of a suite result.
func FromSuite(result *runner.SuiteResult, environment, reportPath string) *RunSummary {
	summary := &RunSummary{
		RunID:        result.RunID,
		TotalTests:   result.Total(),
		PassedTests:  result.Passed,
		FailedTests:  result.Failed,
		ErroredTests: result.Errored,
		SkippedTests: result.Skipped,
		InvalidCases: len(result.ConfigErrors),
		PassRate:     result.PassRate(),
		Duration:     result.Duration(),
		StartedAt:    result.StartedAt,
		Environment:  environment,
		ReportPath:   reportPath,
		Cancelled:    result.Cancelled,
	}

	for _, step := range result.Steps() {
		ft := FailedTest{
			Name:     step.CaseID,
			Scenario: step.Scenario,
			Status:   string(step.Status),
		}
		switch step.Status {
		case runner.StatusFailed:
			for _, d := range step.Diffs {
				ft.Errors = append(ft.Errors, d.String())
			}
		case runner.StatusError:
			ft.Errors = append(ft.Errors, step.ErrorMessage())
		default:
			continue
		}
		summary.FailedResults = append(summary.FailedResults, ft)
	}

	for _, ce := range result.ConfigErrors {
		summary.FailedResults = append(summary.FailedResults, FailedTest{
			Name:   fmt.Sprintf("%s #%d", ce.Source, ce.Index),
			Status: "invalid",
			Errors: []string{ce.Reason},
		})
	}

	return summary
}

// headline is the one-line outcome shared by every notifier
func headline(summary *RunSummary) string {
	switch {
	case summary.Cancelled:
		return fmt.Sprintf("Run cancelled after %d of %d test(s)", summary.PassedTests+summary.FailedTests+summary.ErroredTests, summary.TotalTests)
	case !summary.Success():
		return fmt.Sprintf("%d test(s) did not pass", summary.Problems())
	case summary.IsRecovery:
		return "Tests recovered!"
	default:
		return "All tests passed!"
	}
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about suite results
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true, // Assume success initially
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetLastState records the outcome of the previous run, typically read
// from run history, for the recovery policy.
func (m *Manager) SetLastState(success bool) {
	m.lastState = success
}

// Len returns the number of configured notifiers.
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// ShouldNotify applies the policy to summary without sending anything. It
// marks summary as a recovery when it is one.
func (m *Manager) ShouldNotify(summary *RunSummary) bool {
	currentSuccess := summary.Success()

	switch m.notifyOn {
	case NotifyAlways:
		return true
	case NotifyFailure:
		return !currentSuccess
	case NotifySuccess:
		return currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			summary.IsRecovery = true
			return true
		}
		return !currentSuccess
	}
	return false
}

// Notify sends notifications based on the configured policy. Every notifier
// is tried; the returned error joins all failures.
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := m.ShouldNotify(summary)
	m.lastState = summary.Success()

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}

	return errors.Join(errs...)
}
