package runner

import (
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Status is the state of a step or scenario.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusError, StatusSkipped:
		return true
	}
	return false
}

// SentRequest is the request as it went out, after substitution.
type SentRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    value.Value
}

// ReceivedResponse is the last response seen for a step.
type ReceivedResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       value.Value
	Duration   time.Duration
}

// StepResult is the outcome of one case. Err carries the cause for error
// and skipped steps.
type StepResult struct {
	CaseID      string
	Scenario    string
	Step        int
	Description string
	Status      Status
	Request     *SentRequest
	Response    *ReceivedResponse
	Diffs       []assertions.Diff
	Extracted   map[string]value.Value
	Duration    time.Duration
	Attempts    int
	Retries     int
	Err         error
	SkipReason  string
}

// ErrorMessage returns the error text, or "" when the step has no error.
func (s *StepResult) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

type ScenarioResult struct {
	Name     string
	Status   Status
	Steps    []*StepResult
	Duration time.Duration
}

// SuiteResult is the outcome of a whole run. Counts are per step.
type SuiteResult struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Scenarios    []*ScenarioResult
	ConfigErrors []*cases.CaseError
	Passed       int
	Failed       int
	Errored      int
	Skipped      int
	Cancelled    bool
}

func (s *SuiteResult) Total() int {
	return s.Passed + s.Failed + s.Errored + s.Skipped
}

func (s *SuiteResult) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Success reports whether every executed step passed, every case loaded and
// the run was not cancelled.
func (s *SuiteResult) Success() bool {
	return !s.Cancelled && s.Failed == 0 && s.Errored == 0 && len(s.ConfigErrors) == 0
}

// PassRate is the share of passed steps among non-skipped ones, 0..100.
func (s *SuiteResult) PassRate() float64 {
	executed := s.Passed + s.Failed + s.Errored
	if executed == 0 {
		return 0
	}
	return float64(s.Passed) * 100 / float64(executed)
}

// Steps returns every step result in scenario order.
func (s *SuiteResult) Steps() []*StepResult {
	var steps []*StepResult
	for _, sc := range s.Scenarios {
		steps = append(steps, sc.Steps...)
	}
	return steps
}

func (s *SuiteResult) tally() {
	s.Passed, s.Failed, s.Errored, s.Skipped = 0, 0, 0, 0
	for _, step := range s.Steps() {
		switch step.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusError:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		}
	}
}

// scenarioStatus folds step outcomes: error beats failed beats passed, and a
// scenario where nothing ran is skipped.
func scenarioStatus(steps []*StepResult) Status {
	status := StatusSkipped
	for _, step := range steps {
		switch step.Status {
		case StatusError:
			return StatusError
		case StatusFailed:
			status = StatusFailed
		case StatusPassed:
			if status == StatusSkipped {
				status = StatusPassed
			}
		}
	}
	return status
}
