package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents one scenario
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single step
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a test error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats test results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
	timestamp  time.Time
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.SuiteResult) {
	f.timestamp = result.StartedAt
	timestamp := result.StartedAt.Format(time.RFC3339)

	if len(result.ConfigErrors) > 0 {
		suite := JUnitTestSuite{
			Name:      "invalid cases",
			Tests:     len(result.ConfigErrors),
			Errors:    len(result.ConfigErrors),
			Timestamp: timestamp,
		}
		for _, ce := range result.ConfigErrors {
			suite.TestCases = append(suite.TestCases, JUnitTestCase{
				Name:      fmt.Sprintf("%s #%d", ce.Source, ce.Index),
				ClassName: "invalid cases",
				Error: &JUnitError{
					Message: ce.Reason,
					Type:    "CaseError",
				},
			})
		}
		f.testSuites = append(f.testSuites, suite)
	}

	for _, sc := range result.Scenarios {
		suite := JUnitTestSuite{
			Name:      sc.Name,
			Tests:     len(sc.Steps),
			Time:      sc.Duration.Seconds(),
			Timestamp: timestamp,
			TestCases: make([]JUnitTestCase, 0, len(sc.Steps)),
		}

		for _, s := range sc.Steps {
			tc := JUnitTestCase{
				Name:      stepName(s),
				ClassName: sc.Name,
				Time:      s.Duration.Seconds(),
			}

			switch s.Status {
			case runner.StatusSkipped:
				suite.Skipped++
				tc.Skipped = &JUnitSkipped{
					Message: s.SkipReason,
				}
			case runner.StatusError:
				suite.Errors++
				tc.Error = &JUnitError{
					Message: s.ErrorMessage(),
					Type:    "Error",
				}
			case runner.StatusFailed:
				suite.Failures++
				var failureMsg strings.Builder
				for _, d := range s.Diffs {
					fmt.Fprintf(&failureMsg, "%s: expected %s, got %s. %s\n",
						d.Path, d.Expected.String(), actualText(d), d.Message)
				}
				tc.Failure = &JUnitFailure{
					Message: fmt.Sprintf("%d mismatch(es)", len(s.Diffs)),
					Type:    "AssertionError",
					Content: failureMsg.String(),
				}
			}

			suite.TestCases = append(suite.TestCases, tc)
		}

		f.testSuites = append(f.testSuites, suite)
	}
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors, totalSkipped int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalSkipped += suite.Skipped
	}

	timestamp := f.timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	suites := JUnitTestSuites{
		Name:       "hitcase",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Skipped:    totalSkipped,
		Time:       totalDuration.Seconds(),
		Timestamp:  timestamp.Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}
