package cases

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Case is one test step loaded from a case file.
type Case struct {
	CaseID      string
	Scenario    string
	Step        int
	Description string
	API         string
	Method      string
	Headers     map[string]string
	Params      map[string]string
	Data        value.Value
	Expected    value.Value
	Extract     map[string]string
	Depends     string
	Platform    string
	Status      int
	VerifySSL   *bool
	Timeout     int
	Retries     *int
	Schema      string

	// Source is the file the case came from; Index is its 1-based record position.
	Source string
	Index  int
}

// HasBody reports whether the case carries a request body.
func (c *Case) HasBody() bool {
	return !c.Data.IsNull()
}

// HasExpected reports whether the case carries an expected-response template.
func (c *Case) HasExpected() bool {
	return !c.Expected.IsNull()
}

func (c *Case) String() string {
	return fmt.Sprintf("%s[%d] %s", c.Scenario, c.Step, c.CaseID)
}

// Set is the outcome of loading one or more case sources. Records that could
// not be turned into a runnable Case are collected in Invalid.
type Set struct {
	Sources []string
	Cases   []*Case
	Invalid []*CaseError
}

// Merge appends the cases and errors of other into s.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	s.Sources = append(s.Sources, other.Sources...)
	s.Cases = append(s.Cases, other.Cases...)
	s.Invalid = append(s.Invalid, other.Invalid...)
}

// CaseError describes a record excluded from the run.
type CaseError struct {
	Source string
	Index  int
	CaseID string
	Reason string
}

func (e *CaseError) Error() string {
	if e.CaseID != "" {
		return fmt.Sprintf("%s #%d (%s): %s", e.Source, e.Index, e.CaseID, e.Reason)
	}
	return fmt.Sprintf("%s #%d: %s", e.Source, e.Index, e.Reason)
}
