package cases

import (
	"fmt"
	"sort"
)

// Scenario is an ordered list of steps sharing one variable store.
type Scenario struct {
	Name  string
	Steps []*Case
}

// Group splits cases into scenarios, in order of first appearance, with steps
// sorted by ascending step number. A case whose case_id or (scenario, step)
// pair was already seen is rejected and returned as a CaseError.
func Group(list []*Case) ([]*Scenario, []*CaseError) {
	var (
		scenarios []*Scenario
		rejected  []*CaseError
		byName    = make(map[string]*Scenario)
		ids       = make(map[string]*Case)
		steps     = make(map[string]map[int]*Case)
	)

	for _, c := range list {
		if first, ok := ids[c.CaseID]; ok {
			rejected = append(rejected, duplicate(c, "duplicate case_id, first defined in %s #%d", first.Source, first.Index))
			continue
		}
		if steps[c.Scenario] == nil {
			steps[c.Scenario] = make(map[int]*Case)
		}
		if first, ok := steps[c.Scenario][c.Step]; ok {
			rejected = append(rejected, duplicate(c, "duplicate step %d in scenario %q, first used by %s", c.Step, c.Scenario, first.CaseID))
			continue
		}
		ids[c.CaseID] = c
		steps[c.Scenario][c.Step] = c

		sc, ok := byName[c.Scenario]
		if !ok {
			sc = &Scenario{Name: c.Scenario}
			byName[c.Scenario] = sc
			scenarios = append(scenarios, sc)
		}
		sc.Steps = append(sc.Steps, c)
	}

	for _, sc := range scenarios {
		sort.SliceStable(sc.Steps, func(i, j int) bool {
			return sc.Steps[i].Step < sc.Steps[j].Step
		})
	}
	return scenarios, rejected
}

func duplicate(c *Case, format string, args ...any) *CaseError {
	return &CaseError{
		Source: c.Source,
		Index:  c.Index,
		CaseID: c.CaseID,
		Reason: fmt.Sprintf(format, args...),
	}
}
