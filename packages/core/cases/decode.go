package cases

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

var (
	requiredFields = []string{"case_id", "scenario", "step", "method", "api", "description"}

	allowedMethods = map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"DELETE": true,
		"PATCH":  true,
	}

	varNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// record is one raw case as decoded from a source, before validation.
type record struct {
	index  int
	fields map[string]value.Value
	err    error
}

// decodeRecord validates a raw record and converts it into a Case.
func decodeRecord(source string, rec record) (*Case, *CaseError) {
	caseID := text(rec.fields["case_id"])
	fail := func(format string, args ...any) (*Case, *CaseError) {
		return nil, &CaseError{
			Source: source,
			Index:  rec.index,
			CaseID: caseID,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	if rec.err != nil {
		return fail("%v", rec.err)
	}

	for _, name := range requiredFields {
		v, ok := rec.fields[name]
		if !ok || v.IsNull() || (v.Kind() == value.String && strings.TrimSpace(v.Str()) == "") {
			return fail("missing required field %q", name)
		}
	}

	c := &Case{
		CaseID:      caseID,
		Scenario:    text(rec.fields["scenario"]),
		Description: text(rec.fields["description"]),
		API:         text(rec.fields["api"]),
		Method:      strings.ToUpper(text(rec.fields["method"])),
		Data:        rec.fields["data"],
		Expected:    rec.fields["expected"],
		Depends:     text(rec.fields["depends"]),
		Platform:    text(rec.fields["platform"]),
		Schema:      text(rec.fields["schema"]),
		Source:      source,
		Index:       rec.index,
	}

	if !allowedMethods[c.Method] {
		return fail("unsupported method %q", c.Method)
	}

	step, err := integer(rec.fields["step"])
	if err != nil {
		return fail("step: %v", err)
	}
	c.Step = step

	if c.Headers, err = stringMap(rec.fields["headers"]); err != nil {
		return fail("headers: %v", err)
	}
	if c.Params, err = stringMap(rec.fields["params"]); err != nil {
		return fail("params: %v", err)
	}
	if c.Extract, err = stringMap(rec.fields["extract"]); err != nil {
		return fail("extract: %v", err)
	}
	for name, path := range c.Extract {
		if !varNamePattern.MatchString(name) {
			return fail("extract: invalid variable name %q", name)
		}
		if strings.TrimSpace(path) == "" {
			return fail("extract: empty path for %q", name)
		}
	}

	if v, ok := present(rec.fields, "status"); ok {
		if c.Status, err = integer(v); err != nil {
			return fail("status: %v", err)
		}
	}
	if v, ok := present(rec.fields, "timeout"); ok {
		if c.Timeout, err = integer(v); err != nil {
			return fail("timeout: %v", err)
		}
	}
	if v, ok := present(rec.fields, "retries"); ok {
		n, err := integer(v)
		if err != nil || n < 0 {
			return fail("retries: must be a non-negative integer")
		}
		c.Retries = &n
	}
	if v, ok := present(rec.fields, "verify_ssl"); ok {
		b, err := boolean(v)
		if err != nil {
			return fail("verify_ssl: %v", err)
		}
		c.VerifySSL = &b
	}

	return c, nil
}

func present(fields map[string]value.Value, name string) (value.Value, bool) {
	v, ok := fields[name]
	if !ok || v.IsNull() {
		return v, false
	}
	if v.Kind() == value.String && strings.TrimSpace(v.Str()) == "" {
		return v, false
	}
	return v, true
}

func text(v value.Value) string {
	if v.IsNull() {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

func integer(v value.Value) (int, error) {
	switch v.Kind() {
	case value.Number:
		n := v.Number()
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case value.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str()))
		if err != nil {
			// spreadsheets hand numbers back as "1.0"
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
			if ferr != nil || f != math.Trunc(f) {
				return 0, fmt.Errorf("%q is not an integer", v.Str())
			}
			return int(f), nil
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %s", v.Kind())
	}
}

func boolean(v value.Value) (bool, error) {
	switch v.Kind() {
	case value.Bool:
		return v.Bool(), nil
	case value.String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.Str()))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v.Str())
		}
		return b, nil
	default:
		return false, fmt.Errorf("expected boolean, got %s", v.Kind())
	}
}

func stringMap(v value.Value) (map[string]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() == value.String && strings.TrimSpace(v.Str()) == "" {
		return nil, nil
	}
	if v.Kind() != value.Object {
		return nil, fmt.Errorf("expected mapping, got %s", v.Kind())
	}
	out := make(map[string]string, v.Len())
	for _, k := range v.Keys() {
		f, _ := v.Get(k)
		out[k] = f.Text()
	}
	return out, nil
}
