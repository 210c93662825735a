package assertions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Wildcard markers accepted as string values inside an expected template.
const (
	MatchAny    = "$any"
	MatchType   = "$type:"
	MatchRegexp = "$regex:"
)

// Diff is one mismatch between an expected template and an actual value.
type Diff struct {
	Path     string      `json:"path"`
	Expected value.Value `json:"expected"`
	Actual   value.Value `json:"actual"`
	Missing  bool        `json:"missing,omitempty"`
	Message  string      `json:"message"`
}

func (d Diff) String() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// Validate checks actual against the expected template with subset
// semantics: keys absent from expected are ignored, and arrays are compared
// position by position up to the length of the expected array, so extra
// actual elements are tolerated. Every mismatch is collected; Validate never
// stops at the first one.
func Validate(actual, expected value.Value) (bool, []Diff) {
	v := &validator{}
	v.walk("", actual, true, expected)
	return len(v.diffs) == 0, v.diffs
}

type validator struct {
	diffs []Diff
}

func (v *validator) add(path string, expected, actual value.Value, missing bool, format string, args ...any) {
	v.diffs = append(v.diffs, Diff{
		Path:     displayPath(path),
		Expected: expected,
		Actual:   actual,
		Missing:  missing,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (v *validator) walk(path string, actual value.Value, present bool, expected value.Value) {
	if expected.Kind() == value.String && isMatcher(expected.Str()) {
		v.match(path, actual, present, expected)
		return
	}

	if !present {
		v.add(path, expected, value.NullValue(), true, "missing, expected %s", expected)
		return
	}

	switch expected.Kind() {
	case value.Object:
		if actual.Kind() != value.Object {
			v.add(path, expected, actual, false, "expected object, got %s", actual.Kind())
			return
		}
		for _, key := range expected.Keys() {
			want, _ := expected.Get(key)
			got, ok := actual.Get(key)
			v.walk(joinKey(path, key), got, ok, want)
		}

	case value.Array:
		if actual.Kind() != value.Array {
			v.add(path, expected, actual, false, "expected array, got %s", actual.Kind())
			return
		}
		for i, want := range expected.Items() {
			got, ok := actual.Index(i)
			v.walk(joinIndex(path, i), got, ok, want)
		}

	case value.Number:
		if actual.Kind() != value.Number {
			v.add(path, expected, actual, false, "expected number %s, got %s %s", expected.Text(), actual.Kind(), actual)
			return
		}
		if !actual.Equal(expected) {
			v.add(path, expected, actual, false, "expected %s, got %s", expected.Text(), actual.Text())
		}

	default:
		if !actual.Equal(expected) {
			if actual.Kind() != expected.Kind() {
				v.add(path, expected, actual, false, "expected %s %s, got %s %s", expected.Kind(), expected, actual.Kind(), actual)
				return
			}
			v.add(path, expected, actual, false, "expected %s, got %s", expected, actual)
		}
	}
}

func (v *validator) match(path string, actual value.Value, present bool, expected value.Value) {
	marker := expected.Str()
	if !present {
		v.add(path, expected, value.NullValue(), true, "missing, expected a value matching %s", marker)
		return
	}

	switch {
	case marker == MatchAny:
		return

	case strings.HasPrefix(marker, MatchType):
		want := strings.TrimSpace(strings.TrimPrefix(marker, MatchType))
		if actual.Kind().String() != want {
			v.add(path, expected, actual, false, "expected type %s, got %s", want, actual.Kind())
		}

	case strings.HasPrefix(marker, MatchRegexp):
		pattern := strings.TrimPrefix(marker, MatchRegexp)
		re, err := regexp.Compile(pattern)
		if err != nil {
			v.add(path, expected, actual, false, "invalid pattern %q: %v", pattern, err)
			return
		}
		if actual.Kind() == value.Object || actual.Kind() == value.Array {
			v.add(path, expected, actual, false, "expected scalar matching %q, got %s", pattern, actual.Kind())
			return
		}
		if !re.MatchString(actual.Text()) {
			v.add(path, expected, actual, false, "%q does not match %q", actual.Text(), pattern)
		}
	}
}

// CheckStatus compares the response status with the one a case expects.
// A zero expected status checks nothing.
func CheckStatus(actual, expected int) []Diff {
	if expected == 0 || actual == expected {
		return nil
	}
	return []Diff{{
		Path:     "$status",
		Expected: value.IntValue(int64(expected)),
		Actual:   value.IntValue(int64(actual)),
		Message:  fmt.Sprintf("expected status %d, got %d", expected, actual),
	}}
}

func isMatcher(s string) bool {
	return s == MatchAny || strings.HasPrefix(s, MatchType) || strings.HasPrefix(s, MatchRegexp)
}

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func joinIndex(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	if strings.HasPrefix(path, "[") {
		return "$" + path
	}
	return path
}
