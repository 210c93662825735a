package vars

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/builtin"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

var (
	placeholderPattern = regexp.MustCompile(`\$\{([^{}]*)\}`)
	wholePlaceholder   = regexp.MustCompile(`^\$\{([^{}]*)\}$`)
)

// UnresolvedVariableError is returned when a placeholder names a variable
// that is not in the store.
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable %q", e.Name)
}

// Store holds the variables of one scenario execution. It is owned by a
// single goroutine and does no locking.
type Store struct {
	values    map[string]value.Value
	funcs     *builtin.Registry
	lookupEnv func(string) (string, bool)
}

// NewStore returns a store pre-populated with a copy of seed.
func NewStore(seed map[string]value.Value) *Store {
	s := &Store{
		values:    make(map[string]value.Value, len(seed)),
		funcs:     builtin.NewRegistry(),
		lookupEnv: os.LookupEnv,
	}
	for k, v := range seed {
		s.values[k] = v
	}
	return s
}

// WithFuncs replaces the function registry used for ${fn()} placeholders.
func (s *Store) WithFuncs(r *builtin.Registry) *Store {
	s.funcs = r
	return s
}

func (s *Store) Set(name string, v value.Value) {
	s.values[name] = v
}

func (s *Store) Get(name string) (value.Value, error) {
	v, ok := s.values[name]
	if !ok {
		return value.Value{}, &UnresolvedVariableError{Name: name}
	}
	return v, nil
}

func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

func (s *Store) Len() int {
	return len(s.values)
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Substitute replaces every ${...} placeholder in template. A placeholder is
// one of: a variable name, $NAME for an OS environment variable, or a builtin
// function call such as uuid(). The first placeholder that cannot be resolved
// aborts substitution.
func (s *Store) Substitute(template string) (string, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}

	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		resolved, err := s.resolve(strings.TrimSpace(match[2 : len(match)-1]))
		if err != nil {
			firstErr = err
			return match
		}
		return resolved
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (s *Store) resolve(expr string) (string, error) {
	if strings.HasPrefix(expr, "$") {
		name := expr[1:]
		if v, ok := s.lookupEnv(name); ok {
			return v, nil
		}
		return "", &UnresolvedVariableError{Name: expr}
	}

	if builtin.IsCall(expr) {
		result, ok, err := s.funcs.Call(expr)
		if err != nil {
			return "", err
		}
		if ok {
			return result, nil
		}
		return "", &UnresolvedVariableError{Name: expr}
	}

	v, err := s.Get(expr)
	if err != nil {
		return "", err
	}
	return v.Text(), nil
}

// SubstituteValue applies Substitute to every string leaf of v.
func (s *Store) SubstituteValue(v value.Value) (value.Value, error) {
	return v.MapStrings(s.Substitute)
}

// SubstituteTemplate is SubstituteValue for expected templates. A string
// leaf that is exactly one ${name} placeholder for a stored variable becomes
// the stored value itself, so a number extracted earlier still compares as a
// number. Every other leaf is substituted as text.
func (s *Store) SubstituteTemplate(v value.Value) (value.Value, error) {
	return v.MapLeaves(func(leaf string) (value.Value, error) {
		if m := wholePlaceholder.FindStringSubmatch(leaf); m != nil {
			name := strings.TrimSpace(m[1])
			if !strings.HasPrefix(name, "$") && !builtin.IsCall(name) {
				return s.Get(name)
			}
		}
		text, err := s.Substitute(leaf)
		if err != nil {
			return value.Value{}, err
		}
		return value.StringValue(text), nil
	})
}

// SubstituteMap applies Substitute to every value of m. Keys are not touched.
func (s *Store) SubstituteMap(m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		resolved, err := s.Substitute(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}
