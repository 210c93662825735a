package capture

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

const (
	statusPath    = "$status"
	durationPath  = "$duration"
	headersPrefix = "$headers."
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// ExtractionPathError is returned when an extract path does not resolve
// against the response.
type ExtractionPathError struct {
	Name string
	Path string
}

func (e *ExtractionPathError) Error() string {
	return fmt.Sprintf("extract %q: path %q not found in response", e.Name, e.Path)
}

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
	isJSON   bool
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{response: resp}
	if gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
		e.isJSON = true
	}
	return e
}

// Extract resolves one path. Body paths are dotted ("data.items.0.id" or
// "data.items[0].id"); "$status", "$duration" and "$headers.<name>" read
// response metadata.
func (e *Extractor) Extract(path string) (value.Value, bool) {
	path = strings.TrimSpace(path)
	switch {
	case path == statusPath:
		return value.IntValue(int64(e.response.StatusCode)), true
	case path == durationPath:
		return value.IntValue(e.response.DurationMs()), true
	case strings.HasPrefix(path, headersPrefix):
		return e.extractFromHeader(strings.TrimPrefix(path, headersPrefix))
	default:
		return e.extractFromBody(path)
	}
}

func (e *Extractor) extractFromBody(path string) (value.Value, bool) {
	if !e.isJSON {
		if path == "" {
			return value.StringValue(e.response.BodyString()), true
		}
		return value.Value{}, false
	}

	result := e.bodyJSON
	if path != "" {
		result = e.bodyJSON.Get(ConvertBracketNotation(path))
	}
	if !result.Exists() {
		return value.Value{}, false
	}

	v, err := value.Parse([]byte(result.Raw))
	if err != nil {
		return value.Value{}, false
	}
	return v, true
}

func (e *Extractor) extractFromHeader(name string) (value.Value, bool) {
	v := e.response.Header(name)
	if v == "" {
		return value.Value{}, false
	}
	return value.StringValue(v), true
}

// ExtractAll applies rules (variable name -> path) in name order. It stops at
// the first path that does not resolve and returns what was extracted so far.
func ExtractAll(resp *http.Response, rules map[string]string) (map[string]value.Value, error) {
	extractor := NewExtractor(resp)
	results := make(map[string]value.Value, len(rules))

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, ok := extractor.Extract(rules[name])
		if !ok {
			return results, &ExtractionPathError{Name: name, Path: rules[name]}
		}
		results[name] = v
	}

	return results, nil
}

// ConvertBracketNotation rewrites "items[0].id" as "items.0.id".
func ConvertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}
