package assertions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// ValidateSchema checks body against the JSON Schema stored at schemaPath.
// Relative paths resolve against baseDir and may not leave it. Violations
// come back as diffs; a schema that cannot be read or compiled is an error.
func ValidateSchema(body value.Value, schemaPath, baseDir string) ([]Diff, error) {
	if !filepath.IsAbs(schemaPath) && baseDir != "" {
		schemaPath = filepath.Join(baseDir, schemaPath)
	}
	if err := validatePathWithinBase(schemaPath, baseDir); err != nil {
		return nil, err
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	document, err := body.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	diffs := make([]Diff, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		path := desc.Field()
		if path == "" || path == "(root)" {
			path = "$"
		}
		actual, _ := value.FromAny(desc.Value())
		diffs = append(diffs, Diff{
			Path:     path,
			Expected: value.StringValue("schema:" + desc.Type()),
			Actual:   actual,
			Message:  "schema: " + desc.Description(),
		})
	}
	return diffs, nil
}

// validatePathWithinBase checks that the resolved path stays within the base
// directory.
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}
