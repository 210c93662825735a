package vars

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// LoadDotEnv reads a .env file into seed variables. Every value is a string.
// Nothing is exported to the process environment.
func LoadDotEnv(path string) (map[string]value.Value, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file %s: %w", path, err)
	}

	result := make(map[string]value.Value, len(env))
	for k, v := range env {
		result[k] = value.StringValue(v)
	}
	return result, nil
}

// Merge combines seed maps; later maps win.
func Merge(sources ...map[string]value.Value) map[string]value.Value {
	result := make(map[string]value.Value)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// FromConfig converts configuration variables into seed values.
func FromConfig(vars map[string]any) (map[string]value.Value, error) {
	result := make(map[string]value.Value, len(vars))
	for k, raw := range vars {
		v, err := value.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		result[k] = v
	}
	return result, nil
}
