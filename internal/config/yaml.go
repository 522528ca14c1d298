package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// coerceToJSONBytes turns a YAML config file into JSON bytes so one strict
// JSON decoder (DisallowUnknownFields) serves both formats. Files without a
// .yaml/.yml extension pass through untouched.
func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}

	j, err := json.Marshal(stringifyMapKeys(v))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// stringifyMapKeys rewrites every map key to a string; json.Marshal refuses
// the map[any]any values the YAML decoder can produce.
func stringifyMapKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = stringifyMapKeys(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = stringifyMapKeys(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringifyMapKeys(x[i])
		}
		return x
	default:
		return in
	}
}
