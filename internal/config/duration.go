package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses an optional Go duration string from the config.
// key names the field for error messages. Empty input yields zero; negative
// values are rejected.
func ParseDurationField(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: bad duration %q: %w", key, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must not be negative", key)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for omitted
// or zero values.
func ParseDurationOrDefault(key, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(key, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
