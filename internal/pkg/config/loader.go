// Package config provides fail-open loaders for environment variables and
// the validators they share.
//
// A loader never fails. An unset variable yields the default silently, and a
// variable that does not parse or validate yields the default together with
// a warning, so a typo in one setting cannot keep a process from starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value.
//
// Example:
//
//	r := LoadEnvDuration("JOB_TIMEOUT", 10*time.Minute, ValidatePositiveDuration)
//	if r.FallbackApplied {
//	    logger.Warn("configuration fallback applied", slog.String("warning", r.Warning))
//	}
//	timeout := r.Value
type Result[T any] struct {
	Value T

	// Warning explains why the default was used. Empty unless FallbackApplied.
	Warning string

	// FallbackApplied is true when the variable was set but rejected.
	FallbackApplied bool
}

// load reads key and runs parse then validate on a non-empty value.
func load[T any](key string, def T, parse func(string) (T, error), validate func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return Result[T]{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return Result[T]{
			Value:           def,
			FallbackApplied: true,
			Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", key, raw, err, def),
		}
	}
	return Result[T]{Value: v}
}

// LoadEnvString loads a string. validate may be nil.
func LoadEnvString(key, def string, validate func(string) error) Result[string] {
	return load(key, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadEnvInt loads a base 10 integer.
func LoadEnvInt(key string, def int, validate func(int) error) Result[int] {
	return load(key, def, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validate)
}

// LoadEnvFloat loads a floating point number.
func LoadEnvFloat(key string, def float64, validate func(float64) error) Result[float64] {
	return load(key, def, func(s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format")
		}
		return v, nil
	}, validate)
}

// LoadEnvDuration loads a Go duration string such as "30s" or "1h30m".
func LoadEnvDuration(key string, def time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	return load(key, def, time.ParseDuration, validate)
}

// LoadEnvBool loads a boolean in any form strconv.ParseBool accepts.
func LoadEnvBool(key string, def bool) Result[bool] {
	return load(key, def, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}

// LoadEnvList loads a comma separated list. Blank entries are dropped, and a
// variable holding only separators falls back to def.
func LoadEnvList(key string, def []string) Result[[]string] {
	return load(key, def, func(s string) ([]string, error) {
		list := SplitList(s)
		if len(list) == 0 {
			return nil, fmt.Errorf("list is empty")
		}
		return list, nil
	}, nil)
}

// SplitList splits s on commas and trims every entry.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
