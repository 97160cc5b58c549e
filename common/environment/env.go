// Package environment provides helpers for loading configuration from
// environment variables.
//
// Lookups are scoped by a common prefix so call sites name only the suffix:
//
//	env := environment.Prefixed("TOGUSA_")
//	dbPath := env.StringOr("DB_PATH", "togusa.db") // reads TOGUSA_DB_PATH
//
// Helpers return defaults instead of failing on malformed values; required
// variables return an error rather than calling os.Exit, keeping process
// termination out of library code.
package environment

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env reads environment variables under a fixed name prefix.
// The zero value reads unprefixed names.
type Env struct {
	prefix string
}

// Prefixed returns an Env whose lookups prepend the given prefix to every
// variable name.
func Prefixed(prefix string) Env {
	return Env{prefix: prefix}
}

// Name returns the full environment variable name for the given suffix.
func (e Env) Name(suffix string) string {
	return e.prefix + suffix
}

// String returns the value of the variable and whether it was set at all
// (even if set to the empty string).
func (e Env) String(name string) (string, bool) {
	return os.LookupEnv(e.Name(name))
}

// StringOr returns the variable's value, or defaultValue when it is unset or
// empty.
func (e Env) StringOr(name, defaultValue string) string {
	if v := os.Getenv(e.Name(name)); v != "" {
		return v
	}
	return defaultValue
}

// RequiredString returns the variable's value, or an error naming the full
// variable when it is unset or empty.
func (e Env) RequiredString(name string) (string, error) {
	v := os.Getenv(e.Name(name))
	if v == "" {
		return "", fmt.Errorf("required environment variable %q is not set", e.Name(name))
	}
	return v, nil
}

// BoolOr parses the variable with strconv.ParseBool ("1", "t", "true", "0",
// "f", "false", ...). Returns defaultValue when unset, empty, or unparseable.
func (e Env) BoolOr(name string, defaultValue bool) bool {
	v := os.Getenv(e.Name(name))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// IntOr parses the variable as a decimal integer. Returns defaultValue when
// unset, empty, or unparseable.
func (e Env) IntOr(name string, defaultValue int) int {
	v := os.Getenv(e.Name(name))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// DurationOr parses the variable as a time.Duration ("30s", "5m", "1h").
// Returns defaultValue when unset, empty, or unparseable.
func (e Env) DurationOr(name string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(e.Name(name))
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// StringSliceOr parses the variable as a comma-separated list, trimming
// whitespace from each element and dropping empties. Returns defaultValue
// when unset or when no non-empty elements remain.
func (e Env) StringSliceOr(name string, defaultValue []string) []string {
	v := os.Getenv(e.Name(name))
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
