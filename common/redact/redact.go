// Package redact provides helpers for stripping sensitive values from log
// output and structured data before it leaves the process boundary.
//
// Secrets (the NLP API key, the Matrix access token, encrypted config values)
// must never appear in log lines, audit payloads, or chat replies. Redaction
// is best-effort: it operates on string representations and relies on callers
// to pass the right set of sensitive terms. It is NOT a substitute for keeping
// secrets out of log call-sites in the first place.
package redact

import (
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid spurious
// redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Map returns a shallow copy of m with values replaced by [REDACTED] for
// every key whose name suggests it contains a secret (password, token, key,
// secret, credential, auth). Non-string values are left unchanged.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if IsSensitiveKey(k) {
			if str, ok := v.(string); ok && str != "" {
				out[k] = placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Mask returns a display form of a secret that keeps only the last 4
// characters ("…abcd"). Values of 8 characters or fewer are fully replaced.
// Used by the status endpoint to confirm which credential is loaded without
// exposing it.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return placeholder
	}
	return "…" + value[len(value)-4:]
}

// IsSensitiveKey returns true when the key name suggests it holds a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "token", "secret", "key", "credential", "auth"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
