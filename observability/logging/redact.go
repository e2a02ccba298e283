package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// Palm codes and bearer tokens are payment credentials; they must never
// appear verbatim in log output.

// MaskCredential returns a slog.Attr that keeps only a short identifying
// prefix of a credential. Empty values are passed through unchanged to avoid
// introducing noise in logs.
func MaskCredential(key, value string) slog.Attr {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return slog.String(key, value)
	}
	const keep = 8
	if len(trimmed) <= keep {
		return slog.String(key, RedactedValue)
	}
	return slog.String(key, trimmed[:keep]+"…"+RedactedValue)
}

// MaskValue returns the canonical redacted placeholder for non-empty values.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}
