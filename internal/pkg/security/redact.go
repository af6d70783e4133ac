package security

import (
	"regexp"
	"strings"
)

var sensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"signature",
}

// Quoted "key":"value" or key=value pairs whose key names a credential.
var kvPattern = regexp.MustCompile(`(?i)("?(?:password|passwd|secret|token|api_key|apikey|authorization|signature)[a-z0-9_]*"?\s*[:=]\s*)("[^"]*"|\S+)`)

// Redact replaces credential-looking values in a message before it is logged
// or persisted.
func Redact(message string) string {
	return kvPattern.ReplaceAllString(message, `$1"[REDACTED]"`)
}

// RedactMap returns a copy of fields with sensitive values masked.
func RedactMap(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
		} else {
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
