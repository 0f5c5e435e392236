package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values.
const RedactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),                 // OpenAI keys
	regexp.MustCompile(`((?:AKIA|ASIA)[A-Z0-9]{16})`),             // AWS access key IDs
	regexp.MustCompile(`(\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53})`),    // bcrypt hashes
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._~+/-]{16,}=*)`), // bearer tokens
	regexp.MustCompile(`(?i)((?:password|secret|token|api_key|apikey)\s*[:=]\s*[^\s,;]{8,})`),
}

// Field names whose values are always redacted.
var sensitiveFieldNames = []string{
	"API_KEY",
	"APIKEY",
	"TOKEN",
	"SECRET",
	"PASSWORD",
	"AUTHORIZATION",
}

// RedactSensitiveData replaces credentials found anywhere in value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, p := range sensitivePatterns {
		value = p.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// IsSensitiveField reports whether a field name denotes a credential.
func IsSensitiveField(name string) bool {
	upper := strings.ToUpper(name)
	for _, s := range sensitiveFieldNames {
		if strings.Contains(upper, s) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether value matches any credential pattern.
func ContainsSensitiveData(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}
