package security

import (
	"regexp"
	"strings"
)

// Rule matches a secret-looking token inside free text.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Redactor masks secrets before request/response data reaches the logs.
// Keys that look credential-bearing are masked wholesale; free text is
// scrubbed with pattern rules.
type Redactor struct {
	rules         []Rule
	sensitiveKeys []string
}

// NewRedactor creates a Redactor with the built-in rules.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []Rule{
			{
				Name:        "Bearer Token",
				Pattern:     regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/-]+=*`),
				Replacement: "Bearer [REDACTED]",
			},
			{
				Name:        "API Key",
				Pattern:     regexp.MustCompile(`\bsk-(?:proj-)?[a-zA-Z0-9]{20,}\b`),
				Replacement: "[API_KEY_REDACTED]",
			},
		},
		sensitiveKeys: []string{"token", "cookie", "authorization", "session", "api_key"},
	}
}

// Sanitize scrubs secret-looking tokens from free text.
func (r *Redactor) Sanitize(s string) string {
	for _, rule := range r.rules {
		s = rule.Pattern.ReplaceAllString(s, rule.Replacement)
	}
	return s
}

// MaskValue masks a credential value, keeping just enough to correlate
// log lines: first and last four characters for long values. Counted in
// runes so multi-byte values stay valid UTF-8.
func (r *Redactor) MaskValue(s string) string {
	runes := []rune(s)
	if len(runes) > 8 {
		return string(runes[:4]) + "…" + string(runes[len(runes)-4:])
	}
	return "***"
}

// SensitiveKey reports whether a map key looks credential-bearing.
func (r *Redactor) SensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, token := range r.sensitiveKeys {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// MaskMap returns a copy of data safe for logging: values under sensitive
// keys are masked, nested maps and slices are walked recursively, and
// remaining strings are pattern-scrubbed.
func (r *Redactor) MaskMap(data map[string]any) map[string]any {
	masked := make(map[string]any, len(data))
	for key, val := range data {
		if r.SensitiveKey(key) {
			if s, ok := val.(string); ok {
				masked[key] = r.MaskValue(s)
			} else {
				masked[key] = "***"
			}
			continue
		}
		masked[key] = r.maskAny(val)
	}
	return masked
}

func (r *Redactor) maskAny(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return r.MaskMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.maskAny(item)
		}
		return out
	case string:
		return r.Sanitize(v)
	default:
		return val
	}
}

// MaskHeaders flattens HTTP-style headers into a loggable map with
// credential-bearing entries masked.
func (r *Redactor) MaskHeaders(headers map[string][]string) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ", ")
		if r.SensitiveKey(key) {
			masked[key] = r.MaskValue(joined)
		} else {
			masked[key] = r.Sanitize(joined)
		}
	}
	return masked
}
