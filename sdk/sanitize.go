package sdk

import (
	"net/http"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces every secret removed by Sanitize.
const RedactedPlaceholder = "***"

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// Each pattern keeps the credential's label in group 1 and consumes only the
// secret itself, so a second pass over sanitized text matches "***" and writes
// back the same placeholder.
var redactions = []redaction{
	{
		pattern:     regexp.MustCompile(`(?i)(authorization["']?\s*[:=]\s*["']?(?:bearer|basic|token)\s+)[^\s"',;]+`),
		replacement: "${1}" + RedactedPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(\bbearer\s+)[A-Za-z0-9\-._~+/]+=*`),
		replacement: "${1}" + RedactedPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(\b(?:client[_-]?secret|api[_-]?key|access[_-]?token|auth[_-]?token|token|secret|password)["']?\s*[:=]\s*["']?)[^\s"',;&]+`),
		replacement: "${1}" + RedactedPlaceholder,
	},
}

// Sanitize redacts credentials from free text before it reaches a log line or
// an error message. Recognized shapes include "Authorization: Bearer <token>",
// bare "Bearer <token>" fragments, and key/value pairs such as "api_key=...",
// "token: ..." or "password=...". Only the secret is replaced; the rest of the
// text is left as is.
//
// Sanitize is deterministic and idempotent:
//
//	s := sdk.Sanitize("Authorization: Bearer super-secret-token error happened")
//	// s == "Authorization: Bearer *** error happened"
//	sdk.Sanitize(s) == s // true
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
	"X-Auth-Token":        true,
}

// SanitizeHeader returns a copy of h that is safe to log. Credential-bearing
// headers keep their auth scheme (if any) and lose the secret; every other
// value goes through Sanitize.
func SanitizeHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, vs := range h {
		ck := http.CanonicalHeaderKey(k)
		for _, v := range vs {
			if sensitiveHeaders[ck] {
				out.Add(ck, redactHeaderValue(v))
				continue
			}
			out.Add(ck, Sanitize(v))
		}
	}
	return out
}

func redactHeaderValue(v string) string {
	if scheme, _, ok := strings.Cut(v, " "); ok && scheme != "" {
		return scheme + " " + RedactedPlaceholder
	}
	return RedactedPlaceholder
}
