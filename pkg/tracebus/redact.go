package tracebus

import (
	"net/url"
	"regexp"
)

// tokenPattern matches bearer/basic auth tokens embedded in error or remote
// strings, e.g. "Bearer ghp_xxx" or "Basic dXNlcjpwYXNz".
var tokenPattern = regexp.MustCompile(`(?i)(bearer|basic)\s+[a-z0-9._~+/=-]+`)

// secretKeyPattern matches bech32-encoded nostr secret keys, which must
// never reach a sink even inside an error message.
var secretKeyPattern = regexp.MustCompile(`nsec1[a-z0-9]{20,}`)

// Redact scrubs a Span in place-semantics (returns a copy) before it is
// handed to a Sink: tokens and bech32 secret keys are removed from Err, and
// Remote is reduced to scheme+host, dropping any path, query, or userinfo
// that might carry credentials or repo-identifying detail.
func Redact(s Span) Span {
	s.Err = redactString(s.Err)
	s.Remote = redactURL(s.Remote)
	return s
}

func redactString(in string) string {
	in = tokenPattern.ReplaceAllString(in, "${1} [REDACTED]")
	in = secretKeyPattern.ReplaceAllString(in, "[REDACTED]")
	return in
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return redactString(raw)
	}
	u.User = nil
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
