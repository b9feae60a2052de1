// Package redact centralizes the one secret-leakage threat this repository
// cares about: a bearer token or an absolute path under the user's home
// directory surviving into a log line or error message. Every string
// bound for output at any verbosity passes through here first.
package redact

import (
	"os"
	"strings"
)

const placeholder = "[REDACTED]"

// Secrets replaces every occurrence of every non-empty secret in s with a
// fixed placeholder. Secrets are compared as exact substrings; no secret
// value is ever logged, only its presence and length (callers report
// length separately, e.g. "token present (40 chars)").
func Secrets(s string, secrets ...string) string {
	out := s
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		out = strings.ReplaceAll(out, secret, placeholder)
	}
	return out
}

// HomeDir replaces every occurrence of the current user's home directory
// prefix in s with "~", so diagnostics never reveal the operator's
// username or local filesystem layout.
func HomeDir(s string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return s
	}
	return strings.ReplaceAll(s, home, "~")
}

// Message applies both Secrets and HomeDir, the standard treatment for a
// VcsError's stderr excerpt or a RemotePRError's diagnostic body before it
// is ever formatted into a user-visible message.
func Message(s string, secrets ...string) string {
	return HomeDir(Secrets(s, secrets...))
}
