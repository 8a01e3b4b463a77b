// Package security keeps provider credentials out of log output.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// Placeholder replaces every redacted secret.
const Placeholder = "***REDACTED***"

// keyPatterns match the API key formats of the supported providers and
// the tokens most often pasted into an issue or a shell session.
var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_\-]{20,}`),
	regexp.MustCompile(`sk-or-v1-[a-f0-9]{20,}`),
	regexp.MustCompile(`sk-(proj-)?[a-zA-Z0-9_\-]{20,}`),
	regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`(?i)bearer [a-zA-Z0-9._\-]{20,}`),
}

// Redactor replaces known key formats and registered literal secrets.
// It is safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	literals []string
}

// NewRedactor returns a Redactor that also hides each of secrets.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	r.Add(secrets...)
	return r
}

// Add registers literal secrets. Empty values and the placeholder itself
// are ignored.
func (r *Redactor) Add(secrets ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range secrets {
		if s == "" || s == Placeholder {
			continue
		}
		r.literals = append(r.literals, s)
	}
}

// Redact returns s with every secret replaced by Placeholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	r.mu.RLock()
	literals := r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, Placeholder)
	}
	for _, p := range keyPatterns {
		s = p.ReplaceAllString(s, Placeholder)
	}
	return s
}
