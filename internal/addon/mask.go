package addon

import "strings"

// sensitiveNameFragments mirrors the teacher's redaction-rule idiom
// (pkg/governance/redaction.go compiles regexes from a policy) but here
// the fragment list is the *key-matcher* itself, shared by the
// SensitiveData validation rule (internal/rules) and the LSP hover masking
// path (internal/workspace) so the two never drift apart — spec.md §9
// "Manifest value masking" calls this out explicitly.
var sensitiveNameFragments = []string{"key", "secret", "private", "token"}

// LooksSensitive reports whether an input/attribute name suggests it holds
// a secret, per spec.md §4.6 rule 4 (SensitiveData).
func LooksSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range sensitiveNameFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// LooksLikeLiteralSecret reports whether value appears to be a literal
// secret rather than a reference to a vault/env indirection — the second
// half of the SensitiveData heuristic.
func LooksLikeLiteralSecret(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "$") {
		return false
	}
	if strings.Contains(trimmed, "vault") || strings.Contains(trimmed, "env.") {
		return false
	}
	return true
}

// MaskSensitiveValue masks a value for display: the first and last two
// characters survive, everything between becomes "•".
func MaskSensitiveValue(value string) string {
	r := []rune(value)
	if len(r) <= 4 {
		return strings.Repeat("•", len(r))
	}
	masked := make([]rune, len(r))
	copy(masked, r)
	for i := 2; i < len(r)-2; i++ {
		masked[i] = '•'
	}
	return string(masked)
}
