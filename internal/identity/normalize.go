// Package identity provides identity label normalization and role handling
// shared between the capture engine, the ledger and the web handlers.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Role classifies an enrolled identity. Admins are implicitly allowed to
// commit attendance regardless of the allow list.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a role string to a known Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize canonicalizes an identity label for comparison: trimmed,
// lowercased, diacritics removed. Two labels refer to the same identity
// iff their normalized forms are equal.
func Normalize(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	return strings.TrimSpace(name)
}

// Equal reports whether two identity labels refer to the same identity.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsBlank reports whether a label is empty after trimming whitespace.
func IsBlank(name string) bool {
	return strings.TrimSpace(name) == ""
}
