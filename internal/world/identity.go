package world

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxIdentityRunes caps identity length after normalization.
const MaxIdentityRunes = 32

// NormalizeIdentity canonicalizes a player identity: Unicode NFKC, case
// folded, surrounding whitespace trimmed. Two spellings that normalize the
// same are the same identity; the registry's one-session rule applies to
// the normalized form. A Caser is stateful, so build one per call.
func NormalizeIdentity(raw string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(raw)))
}

// ValidIdentity reports whether a normalized identity is acceptable:
// non-empty, within the rune cap, and free of control characters.
func ValidIdentity(identity string) bool {
	if identity == "" || utf8.RuneCountInString(identity) > MaxIdentityRunes {
		return false
	}
	for _, r := range identity {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
