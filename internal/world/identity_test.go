package world

import (
	"strings"
	"testing"
)

func TestNormalizeIdentity(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want string
	}{
		"lowercase kept":   {"ada", "ada"},
		"case folded":      {"Ada", "ada"},
		"shouting folded":  {"GRACE", "grace"},
		"trimmed":          {"  bors  ", "bors"},
		"fullwidth ascii":  {"ｂｏｒｓ", "bors"},
		"compat ligature":  {"ﬁnn", "finn"},
		"german sharp s":   {"straße", "strasse"},
		"mixed":            {" ＦＩＮＮ ", "finn"},
		"interior spacing": {"old tom", "old tom"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := NormalizeIdentity(tc.raw); got != tc.want {
				t.Errorf("NormalizeIdentity(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestValidIdentity(t *testing.T) {
	tests := map[string]struct {
		identity string
		want     bool
	}{
		"plain":         {"ada", true},
		"spaced":        {"old tom", true},
		"unicode":       {"björn", true},
		"empty":         {"", false},
		"control chars": {"ada\x00", false},
		"newline":       {"ada\nbors", false},
		"too long":      {strings.Repeat("a", MaxIdentityRunes+1), false},
		"max length":    {strings.Repeat("a", MaxIdentityRunes), true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ValidIdentity(tc.identity); got != tc.want {
				t.Errorf("ValidIdentity(%q) = %v, want %v", tc.identity, got, tc.want)
			}
		})
	}
}

// Differently-typed spellings of one name must collide in the registry.
func TestNormalizedCollision(t *testing.T) {
	s := NewState(nil)
	a := NormalizeIdentity("Ada")
	b := NormalizeIdentity("ＡＤＡ")
	if a != b {
		t.Fatalf("normalized forms differ: %q vs %q", a, b)
	}
	if _, err := s.Register(a, &fakeConn{}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(b, &fakeConn{}, 1); err == nil {
		t.Error("second spelling registered alongside the first")
	}
}
