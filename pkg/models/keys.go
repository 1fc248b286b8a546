package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey canonicalizes category, tag and preference keys so that
// "Électronics ", "ÉLECTRONICS" and "électronics" compare equal.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Casers keep state and must not be shared between goroutines.
	return cases.Fold().String(norm.NFKC.String(s))
}

// NormalizePreferences re-keys a preference map with NormalizeKey, summing
// weights whose keys collapse together.
func NormalizePreferences(prefs map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prefs))
	for k, w := range prefs {
		key := NormalizeKey(k)
		if key == "" {
			continue
		}
		out[key] += w
	}
	return out
}
