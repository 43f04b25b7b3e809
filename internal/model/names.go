package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldName returns the case-folded form of a neighborhood name used for
// case-insensitive matching. Accents are preserved.
func FoldName(name string) string {
	// A Caser carries state, so a fresh one is built per call.
	return cases.Fold().String(strings.TrimSpace(name))
}

// CompareNames orders names alphabetically, case-insensitively, falling
// back to the raw bytes so the order is total.
func CompareNames(a, b string) int {
	if c := strings.Compare(FoldName(a), FoldName(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
