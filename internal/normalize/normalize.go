// Package normalize canonicalizes raw entity names for comparison.
//
// Extracted names arrive with OCR noise: stray punctuation, inconsistent
// casing, doubled whitespace, and compatibility-form Unicode. Name collapses
// all of that so that two spellings of the same person compare equal.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Name canonicalizes a raw name for comparison: NFKC normalization, case
// folding, punctuation stripped, internal whitespace collapsed to single
// spaces, and surrounding whitespace trimmed. Name is idempotent.
func Name(raw string) string {
	folded := folder.String(norm.NFKC.String(raw))

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
		// Everything else is punctuation noise and dropped outright.
	}
	return b.String()
}

// Tokens splits a normalized name into its whitespace-delimited tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// SortedKey returns the tokens of a normalized name in sorted order joined by
// single spaces, so "epstein jeffrey" and "jeffrey epstein" share a key.
func SortedKey(normalized string) string {
	tokens := Tokens(normalized)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// IsReordering reports whether two names are token reorderings of each other
// ("Last First" vs "First Last"). Both names must normalize to at least two
// tokens; single-token names cannot be reordered.
func IsReordering(a, b string) bool {
	tokensA := Tokens(Name(a))
	tokensB := Tokens(Name(b))
	if len(tokensA) < 2 || len(tokensB) < 2 || len(tokensA) != len(tokensB) {
		return false
	}
	sort.Strings(tokensA)
	sort.Strings(tokensB)
	for i := range tokensA {
		if tokensA[i] != tokensB[i] {
			return false
		}
	}
	return true
}
