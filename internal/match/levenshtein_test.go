package match_test

import (
	"testing"

	"conflate/internal/match"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"epstein", "epstein", 0},
		{"epstein", "epstien", 2},
		{"maxwell", "maxwel", 1},
		{"flight logs", "flight log", 1},
	}
	for _, tc := range cases {
		if got := match.Levenshtein(tc.a, tc.b); got != tc.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		// Distance is symmetric.
		if got := match.Levenshtein(tc.b, tc.a); got != tc.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", tc.b, tc.a, got, tc.want)
		}
	}
}
