package normalize_test

import (
	"testing"

	"conflate/internal/normalize"
)

func TestName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Jeffrey Epstein", "jeffrey epstein"},
		{"strips punctuation", "Jeffrey  Epstein!", "jeffrey epstein"},
		{"collapses whitespace", "  Jeffrey \t Epstein  ", "jeffrey epstein"},
		{"keeps digits", "Flight 727", "flight 727"},
		{"drops possessive punctuation", "O'Brien, D.", "obrien d"},
		{"empty", "   ", ""},
		{"only punctuation", "...!!!", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalize.Name(tc.in)
			if got != tc.want {
				t.Fatalf("Name(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{"Jeffrey  Epstein!", "  G. Maxwell ", "UPPER lower MiXeD", "Jean-Luc  Picard"}
	for _, in := range inputs {
		once := normalize.Name(in)
		twice := normalize.Name(once)
		if once != twice {
			t.Fatalf("Name not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNameEquivalence(t *testing.T) {
	if normalize.Name("Jeffrey  Epstein!") != normalize.Name("jeffrey epstein") {
		t.Fatal("expected case/whitespace/punctuation insensitive equality")
	}
}

func TestIsReordering(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Epstein Jeffrey", "Jeffrey Epstein", true},
		{"John Smith", "Jon Smith", false},
		{"Jeffrey", "Jeffrey", false},       // single token never counts
		{"Jeffrey Epstein", "Jeffrey", false},
		{"Mary Ann Smith", "Smith Mary Ann", true},
		{"Mary Ann Smith", "Ann Smith", false},
	}
	for _, tc := range cases {
		if got := normalize.IsReordering(tc.a, tc.b); got != tc.want {
			t.Fatalf("IsReordering(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortedKey(t *testing.T) {
	a := normalize.SortedKey(normalize.Name("Jeffrey Epstein"))
	b := normalize.SortedKey(normalize.Name("Epstein, Jeffrey"))
	if a != b {
		t.Fatalf("expected matching sorted keys, got %q and %q", a, b)
	}
	if a != "epstein jeffrey" {
		t.Fatalf("unexpected sorted key %q", a)
	}
}
