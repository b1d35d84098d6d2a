package match

import (
	"fmt"
	"sort"
)

// Method identifies which detection pass produced a candidate. Scoring and
// logging switch on it exhaustively; no free-text method strings exist.
type Method int

const (
	// MethodExact means both names normalize to the same string.
	MethodExact Method = iota
	// MethodKnownAlias means the names were joined through a configured
	// alias mapping rather than by their own spelling.
	MethodKnownAlias
	// MethodReordering means the names are token permutations of each other.
	MethodReordering
	// MethodFuzzy means the names are within a small edit distance.
	MethodFuzzy
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodKnownAlias:
		return "known_alias"
	case MethodReordering:
		return "reordering"
	case MethodFuzzy:
		return "fuzzy"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Candidate proposes merging the source entity into the target entity. The
// source always has fewer mentions than the target; on equal mentions the
// lower id is the target. Candidates live in memory only; completed merges
// are persisted through the audit log.
type Candidate struct {
	SourceID       int64
	SourceName     string
	SourceMentions int64
	TargetID       int64
	TargetName     string
	TargetMentions int64
	Confidence     float64
	Method         Method
	// Distance is the Levenshtein distance for MethodFuzzy candidates.
	Distance int
	Reason   string
}

// SortByConfidence orders candidates by confidence descending, breaking ties
// by source id so runs are deterministic.
func SortByConfidence(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].SourceID < candidates[j].SourceID
	})
}

// confidence is the scorer: it assigns the 0-100 reliability score for a
// candidate produced by the given method.
func confidence(method Method, distance int) float64 {
	switch method {
	case MethodExact, MethodKnownAlias:
		return 100
	case MethodReordering:
		return 98
	case MethodFuzzy:
		return 100 - 2.5*float64(distance)
	default:
		return 0
	}
}
