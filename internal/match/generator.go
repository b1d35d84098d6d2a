package match

import (
	"fmt"
	"sort"
	"strings"

	"conflate/internal/entity"
	"conflate/internal/normalize"
)

const (
	// minGroupKeyLength guards the exact pass against merging short or
	// garbage names ("jr", "dr") that collide without being duplicates.
	minGroupKeyLength = 3
	// minFuzzyAnchorLength is the shortest normalized name the fuzzy pass
	// will anchor on; typo detection on very short strings is unreliable.
	minFuzzyAnchorLength = 6
	// minFuzzySingleEditLength..maxFuzzySingleEditLength accept exactly one
	// edit; names longer than the upper bound accept two.
	minFuzzySingleEditLength = 8
	maxFuzzySingleEditLength = 15
	// maxFuzzyLengthDelta prunes pairs whose lengths differ too much to be
	// a plausible typo of each other.
	maxFuzzyLengthDelta = 2
)

// Options configures candidate generation.
type Options struct {
	// FuzzyWindow is how many sorted neighbors the fuzzy pass scans.
	FuzzyWindow int
	// StopWords are leading tokens marking extraction artifacts.
	StopWords []string
	// Aliases maps raw alternate spellings to their canonical raw name.
	// Both sides are normalized before use.
	Aliases map[string]string
}

// Generator detects duplicate-entity candidates across three passes: exact
// normalized match (with configured aliases folded in), token reordering,
// and a sliding-window fuzzy pass. All passes share one dedup set so a pair
// detected multiple ways is emitted once, by the earliest pass.
type Generator struct {
	window    int
	stopWords map[string]struct{}
	aliases   map[string]string
}

// NewGenerator builds a generator from options, normalizing the alias map.
func NewGenerator(opts Options) *Generator {
	window := opts.FuzzyWindow
	if window < 1 {
		window = 20
	}
	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, word := range opts.StopWords {
		word = strings.TrimSpace(strings.ToLower(word))
		if word != "" {
			stop[word] = struct{}{}
		}
	}
	aliases := make(map[string]string, len(opts.Aliases))
	for raw, canonical := range opts.Aliases {
		key := normalize.Name(raw)
		value := normalize.Name(canonical)
		if key == "" || value == "" || key == value {
			continue
		}
		aliases[key] = value
	}
	return &Generator{window: window, stopWords: stop, aliases: aliases}
}

// record carries an entity with its derived comparison forms.
type record struct {
	ent *entity.Entity
	// norm is the normalized full name.
	norm string
	// key is the alias-resolved normalized name used by the exact pass.
	key string
}

// Generate runs all three passes over the entity set and returns deduplicated
// candidates. Order is by pass, then input order; callers sort by confidence.
func (g *Generator) Generate(entities []*entity.Entity) []*Candidate {
	records := make([]*record, 0, len(entities))
	for _, ent := range entities {
		norm := normalize.Name(ent.FullName)
		if norm == "" {
			continue
		}
		key := norm
		if canonical, ok := g.aliases[norm]; ok {
			key = canonical
		}
		records = append(records, &record{ent: ent, norm: norm, key: key})
	}

	seen := make(map[pairKey]struct{})
	var candidates []*Candidate
	candidates = append(candidates, g.exactPass(records, seen)...)
	candidates = append(candidates, g.reorderingPass(records, seen)...)
	candidates = append(candidates, g.fuzzyPass(records, seen)...)
	return candidates
}

type pairKey struct {
	low, high int64
}

func makePairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{low: a, high: b}
}

// exactPass groups entities by alias-resolved normalized name. The
// highest-mention member of each group survives; everything else becomes a
// source candidate at full confidence.
func (g *Generator) exactPass(records []*record, seen map[pairKey]struct{}) []*Candidate {
	groups := make(map[string][]*record)
	for _, rec := range records {
		if len(rec.key) < minGroupKeyLength {
			continue
		}
		groups[rec.key] = append(groups[rec.key], rec)
	}

	var candidates []*Candidate
	for _, group := range sortedGroups(groups) {
		if len(group) < 2 {
			continue
		}
		target := pickTarget(group)
		for _, rec := range group {
			if rec == target {
				continue
			}
			key := makePairKey(rec.ent.ID, target.ent.ID)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			method := MethodExact
			reason := "exact normalized match"
			if rec.norm != target.norm {
				method = MethodKnownAlias
				reason = fmt.Sprintf("known alias of %q", target.ent.FullName)
			}
			candidates = append(candidates, newCandidate(rec.ent, target.ent, method, 0, reason))
		}
	}
	return candidates
}

// reorderingPass groups entities by their sorted token sequence, catching
// "Last First" vs "First Last" duplicates the exact pass misses.
func (g *Generator) reorderingPass(records []*record, seen map[pairKey]struct{}) []*Candidate {
	groups := make(map[string][]*record)
	for _, rec := range records {
		if len(normalize.Tokens(rec.norm)) < 2 {
			continue
		}
		groups[normalize.SortedKey(rec.norm)] = append(groups[normalize.SortedKey(rec.norm)], rec)
	}

	var candidates []*Candidate
	for _, group := range sortedGroups(groups) {
		if len(group) < 2 {
			continue
		}
		target := pickTarget(group)
		for _, rec := range group {
			if rec == target {
				continue
			}
			key := makePairKey(rec.ent.ID, target.ent.ID)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, newCandidate(rec.ent, target.ent, MethodReordering, 0, "token reordering"))
		}
	}
	return candidates
}

// fuzzyPass sorts entities by normalized name and compares each against a
// fixed window of forward neighbors, accepting near-identical names within a
// tight edit-distance budget. The sort plus window keeps the pass
// O(n log n + n*window) instead of all-pairs.
func (g *Generator) fuzzyPass(records []*record, seen map[pairKey]struct{}) []*Candidate {
	sorted := make([]*record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].norm != sorted[j].norm {
			return sorted[i].norm < sorted[j].norm
		}
		return sorted[i].ent.ID < sorted[j].ent.ID
	})

	var candidates []*Candidate
	for i, anchor := range sorted {
		if len(anchor.norm) < minFuzzyAnchorLength {
			continue
		}
		if g.startsWithStopWord(anchor.norm) {
			continue
		}
		for j := i + 1; j < len(sorted) && j <= i+g.window; j++ {
			other := sorted[j]
			if g.startsWithStopWord(other.norm) {
				continue
			}
			// Typos rarely corrupt the leading character.
			if anchor.norm[0] != other.norm[0] {
				continue
			}
			delta := len(anchor.norm) - len(other.norm)
			if delta < -maxFuzzyLengthDelta || delta > maxFuzzyLengthDelta {
				continue
			}

			distance := Levenshtein(anchor.norm, other.norm)
			if !acceptFuzzy(len(anchor.norm), distance) {
				continue
			}

			key := makePairKey(anchor.ent.ID, other.ent.ID)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			reason := fmt.Sprintf("edit distance %d", distance)
			candidates = append(candidates, newCandidate(anchor.ent, other.ent, MethodFuzzy, distance, reason))
		}
	}
	return candidates
}

// acceptFuzzy applies the length-banded distance rule: mid-length names
// tolerate a single edit, long names two. Names shorter than the single-edit
// band are left to the exact pass entirely.
func acceptFuzzy(length, distance int) bool {
	switch {
	case length > maxFuzzySingleEditLength:
		return distance >= 1 && distance <= 2
	case length >= minFuzzySingleEditLength:
		return distance == 1
	default:
		return false
	}
}

func (g *Generator) startsWithStopWord(norm string) bool {
	first, _, _ := strings.Cut(norm, " ")
	_, ok := g.stopWords[first]
	return ok
}

// pickTarget chooses a group's surviving entity: most mentions, then lowest
// id on ties so the merge direction is deterministic.
func pickTarget(group []*record) *record {
	target := group[0]
	for _, rec := range group[1:] {
		if rec.ent.Mentions > target.ent.Mentions {
			target = rec
		} else if rec.ent.Mentions == target.ent.Mentions && rec.ent.ID < target.ent.ID {
			target = rec
		}
	}
	return target
}

// newCandidate orients a pair so the source has fewer mentions (lower id
// wins as target on ties) and scores it for the producing method.
func newCandidate(a, b *entity.Entity, method Method, distance int, reason string) *Candidate {
	source, target := a, b
	if source.Mentions > target.Mentions ||
		(source.Mentions == target.Mentions && source.ID < target.ID) {
		source, target = target, source
	}
	return &Candidate{
		SourceID:       source.ID,
		SourceName:     source.FullName,
		SourceMentions: source.Mentions,
		TargetID:       target.ID,
		TargetName:     target.FullName,
		TargetMentions: target.Mentions,
		Confidence:     confidence(method, distance),
		Method:         method,
		Distance:       distance,
		Reason:         reason,
	}
}

// sortedGroups returns group slices in deterministic key order.
func sortedGroups(groups map[string][]*record) [][]*record {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([][]*record, 0, len(keys))
	for _, key := range keys {
		out = append(out, groups[key])
	}
	return out
}
