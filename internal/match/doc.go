// Package match detects duplicate-entity merge candidates.
//
// Three passes run over the full entity set of a type: exact normalized
// match (confidence 100, with configured alias mappings folded into the
// grouping key), token-reordering match (confidence 98), and a
// sliding-window fuzzy pass over the name-sorted entity list (confidence
// 100 minus 2.5 per edit). A shared dedup set keyed on the unordered id
// pair guarantees each pair is proposed at most once.
package match
