// Package redirect collapses overlapping merge candidates into a safe
// redirect plan: each source merges exactly once, every target survives the
// run, and transitive chains point directly at their final entity.
package redirect

import (
	"log/slog"

	"conflate/internal/logging"
	"conflate/internal/match"
)

// Resolution is the outcome of planning a candidate batch.
type Resolution struct {
	// Accepted are the surviving candidates with targets rewritten to their
	// final resolved entity, in the order they should be applied.
	Accepted []*match.Candidate
	// Redirects maps each merged-away source id to its final target id.
	Redirects map[int64]int64
	// DroppedRedirected counts candidates skipped because their source was
	// already scheduled to merge elsewhere.
	DroppedRedirected int
	// DroppedCircular counts candidates dropped because resolving their
	// target led back to their own source.
	DroppedCircular int
}

// Resolver builds a redirect plan from candidates ordered by confidence
// descending. It is a disjoint-set forest with path compression: resolving a
// target is amortized O(1) and can never loop.
type Resolver struct {
	parent map[int64]int64
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{parent: make(map[int64]int64), logger: logger}
}

// Resolve walks candidates in priority order, building the redirect map.
// Callers must pass candidates sorted by confidence descending; earlier
// (higher-confidence) candidates win conflicts.
func (r *Resolver) Resolve(candidates []*match.Candidate) Resolution {
	resolution := Resolution{Redirects: make(map[int64]int64)}

	for _, candidate := range candidates {
		if _, merged := r.parent[candidate.SourceID]; merged {
			// Source already merges elsewhere; never merge the same
			// entity away twice.
			resolution.DroppedRedirected++
			r.logger.Debug("candidate skipped: source already redirected",
				logging.Args(
					logging.Int64("source_id", candidate.SourceID),
					logging.Int64("target_id", candidate.TargetID),
				)...)
			continue
		}

		target := r.find(candidate.TargetID)
		if target == candidate.SourceID {
			// The target chain resolves back onto the source; applying it
			// would merge an entity into itself.
			resolution.DroppedCircular++
			r.logger.Debug("candidate dropped: circular redirect",
				logging.Args(
					logging.Int64("source_id", candidate.SourceID),
					logging.Int64("target_id", candidate.TargetID),
				)...)
			continue
		}

		candidate.TargetID = target
		r.parent[candidate.SourceID] = target
		resolution.Accepted = append(resolution.Accepted, candidate)
	}

	for source := range r.parent {
		resolution.Redirects[source] = r.find(source)
	}
	return resolution
}

// find returns the final surviving id for the given id, compressing the path
// so repeated lookups are constant time.
func (r *Resolver) find(id int64) int64 {
	root := id
	for {
		parent, ok := r.parent[root]
		if !ok {
			break
		}
		root = parent
	}
	for id != root {
		next := r.parent[id]
		r.parent[id] = root
		id = next
	}
	return root
}
