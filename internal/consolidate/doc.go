// Package consolidate runs the full duplicate-entity consolidation pipeline:
// scan, candidate generation, redirect resolution, transactional merges, and
// audit output. It is the single entry point the CLI drives; the stages it
// composes live in match, redirect, merge, and audit.
package consolidate
