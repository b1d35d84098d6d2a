// Package main hosts the conflate CLI entrypoint and command graph.
//
// The Cobra-based command tree drives consolidation runs against an archive
// database, previews merge candidates, browses the merge audit trail, reports
// archive statistics, and scaffolds configuration. It centralizes config
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
