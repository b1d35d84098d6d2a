// Package merge applies resolved duplicate candidates to the archive
// database. Each candidate executes as one all-or-nothing transaction that
// repoints every dependent table from the source entity to the target,
// carries aggregates and aliases over, deletes the source row, and records
// an audit entry. Unique-constraint clashes on dependent rows are merge
// policy (the target's row wins), not failures; anything else rolls back
// that candidate alone.
package merge
