// Package audit records every entity merge for forensic replay.
//
// Two sinks exist: an in-memory log owned by a single run, persisted as one
// JSON array when the run completes, and an append-only merge_audit table
// written inside each merge transaction so a partial run still leaves a
// complete trail.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ActionEntityMerge is the audit action recorded for a completed merge.
const ActionEntityMerge = "entity_merge"

// Entry describes one completed merge. Entries are append-only and never
// mutated after being recorded.
type Entry struct {
	Timestamp           time.Time `json:"timestamp"`
	SourceID            int64     `json:"source_id"`
	SourceName          string    `json:"source_name"`
	TargetID            int64     `json:"target_id"`
	TargetName          string    `json:"target_name"`
	MentionsTransferred int64     `json:"mentions_transferred"`
	Confidence          float64   `json:"confidence"`
	Method              string    `json:"method"`
}

// Log accumulates entries for the duration of one consolidation run. It is
// owned by the run's single execution goroutine and needs no locking.
type Log struct {
	actor   string
	entries []Entry
}

// NewLog creates an empty audit log attributed to the given actor (run id).
func NewLog(actor string) *Log {
	return &Log{actor: actor}
}

// Actor returns the run identity entries are attributed to.
func (l *Log) Actor() string {
	return l.actor
}

// Append records one completed merge.
func (l *Log) Append(entry Entry) {
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of the recorded entries in append order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// WriteFile persists the full log as a JSON array at path.
func (l *Log) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
	}
	entries := l.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// InsertTx appends one entry to the merge_audit table inside the caller's
// transaction, so the row commits or rolls back with the merge itself.
func InsertTx(ctx context.Context, tx *sql.Tx, actor string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO merge_audit (created_at, actor, action, payload) VALUES (?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		actor,
		ActionEntityMerge,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

// Row is one persisted merge_audit record.
type Row struct {
	ID        int64
	CreatedAt time.Time
	Actor     string
	Action    string
	Entry     Entry
}

// History returns the most recent merge_audit rows, newest first. A limit of
// zero or less returns everything.
func History(ctx context.Context, db *sql.DB, limit int) ([]Row, error) {
	query := `SELECT id, created_at, actor, action, payload FROM merge_audit ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row        Row
			createdRaw string
			payload    string
		)
		if err := rows.Scan(&row.ID, &createdRaw, &row.Actor, &row.Action, &payload); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			row.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(payload), &row.Entry); err != nil {
			return nil, fmt.Errorf("decode audit payload %d: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
