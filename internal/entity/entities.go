package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const entityColumns = "id, full_name, entity_type, mentions, aliases"

// ByType returns every entity of the given type ordered by id. An empty type
// returns the whole table.
func (s *Store) ByType(ctx context.Context, entityType Type) ([]*Entity, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if entityType == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE entity_type = ? ORDER BY id`, string(entityType))
	}
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, ent)
	}
	return entities, rows.Err()
}

// Get fetches a single entity by id. Returns nil when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	ent, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return ent, nil
}

// MentionCount returns the number of mention rows referencing an entity.
func (s *Store) MentionCount(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entity_mentions WHERE entity_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count mentions: %w", err)
	}
	return count, nil
}

// Stats aggregates entity, mention, and person row counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByType: make(map[Type]int64)}

	rows, err := s.db.QueryContext(ctx, `SELECT entity_type, COUNT(1), COALESCE(SUM(mentions), 0) FROM entities GROUP BY entity_type`)
	if err != nil {
		return stats, fmt.Errorf("entity stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			typeStr  string
			count    int64
			mentions int64
		)
		if err := rows.Scan(&typeStr, &count, &mentions); err != nil {
			return stats, err
		}
		stats.ByType[Type(typeStr)] = count
		stats.TotalEntities += count
		stats.TotalMentions += mentions
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM persons`).Scan(&stats.PersonRows)
	if err != nil {
		return stats, fmt.Errorf("person stats: %w", err)
	}
	return stats, nil
}

func scanEntity(scanner interface{ Scan(dest ...any) error }) (*Entity, error) {
	var (
		id       int64
		fullName string
		typeStr  sql.NullString
		mentions sql.NullInt64
		aliases  sql.NullString
	)
	if err := scanner.Scan(&id, &fullName, &typeStr, &mentions, &aliases); err != nil {
		return nil, err
	}
	ent := &Entity{
		ID:       id,
		FullName: fullName,
		Type:     TypeUnknown,
		Mentions: mentions.Int64,
		Aliases:  DecodeAliases(aliases.String),
	}
	if typeStr.Valid && typeStr.String != "" {
		ent.Type = Type(typeStr.String)
	}
	return ent, nil
}
