package merge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conflate/internal/audit"
	"conflate/internal/entity"
	"conflate/internal/logging"
	"conflate/internal/match"
)

// simpleReferenceColumns are entity reference columns with no secondary
// uniqueness: repointing them can never collide.
var simpleReferenceColumns = []struct {
	table  string
	column string
}{
	{"organizations", "entity_id"},
	{"media_files", "entity_id"},
}

// compositeReferenceTables pair an entity column with a secondary key under a
// unique constraint. Repointing a row that collides with an existing
// target-side row deletes the source-side duplicate instead.
var compositeReferenceTables = []struct {
	table     string
	column    string
	secondary string
}{
	{"entity_mentions", "entity_id", "document_id"},
	{"evidence_tags", "entity_id", "tag"},
}

// relationshipColumns are the two sides of the entity-pair table, each
// covered by the pair's unique constraint.
var relationshipColumns = []string{"entity_a_id", "entity_b_id"}

// Executor applies resolved merge candidates, one transaction per candidate.
type Executor struct {
	store    *entity.Store
	auditLog *audit.Log
	logger   *slog.Logger
}

// NewExecutor builds an executor writing audit entries to auditLog.
func NewExecutor(store *entity.Store, auditLog *audit.Log, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{store: store, auditLog: auditLog, logger: logger}
}

// Execute merges the candidate's source entity into its target as a single
// all-or-nothing transaction. On success one audit entry is recorded both in
// the merge_audit table (inside the transaction) and the in-memory log. Any
// error rolls back this merge only.
func (e *Executor) Execute(ctx context.Context, candidate *match.Candidate) error {
	tx, err := e.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: KindOther, Op: "begin merge tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	source, err := getEntityTx(ctx, tx, candidate.SourceID)
	if err != nil {
		return err
	}
	target, err := getEntityTx(ctx, tx, candidate.TargetID)
	if err != nil {
		return err
	}

	for _, ref := range simpleReferenceColumns {
		if err := repointSimple(ctx, tx, ref.table, ref.column, source.ID, target.ID); err != nil {
			return err
		}
	}

	for _, ref := range compositeReferenceTables {
		if err := repointComposite(ctx, tx, ref.table, ref.column, ref.secondary, source.ID, target.ID); err != nil {
			return err
		}
	}

	if err := repointRelationships(ctx, tx, source.ID, target.ID); err != nil {
		return err
	}

	if err := mergePersonRows(ctx, tx, source.ID, target.ID); err != nil {
		return err
	}

	aliases := target.AliasSet(append(source.Aliases, source.FullName)...)
	aliasJSON, err := entity.EncodeAliases(aliases)
	if err != nil {
		return &Error{Kind: KindOther, Op: "encode aliases", Err: err}
	}
	// Mention counts are carried additively rather than recounted from the
	// mention rows; see the drift note in DESIGN.md.
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET mentions = mentions + ?, aliases = ? WHERE id = ?`,
		source.Mentions, aliasJSON, target.ID,
	); err != nil {
		return classify("update target aggregates", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, source.ID); err != nil {
		return classify("delete source entity", err)
	}

	entry := audit.Entry{
		Timestamp:           time.Now().UTC(),
		SourceID:            source.ID,
		SourceName:          source.FullName,
		TargetID:            target.ID,
		TargetName:          target.FullName,
		MentionsTransferred: source.Mentions,
		Confidence:          candidate.Confidence,
		Method:              candidate.Method.String(),
	}
	if err := audit.InsertTx(ctx, tx, e.auditLog.Actor(), entry); err != nil {
		return &Error{Kind: KindOther, Op: "record audit entry", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Kind: KindOther, Op: "commit merge", Err: err}
	}

	e.auditLog.Append(entry)
	e.logger.Info("entities merged",
		logging.Args(
			logging.Int64("source_id", source.ID),
			logging.String("source_name", source.FullName),
			logging.Int64("target_id", target.ID),
			logging.String("target_name", target.FullName),
			logging.Int64("mentions_transferred", source.Mentions),
			logging.Float64("confidence", candidate.Confidence),
			logging.String("method", candidate.Method.String()),
		)...)
	return nil
}

func getEntityTx(ctx context.Context, tx *sql.Tx, id int64) (*entity.Entity, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, full_name, entity_type, mentions, aliases FROM entities WHERE id = ?`, id)
	var (
		ent      entity.Entity
		typeStr  sql.NullString
		mentions sql.NullInt64
		aliases  sql.NullString
	)
	err := row.Scan(&ent.ID, &ent.FullName, &typeStr, &mentions, &aliases)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &Error{Kind: KindNotFound, Op: fmt.Sprintf("load entity %d", id)}
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("load entity %d", id), err)
	}
	ent.Type = entity.TypeUnknown
	if typeStr.Valid && typeStr.String != "" {
		ent.Type = entity.Type(typeStr.String)
	}
	ent.Mentions = mentions.Int64
	ent.Aliases = entity.DecodeAliases(aliases.String)
	return &ent, nil
}

// repointSimple rewrites a reference column with no secondary uniqueness.
func repointSimple(ctx context.Context, tx *sql.Tx, table, column string, source, target int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, table, column, column)
	if _, err := tx.ExecContext(ctx, query, target, source); err != nil {
		return classify(fmt.Sprintf("repoint %s.%s", table, column), err)
	}
	return nil
}

// repointComposite rewrites rows under a (column, secondary) unique
// constraint one at a time. A clash means the canonical target already has
// that row, so the source-side duplicate is deleted.
func repointComposite(ctx context.Context, tx *sql.Tx, table, column, secondary string, source, target int64) error {
	selectQuery := fmt.Sprintf(`SELECT id FROM %s WHERE %s = ?`, table, column)
	ids, err := collectIDs(ctx, tx, selectQuery, source)
	if err != nil {
		return classify(fmt.Sprintf("list %s rows", table), err)
	}

	updateQuery := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, table, column)
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)
	for _, id := range ids {
		_, err := tx.ExecContext(ctx, updateQuery, target, id)
		if err == nil {
			continue
		}
		if !isConstraintViolation(err) {
			return classify(fmt.Sprintf("repoint %s row %d", table, id), err)
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
			return classify(fmt.Sprintf("discard duplicate %s row %d", table, id), err)
		}
	}
	return nil
}

// repointRelationships rewrites both sides of the entity-pair table, then
// removes self-edges the rewrite may have produced.
func repointRelationships(ctx context.Context, tx *sql.Tx, source, target int64) error {
	for _, column := range relationshipColumns {
		selectQuery := fmt.Sprintf(`SELECT id FROM entity_relationships WHERE %s = ?`, column)
		ids, err := collectIDs(ctx, tx, selectQuery, source)
		if err != nil {
			return classify("list relationship rows", err)
		}
		updateQuery := fmt.Sprintf(`UPDATE entity_relationships SET %s = ? WHERE id = ?`, column)
		for _, id := range ids {
			_, err := tx.ExecContext(ctx, updateQuery, target, id)
			if err == nil {
				continue
			}
			if !isConstraintViolation(err) {
				return classify(fmt.Sprintf("repoint relationship row %d", id), err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM entity_relationships WHERE id = ?`, id); err != nil {
				return classify(fmt.Sprintf("discard duplicate relationship row %d", id), err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entity_relationships WHERE entity_a_id = entity_b_id AND entity_a_id = ?`, target,
	); err != nil {
		return classify("remove self relationships", err)
	}
	return nil
}

// mergePersonRows handles the person subtype behind the entity pair. When
// both sides have a person row the source person's dependents move to the
// target person and the source person is deleted; when only the source has
// one its entity_id is simply repointed. Dependents key on the person's own
// id, so the repoint case needs no further changes.
func mergePersonRows(ctx context.Context, tx *sql.Tx, source, target int64) error {
	sourcePerson, err := personIDFor(ctx, tx, source)
	if err != nil {
		return err
	}
	if sourcePerson == 0 {
		return nil
	}
	targetPerson, err := personIDFor(ctx, tx, target)
	if err != nil {
		return err
	}

	if targetPerson == 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE persons SET entity_id = ? WHERE id = ?`, target, sourcePerson); err != nil {
			return classify("repoint person row", err)
		}
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE directory_entries SET person_id = ? WHERE person_id = ?`, targetPerson, sourcePerson,
	); err != nil {
		return classify("repoint directory entries", err)
	}
	if err := repointComposite(ctx, tx, "person_documents", "person_id", "document_id", sourcePerson, targetPerson); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, sourcePerson); err != nil {
		return classify("delete source person", err)
	}
	return nil
}

func personIDFor(ctx context.Context, tx *sql.Tx, entityID int64) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM persons WHERE entity_id = ?`, entityID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, classify("find person row", err)
	}
	return id, nil
}

func collectIDs(ctx context.Context, tx *sql.Tx, query string, arg any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
