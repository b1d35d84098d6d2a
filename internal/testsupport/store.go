package testsupport

import (
	"testing"

	"conflate/internal/config"
	"conflate/internal/entity"
)

// MustOpenStore opens the archive store for the test config, closing it when
// the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *entity.Store {
	t.Helper()
	store, err := entity.Open(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// SeedEntity inserts an entity row and its aggregate mention count.
func SeedEntity(t testing.TB, store *entity.Store, name string, entityType entity.Type, mentions int64) int64 {
	t.Helper()
	res, err := store.DB().Exec(
		`INSERT INTO entities (full_name, entity_type, mentions) VALUES (?, ?, ?)`,
		name, string(entityType), mentions,
	)
	if err != nil {
		t.Fatalf("seed entity %q: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("entity insert id: %v", err)
	}
	return id
}

// SeedMention inserts a mention row linking an entity to a document.
func SeedMention(t testing.TB, store *entity.Store, entityID, documentID int64) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO entity_mentions (entity_id, document_id, context) VALUES (?, ?, ?)`,
		entityID, documentID, "seeded",
	)
	if err != nil {
		t.Fatalf("seed mention %d/%d: %v", entityID, documentID, err)
	}
}

// SeedPerson inserts a person subtype row for an entity.
func SeedPerson(t testing.TB, store *entity.Store, entityID int64, name string) int64 {
	t.Helper()
	res, err := store.DB().Exec(
		`INSERT INTO persons (entity_id, full_name) VALUES (?, ?)`, entityID, name,
	)
	if err != nil {
		t.Fatalf("seed person for entity %d: %v", entityID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("person insert id: %v", err)
	}
	return id
}

// SeedDirectoryEntry inserts a person-keyed directory row.
func SeedDirectoryEntry(t testing.TB, store *entity.Store, personID int64, source string) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO directory_entries (person_id, source, page) VALUES (?, ?, 1)`, personID, source,
	)
	if err != nil {
		t.Fatalf("seed directory entry for person %d: %v", personID, err)
	}
}

// SeedPersonDocument links a person to a document.
func SeedPersonDocument(t testing.TB, store *entity.Store, personID, documentID int64) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO person_documents (person_id, document_id) VALUES (?, ?)`, personID, documentID,
	)
	if err != nil {
		t.Fatalf("seed person document %d/%d: %v", personID, documentID, err)
	}
}

// SeedOrganization inserts an organization row referencing an entity.
func SeedOrganization(t testing.TB, store *entity.Store, entityID int64, orgType string) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO organizations (entity_id, org_type) VALUES (?, ?)`, entityID, orgType,
	)
	if err != nil {
		t.Fatalf("seed organization for entity %d: %v", entityID, err)
	}
}

// SeedMediaFile inserts a media row referencing an entity.
func SeedMediaFile(t testing.TB, store *entity.Store, entityID int64, path string) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO media_files (entity_id, path) VALUES (?, ?)`, entityID, path,
	)
	if err != nil {
		t.Fatalf("seed media file for entity %d: %v", entityID, err)
	}
}

// SeedRelationship links two entities.
func SeedRelationship(t testing.TB, store *entity.Store, a, b int64, relType string) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO entity_relationships (entity_a_id, entity_b_id, rel_type) VALUES (?, ?, ?)`,
		a, b, relType,
	)
	if err != nil {
		t.Fatalf("seed relationship %d/%d: %v", a, b, err)
	}
}

// SeedEvidenceTag tags an entity.
func SeedEvidenceTag(t testing.TB, store *entity.Store, entityID int64, tag string) {
	t.Helper()
	_, err := store.DB().Exec(
		`INSERT INTO evidence_tags (entity_id, tag) VALUES (?, ?)`, entityID, tag,
	)
	if err != nil {
		t.Fatalf("seed evidence tag for entity %d: %v", entityID, err)
	}
}

// CountRows returns the number of rows in a table matching the condition.
func CountRows(t testing.TB, store *entity.Store, table, condition string, args ...any) int64 {
	t.Helper()
	query := "SELECT COUNT(1) FROM " + table
	if condition != "" {
		query += " WHERE " + condition
	}
	var count int64
	if err := store.DB().QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}
