package merge_test

import (
	"context"
	"testing"

	"conflate/internal/audit"
	"conflate/internal/entity"
	"conflate/internal/match"
	"conflate/internal/merge"
	"conflate/internal/testsupport"
)

func candidateFor(store *entity.Store, t *testing.T, sourceID, targetID int64) *match.Candidate {
	t.Helper()
	ctx := context.Background()
	source, err := store.Get(ctx, sourceID)
	if err != nil || source == nil {
		t.Fatalf("load source %d: %v", sourceID, err)
	}
	target, err := store.Get(ctx, targetID)
	if err != nil || target == nil {
		t.Fatalf("load target %d: %v", targetID, err)
	}
	return &match.Candidate{
		SourceID:       source.ID,
		SourceName:     source.FullName,
		SourceMentions: source.Mentions,
		TargetID:       target.ID,
		TargetName:     target.FullName,
		TargetMentions: target.Mentions,
		Confidence:     100,
		Method:         match.MethodExact,
	}
}

func TestExecuteMergesAggregatesAndDeletesSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jeffrey Epstein", entity.TypePerson, 40)
	source := testsupport.SeedEntity(t, store, "jeffrey epstein", entity.TypePerson, 3)
	testsupport.SeedMention(t, store, source, 10)
	testsupport.SeedMention(t, store, source, 11)
	testsupport.SeedMention(t, store, target, 12)

	log := audit.NewLog("test-run")
	exec := merge.NewExecutor(store, log, nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got, _ := store.Get(ctx, source); got != nil {
		t.Fatalf("source entity still present: %#v", got)
	}
	merged, err := store.Get(ctx, target)
	if err != nil || merged == nil {
		t.Fatalf("load merged target: %v", err)
	}
	if merged.Mentions != 43 {
		t.Fatalf("expected additive mentions 43, got %d", merged.Mentions)
	}
	if len(merged.Aliases) != 1 || merged.Aliases[0] != "jeffrey epstein" {
		t.Fatalf("expected source name in aliases, got %#v", merged.Aliases)
	}

	// Every mention row must point at a surviving entity.
	if n := testsupport.CountRows(t, store, "entity_mentions", "entity_id = ?", source); n != 0 {
		t.Fatalf("%d mention rows still reference deleted source", n)
	}
	if n := testsupport.CountRows(t, store, "entity_mentions", "entity_id = ?", target); n != 3 {
		t.Fatalf("expected 3 mention rows on target, got %d", n)
	}

	if log.Len() != 1 {
		t.Fatalf("expected one audit entry, got %d", log.Len())
	}
	entry := log.Entries()[0]
	if entry.SourceID != source || entry.TargetID != target || entry.MentionsTransferred != 3 {
		t.Fatalf("unexpected audit entry: %#v", entry)
	}

	rows, err := audit.History(ctx, store.DB(), 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Actor != "test-run" {
		t.Fatalf("unexpected audit table rows: %#v", rows)
	}
}

func TestExecuteDropsDuplicateCompositeRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Ghislaine Maxwell", entity.TypePerson, 20)
	source := testsupport.SeedEntity(t, store, "G Maxwell", entity.TypePerson, 6)
	// Document 7 is cited by both; repointing the source row would collide
	// with the (entity_id, document_id) constraint, so it must be dropped.
	testsupport.SeedMention(t, store, target, 7)
	testsupport.SeedMention(t, store, source, 7)
	testsupport.SeedMention(t, store, source, 8)
	testsupport.SeedEvidenceTag(t, store, target, "flight-log")
	testsupport.SeedEvidenceTag(t, store, source, "flight-log")
	testsupport.SeedEvidenceTag(t, store, source, "deposition")

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if n := testsupport.CountRows(t, store, "entity_mentions", "entity_id = ?", target); n != 2 {
		t.Fatalf("expected 2 mention rows after dedup, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "entity_mentions", "entity_id = ?", source); n != 0 {
		t.Fatalf("source mention rows survived: %d", n)
	}
	if n := testsupport.CountRows(t, store, "evidence_tags", "entity_id = ?", target); n != 2 {
		t.Fatalf("expected 2 tags after dedup, got %d", n)
	}
}

func TestExecuteMergesPersonSubtypeRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 9)
	source := testsupport.SeedEntity(t, store, "Doe Jane", entity.TypePerson, 2)
	targetPerson := testsupport.SeedPerson(t, store, target, "Jane Doe")
	sourcePerson := testsupport.SeedPerson(t, store, source, "Doe Jane")
	testsupport.SeedDirectoryEntry(t, store, sourcePerson, "black-book")
	testsupport.SeedPersonDocument(t, store, sourcePerson, 31)
	testsupport.SeedPersonDocument(t, store, targetPerson, 31)
	testsupport.SeedPersonDocument(t, store, sourcePerson, 32)

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if n := testsupport.CountRows(t, store, "persons", ""); n != 1 {
		t.Fatalf("expected exactly one person row, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "persons", "id = ?", targetPerson); n != 1 {
		t.Fatal("surviving person row is not the target's")
	}
	if n := testsupport.CountRows(t, store, "directory_entries", "person_id = ?", targetPerson); n != 1 {
		t.Fatalf("directory entry not repointed, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "person_documents", "person_id = ?", targetPerson); n != 2 {
		t.Fatalf("expected deduped person documents, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "person_documents", "person_id = ?", sourcePerson); n != 0 {
		t.Fatalf("source person documents survived: %d", n)
	}
}

func TestExecuteRepointsSourceOnlyPersonRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 9)
	source := testsupport.SeedEntity(t, store, "Doe Jane", entity.TypePerson, 2)
	sourcePerson := testsupport.SeedPerson(t, store, source, "Doe Jane")

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if n := testsupport.CountRows(t, store, "persons", "entity_id = ?", target); n != 1 {
		t.Fatalf("person row not repointed to target, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "persons", "id = ?", sourcePerson); n != 1 {
		t.Fatal("person row id should be preserved when repointed")
	}
}

func TestExecuteRepointsRelationshipsAndDropsSelfEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 9)
	source := testsupport.SeedEntity(t, store, "Doe Jane", entity.TypePerson, 2)
	other := testsupport.SeedEntity(t, store, "Alpha Corp", entity.TypeOrganization, 5)
	// Source-target edge becomes a self-loop after repointing and must go.
	testsupport.SeedRelationship(t, store, source, target, "associate")
	testsupport.SeedRelationship(t, store, source, other, "employee")

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if n := testsupport.CountRows(t, store, "entity_relationships", "entity_a_id = ? AND entity_b_id = ?", target, target); n != 0 {
		t.Fatalf("self edge survived: %d", n)
	}
	if n := testsupport.CountRows(t, store, "entity_relationships", "entity_a_id = ? AND entity_b_id = ?", target, other); n != 1 {
		t.Fatalf("relationship to third party not repointed, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "entity_relationships", "entity_a_id = ? OR entity_b_id = ?", source, source); n != 0 {
		t.Fatalf("relationships still reference deleted source: %d", n)
	}
}

func TestExecuteRepointsSimpleReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Alpha Corp", entity.TypeOrganization, 9)
	source := testsupport.SeedEntity(t, store, "Alpha Corporation", entity.TypeOrganization, 2)
	testsupport.SeedOrganization(t, store, source, "company")
	testsupport.SeedMediaFile(t, store, source, "/media/alpha.jpg")

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if n := testsupport.CountRows(t, store, "organizations", "entity_id = ?", target); n != 1 {
		t.Fatalf("organization row not repointed, got %d", n)
	}
	if n := testsupport.CountRows(t, store, "media_files", "entity_id = ?", target); n != 1 {
		t.Fatalf("media file not repointed, got %d", n)
	}
}

func TestExecuteUnionsAliases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jeffrey Epstein", entity.TypePerson, 9)
	source := testsupport.SeedEntity(t, store, "Jeff Epstein", entity.TypePerson, 2)
	aliasJSON, err := entity.EncodeAliases([]string{"J. Epstein", "Jeffrey Epstein"})
	if err != nil {
		t.Fatalf("encode aliases: %v", err)
	}
	if _, err := store.DB().Exec(`UPDATE entities SET aliases = ? WHERE id = ?`, aliasJSON, source); err != nil {
		t.Fatalf("seed aliases: %v", err)
	}

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	if err := exec.Execute(ctx, candidateFor(store, t, source, target)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	merged, err := store.Get(ctx, target)
	if err != nil || merged == nil {
		t.Fatalf("load merged target: %v", err)
	}
	want := []string{"J. Epstein", "Jeff Epstein"}
	if len(merged.Aliases) != len(want) {
		t.Fatalf("unexpected alias set: %#v", merged.Aliases)
	}
	for i, alias := range want {
		if merged.Aliases[i] != alias {
			t.Fatalf("alias %d: want %q, got %#v", i, alias, merged.Aliases)
		}
	}
}

func TestExecuteMissingSourceReportsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 9)
	candidate := &match.Candidate{
		SourceID:   4242,
		SourceName: "ghost",
		TargetID:   target,
		TargetName: "Jane Doe",
		Confidence: 100,
		Method:     match.MethodExact,
	}

	exec := merge.NewExecutor(store, audit.NewLog("test-run"), nil)
	err := exec.Execute(ctx, candidate)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if merge.Kind(err) != merge.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v (%v)", merge.Kind(err), err)
	}

	// The target must be untouched.
	got, err := store.Get(ctx, target)
	if err != nil || got == nil || got.Mentions != 9 {
		t.Fatalf("target modified by failed merge: %#v err=%v", got, err)
	}
}

func TestExecuteFailureRollsBackEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	target := testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 9)
	source := testsupport.SeedEntity(t, store, "Doe Jane", entity.TypePerson, 2)
	testsupport.SeedMention(t, store, source, 50)

	log := audit.NewLog("test-run")
	exec := merge.NewExecutor(store, log, nil)

	// A cancelled context aborts mid-transaction; nothing may persist.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := exec.Execute(cancelled, candidateFor(store, t, source, target)); err == nil {
		t.Fatal("expected error with cancelled context")
	}

	if got, _ := store.Get(ctx, source); got == nil {
		t.Fatal("source deleted despite rollback")
	}
	if n := testsupport.CountRows(t, store, "entity_mentions", "entity_id = ?", source); n != 1 {
		t.Fatalf("mention rows changed despite rollback: %d", n)
	}
	if log.Len() != 0 {
		t.Fatalf("audit log written despite rollback: %d", log.Len())
	}
}
