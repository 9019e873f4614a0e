package search

import (
	"log/slog"
	"testing"

	"github.com/starford/gebo/internal/models"
)

func testIndex(t *testing.T) *Bleve {
	t.Helper()
	idx, err := NewMemoryBleve()
	if err != nil {
		t.Fatalf("NewMemoryBleve: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testSyncer(t *testing.T, idx Index) *Syncer {
	t.Helper()
	sy, err := NewSyncer(idx, DefaultFields)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	return sy
}

func TestNewSyncerRejectsUnknownField(t *testing.T) {
	idx := testIndex(t)
	if _, err := NewSyncer(idx, []string{"title", "author"}); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestUpsertThenQuery(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)

	sn := models.Snippet{ID: 1, Title: "Release Notes", Text: "v1 shipped"}
	if err := sy.SnippetUpserted(sn); err != nil {
		t.Fatalf("SnippetUpserted: %v", err)
	}

	ids, err := idx.Query("Release", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("ids = %v, want [1]", ids)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)

	sn := models.Snippet{ID: 7, Title: "Release Notes", Text: "v1 shipped"}
	if err := sy.SnippetUpserted(sn); err != nil {
		t.Fatal(err)
	}
	if err := sy.SnippetUpserted(sn); err != nil {
		t.Fatal(err)
	}

	ids, err := idx.Query("Release", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("double upsert produced %d hits, want 1", len(ids))
	}
}

func TestUpsertOverwritesWholeDocument(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)

	if err := sy.SnippetUpserted(models.Snippet{ID: 3, Title: "aardvark facts", Text: "burrows"}); err != nil {
		t.Fatal(err)
	}
	if err := sy.SnippetUpserted(models.Snippet{ID: 3, Title: "zebra facts", Text: "stripes"}); err != nil {
		t.Fatal(err)
	}

	// Old field values must not bleed through the overwrite.
	ids, _ := idx.Query("aardvark", 10)
	if len(ids) != 0 {
		t.Errorf("stale title still matches: %v", ids)
	}
	ids, _ = idx.Query("zebra", 10)
	if len(ids) != 1 || ids[0] != 3 {
		t.Errorf("new title ids = %v, want [3]", ids)
	}
}

func TestDeleteRemovesDocument(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)

	if err := sy.SnippetUpserted(models.Snippet{ID: 5, Title: "Release Notes", Text: "v1"}); err != nil {
		t.Fatal(err)
	}
	if err := sy.SnippetDeleted(5); err != nil {
		t.Fatalf("SnippetDeleted: %v", err)
	}
	ids, _ := idx.Query("Release", 10)
	if len(ids) != 0 {
		t.Errorf("ids after delete = %v, want none", ids)
	}
}

func TestDeleteMissingDocumentIsSuccess(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)

	if err := sy.SnippetDeleted(12345); err != nil {
		t.Errorf("deleting an absent document should succeed, got %v", err)
	}
	// Retrying is equally fine.
	if err := sy.SnippetDeleted(12345); err != nil {
		t.Errorf("retry should succeed, got %v", err)
	}
}

func TestDocIDRoundTrip(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)

	// Large ids must survive the string round-trip exactly.
	const id = int64(9007199254740993)
	if err := sy.SnippetUpserted(models.Snippet{ID: id, Title: "boundary", Text: "check"}); err != nil {
		t.Fatal(err)
	}
	ids, err := idx.Query("boundary", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("ids = %v, want [%d]", ids, id)
	}
}

type fakeRecords struct {
	snippets []models.Snippet
}

func (f *fakeRecords) AllSnippets() ([]models.Snippet, error) {
	return f.snippets, nil
}

func TestReindexRebuildsFromRecords(t *testing.T) {
	idx := testIndex(t)
	sy := testSyncer(t, idx)
	logger := slog.Default()

	// A stale document the store no longer knows about.
	if err := sy.SnippetUpserted(models.Snippet{ID: 99, Title: "ghost entry", Text: "stale"}); err != nil {
		t.Fatal(err)
	}

	records := &fakeRecords{snippets: []models.Snippet{
		{ID: 1, Title: "alpha", Text: "one"},
		{ID: 2, Title: "beta", Text: "two"},
	}}
	if err := sy.Reindex(records, logger); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	if ids, _ := idx.Query("ghost", 10); len(ids) != 0 {
		t.Errorf("stale document survived reindex: %v", ids)
	}
	if ids, _ := idx.Query("alpha", 10); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("alpha ids = %v, want [1]", ids)
	}
	if ids, _ := idx.Query("beta", 10); len(ids) != 1 || ids[0] != 2 {
		t.Errorf("beta ids = %v, want [2]", ids)
	}
}
