// Package testutil provides shared test helpers for setting up stores and indexes.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/gebo/internal/search"
	"github.com/starford/gebo/internal/store"
)

// TestIndex creates an in-memory bleve index that is closed on cleanup.
func TestIndex(t *testing.T) *search.Bleve {
	t.Helper()
	idx, err := search.NewMemoryBleve()
	if err != nil {
		t.Fatalf("NewMemoryBleve: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// TestStore creates a temporary SQLite record store wired to the given hook.
// Pass nil for a store without index synchronization.
func TestStore(t *testing.T, hook store.SyncHook) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gebo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := store.Open(dbFile.Name(), hook)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSyncedStore creates a store whose mutations flow into a fresh in-memory
// index through a sync adapter, returning all three.
func TestSyncedStore(t *testing.T) (*store.Store, *search.Bleve, *search.Syncer) {
	t.Helper()
	idx := TestIndex(t)
	syncer, err := search.NewSyncer(idx, search.DefaultFields)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	st := TestStore(t, syncer)
	return st, idx, syncer
}
