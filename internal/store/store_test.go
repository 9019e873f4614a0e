package store

import (
	"errors"
	"os"
	"testing"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// recordingHook captures sync invocations and can be told to fail.
type recordingHook struct {
	upserts    []models.Snippet
	deletes    []int64
	upsertErr  error
	deleteErr  error
}

func (h *recordingHook) SnippetUpserted(s models.Snippet) error {
	if h.upsertErr != nil {
		return h.upsertErr
	}
	h.upserts = append(h.upserts, s)
	return nil
}

func (h *recordingHook) SnippetDeleted(id int64) error {
	if h.deleteErr != nil {
		return h.deleteErr
	}
	h.deletes = append(h.deletes, id)
	return nil
}

func testStore(t *testing.T, hook SyncHook) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "gebo-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	st, err := Open(f.Name(), hook)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	st := testStore(t, nil)

	sn, err := st.CreateSnippet("Release Notes", "v1 shipped")
	if err != nil {
		t.Fatalf("CreateSnippet: %v", err)
	}
	if sn.ID == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := st.GetSnippet(sn.ID)
	if err != nil {
		t.Fatalf("GetSnippet: %v", err)
	}
	if got.Title != "Release Notes" || got.Text != "v1 shipped" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	st := testStore(t, nil)

	a, _ := st.CreateSnippet("a", "1")
	b, _ := st.CreateSnippet("b", "2")
	if b.ID <= a.ID {
		t.Errorf("ids not monotonic: %d then %d", a.ID, b.ID)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	st := testStore(t, nil)

	sn, _ := st.CreateSnippet("old", "old text")
	updated, err := st.UpdateSnippet(sn.ID, "new", "new text")
	if err != nil {
		t.Fatalf("UpdateSnippet: %v", err)
	}
	if updated.ID != sn.ID {
		t.Errorf("id changed on update: %d -> %d", sn.ID, updated.ID)
	}
	got, _ := st.GetSnippet(sn.ID)
	if got.Title != "new" || got.Text != "new text" {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	st := testStore(t, nil)
	if _, err := st.UpdateSnippet(42, "t", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteThenGet(t *testing.T) {
	st := testStore(t, nil)

	sn, _ := st.CreateSnippet("t", "x")
	if err := st.DeleteSnippet(sn.ID); err != nil {
		t.Fatalf("DeleteSnippet: %v", err)
	}
	if _, err := st.GetSnippet(sn.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := st.DeleteSnippet(sn.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestGetSnippetsIgnoresUnknownIDs(t *testing.T) {
	st := testStore(t, nil)

	a, _ := st.CreateSnippet("a", "1")
	b, _ := st.CreateSnippet("b", "2")

	got, err := st.GetSnippets([]int64{a.ID, 999, b.ID})
	if err != nil {
		t.Fatalf("GetSnippets: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestListRecentNewestFirst(t *testing.T) {
	st := testStore(t, nil)

	st.CreateSnippet("first", "1")
	st.CreateSnippet("second", "2")
	st.CreateSnippet("third", "3")

	got, err := st.ListRecent(2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "third" || got[1].Title != "second" {
		t.Errorf("order = [%s, %s], want [third, second]", got[0].Title, got[1].Title)
	}
}

func TestHookFiresOncePerMutation(t *testing.T) {
	hook := &recordingHook{}
	st := testStore(t, hook)

	sn, _ := st.CreateSnippet("t", "x")
	st.UpdateSnippet(sn.ID, "t2", "y")
	st.DeleteSnippet(sn.ID)

	if len(hook.upserts) != 2 {
		t.Errorf("upsert hook fired %d times, want 2", len(hook.upserts))
	}
	if len(hook.deletes) != 1 || hook.deletes[0] != sn.ID {
		t.Errorf("delete hook = %v, want [%d]", hook.deletes, sn.ID)
	}
	if hook.upserts[1].Title != "t2" {
		t.Errorf("update hook saw %q, want the new title", hook.upserts[1].Title)
	}
}

func TestHookNotFiredOnFailedMutation(t *testing.T) {
	hook := &recordingHook{}
	st := testStore(t, hook)

	st.UpdateSnippet(42, "t", "x")
	st.DeleteSnippet(42)

	if len(hook.upserts) != 0 || len(hook.deletes) != 0 {
		t.Errorf("hook fired for failed mutations: %+v", hook)
	}
}

func TestHookErrorPropagates(t *testing.T) {
	indexDown := errors.New("index unavailable")
	hook := &recordingHook{upsertErr: indexDown}
	st := testStore(t, hook)

	_, err := st.CreateSnippet("t", "x")
	if !errors.Is(err, indexDown) {
		t.Fatalf("err = %v, want the hook error", err)
	}

	// The row is committed regardless: a visible consistency fault, fixed
	// by a full reindex, never a silent one.
	rows, _ := st.ListRecent(10)
	if len(rows) != 1 {
		t.Errorf("committed rows = %d, want 1", len(rows))
	}
}

func TestUserUniqueCaseInsensitive(t *testing.T) {
	st := testStore(t, nil)

	if _, err := st.CreateUser("alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := st.CreateUser("ALICE", "hash"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate username err = %v, want ErrAlreadyExists", err)
	}

	u, err := st.GetUserByUsername("Alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q", u.Username)
	}
}

func TestDeleteUser(t *testing.T) {
	st := testStore(t, nil)

	st.CreateUser("bob", "hash")
	if err := st.DeleteUserByUsername("bob"); err != nil {
		t.Fatalf("DeleteUserByUsername: %v", err)
	}
	if err := st.DeleteUserByUsername("bob"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
