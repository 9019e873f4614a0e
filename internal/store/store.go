// Package store implements the authoritative record store for snippets and
// users on SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snippets (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	text  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	username        TEXT NOT NULL UNIQUE COLLATE NOCASE,
	hashed_password TEXT NOT NULL
);
`

// SyncHook receives every committed snippet mutation so a secondary index can
// be kept in lock-step with the store. The store calls it exactly once per
// successful mutation, synchronously, before the mutation returns.
type SyncHook interface {
	// SnippetUpserted is called after an insert or update commits.
	SnippetUpserted(s models.Snippet) error
	// SnippetDeleted is called after a row delete commits. An
	// already-absent index document must be treated as success.
	SnippetDeleted(id int64) error
}

// NopHook is a SyncHook that does nothing. Useful when no index is attached.
type NopHook struct{}

func (NopHook) SnippetUpserted(models.Snippet) error { return nil }
func (NopHook) SnippetDeleted(int64) error           { return nil }

// Store wraps a sql.DB with record store operations. The sync hook is an
// explicit collaborator, visible in the constructor, so callers of the
// mutation API never have to remember to update the index themselves.
type Store struct {
	conn *sql.DB
	sync SyncHook
}

// Open opens (or creates) the SQLite database, applies the schema, and
// attaches the sync hook.
func Open(dsn string, hook SyncHook) (*Store, error) {
	if hook == nil {
		hook = NopHook{}
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{conn: conn, sync: hook}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// CreateSnippet inserts a new snippet and projects it into the index.
// An index failure propagates even though the row is already committed: a
// visible consistency fault beats silent store/index drift, and the remedy
// is a full reindex.
func (s *Store) CreateSnippet(title, text string) (*models.Snippet, error) {
	res, err := s.conn.Exec(`INSERT INTO snippets (title, text) VALUES (?, ?)`, title, text)
	if err != nil {
		return nil, fmt.Errorf("store: insert snippet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: last insert id: %w", err)
	}
	sn := models.Snippet{ID: id, Title: title, Text: text}
	if err := s.sync.SnippetUpserted(sn); err != nil {
		return nil, err
	}
	return &sn, nil
}

// UpdateSnippet replaces title and text of an existing snippet in place and
// re-projects the new state into the index.
func (s *Store) UpdateSnippet(id int64, title, text string) (*models.Snippet, error) {
	res, err := s.conn.Exec(`UPDATE snippets SET title = ?, text = ? WHERE id = ?`, title, text, id)
	if err != nil {
		return nil, fmt.Errorf("store: update snippet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperr.ErrNotFound
	}
	sn := models.Snippet{ID: id, Title: title, Text: text}
	if err := s.sync.SnippetUpserted(sn); err != nil {
		return nil, err
	}
	return &sn, nil
}

// DeleteSnippet hard-deletes a snippet and removes its index document.
func (s *Store) DeleteSnippet(id int64) error {
	res, err := s.conn.Exec(`DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete snippet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return s.sync.SnippetDeleted(id)
}

// GetSnippet returns one snippet by id.
func (s *Store) GetSnippet(id int64) (*models.Snippet, error) {
	var sn models.Snippet
	err := s.conn.QueryRow(`SELECT id, title, text FROM snippets WHERE id = ?`, id).
		Scan(&sn.ID, &sn.Title, &sn.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get snippet: %w", err)
	}
	return &sn, nil
}

// GetSnippets batch-fetches snippets by id. Unknown ids are ignored. The
// returned order is the store's natural order, NOT the argument order;
// callers that need ranking must re-sort.
func (s *Store) GetSnippets(ids []int64) ([]models.Snippet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.conn.Query(`SELECT id, title, text FROM snippets WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get snippets: %w", err)
	}
	defer rows.Close()
	return scanSnippets(rows)
}

// ListRecent returns the most recently created snippets, newest first. Ids
// are monotonically assigned, so id order is creation order.
func (s *Store) ListRecent(limit int) ([]models.Snippet, error) {
	rows, err := s.conn.Query(`SELECT id, title, text FROM snippets ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	defer rows.Close()
	return scanSnippets(rows)
}

// AllSnippets returns every snippet. Used by the full reindex.
func (s *Store) AllSnippets() ([]models.Snippet, error) {
	rows, err := s.conn.Query(`SELECT id, title, text FROM snippets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: all snippets: %w", err)
	}
	defer rows.Close()
	return scanSnippets(rows)
}

func scanSnippets(rows *sql.Rows) ([]models.Snippet, error) {
	var out []models.Snippet
	for rows.Next() {
		var sn models.Snippet
		if err := rows.Scan(&sn.ID, &sn.Title, &sn.Text); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// CreateUser inserts a new user with an already-hashed password.
func (s *Store) CreateUser(username, hashedPassword string) (*models.User, error) {
	res, err := s.conn.Exec(`INSERT INTO users (username, hashed_password) VALUES (?, ?)`,
		username, hashedPassword)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, fmt.Errorf("store: insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: last insert id: %w", err)
	}
	return &models.User{ID: id, Username: username, HashedPassword: hashedPassword}, nil
}

// GetUser returns one user by id.
func (s *Store) GetUser(id int64) (*models.User, error) {
	var u models.User
	err := s.conn.QueryRow(`SELECT id, username, hashed_password FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns one user by username. The lookup is
// case-insensitive (NOCASE collation on the column).
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var u models.User
	err := s.conn.QueryRow(`SELECT id, username, hashed_password FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user by username: %w", err)
	}
	return &u, nil
}

// DeleteUserByUsername removes a user.
func (s *Store) DeleteUserByUsername(username string) error {
	res, err := s.conn.Exec(`DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
