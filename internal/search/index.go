// Package search provides the full-text search index client and the adapter
// that keeps the index in lock-step with the record store.
package search

// Document is the denormalized projection of a snippet that lives in the
// search index: field name to field value.
type Document map[string]string

// Index is the client contract for the external full-text document store.
// Consumers depend on this interface rather than the concrete bleve type to
// facilitate testing with fakes.
//
// One Index instance is constructed at startup and injected into both the
// sync adapter and the query coordinator; implementations must be safe for
// concurrent use by simultaneous requests.
type Index interface {
	// Upsert stores doc under id with full overwrite semantics: a second
	// call with the same id replaces the document, it never merges.
	Upsert(id int64, doc Document) error
	// Delete removes the document with the given id. Deleting an absent
	// document is success, not an error.
	Delete(id int64) error
	// Query runs a free-text query and returns matching snippet ids ranked
	// by the index's own relevance scoring, best first.
	Query(q string, limit int) ([]int64, error)
	// DeleteAll removes every document. Used by the full reindex.
	DeleteAll() error
	Close() error
}
