package search

import (
	"fmt"
	"log/slog"

	"github.com/starford/gebo/internal/models"
)

// DefaultFields is the declared searchable subset of a snippet.
var DefaultFields = []string{"title", "text"}

// Records is the slice of the record store the reindex needs: the
// authoritative source of every snippet.
type Records interface {
	AllSnippets() ([]models.Snippet, error)
}

// Syncer projects record store mutations into index mutations. It is the
// store's SyncHook: the store calls SnippetUpserted/SnippetDeleted once per
// committed mutation, inline, so the index reflects every write before the
// writer gets control back.
//
// Syncer is stateless apart from the index client and the projected field
// list, so a single instance serves all requests.
type Syncer struct {
	idx    Index
	fields []string
}

// NewSyncer creates a sync adapter for the given index and field list. The
// field list is fixed at construction; an unknown field name is rejected here
// rather than surfacing on every write.
func NewSyncer(idx Index, fields []string) (*Syncer, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	for _, f := range fields {
		if _, err := fieldValue(models.Snippet{}, f); err != nil {
			return nil, err
		}
	}
	return &Syncer{idx: idx, fields: fields}, nil
}

// SnippetUpserted builds the document for s and upserts it under s.ID.
// Idempotent: the same snippet state always produces the same stored
// document, and an upsert fully overwrites any previous document.
func (sy *Syncer) SnippetUpserted(s models.Snippet) error {
	doc := make(Document, len(sy.fields))
	for _, f := range sy.fields {
		v, err := fieldValue(s, f)
		if err != nil {
			return err
		}
		doc[f] = v
	}
	return sy.idx.Upsert(s.ID, doc)
}

// SnippetDeleted removes the index document for id. An absent document is
// success (the index is already consistent), which makes deletes safe to
// retry; other failures propagate.
func (sy *Syncer) SnippetDeleted(id int64) error {
	return sy.idx.Delete(id)
}

// Reindex rebuilds the index from scratch: delete every document, then
// project every snippet the store holds. This is the administrative
// reconciliation path after an index outage left the two sides diverged.
func (sy *Syncer) Reindex(records Records, logger *slog.Logger) error {
	if err := sy.idx.DeleteAll(); err != nil {
		return err
	}
	snippets, err := records.AllSnippets()
	if err != nil {
		return err
	}
	for _, sn := range snippets {
		if err := sy.SnippetUpserted(sn); err != nil {
			return err
		}
		logger.Debug("reindexed snippet", slog.Int64("id", sn.ID), slog.String("title", sn.Title))
	}
	logger.Info("reindex complete", slog.Int("count", len(snippets)))
	return nil
}

func fieldValue(s models.Snippet, field string) (string, error) {
	switch field {
	case "title":
		return s.Title, nil
	case "text":
		return s.Text, nil
	default:
		return "", fmt.Errorf("search: unknown index field %q", field)
	}
}
