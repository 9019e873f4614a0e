package search

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
)

// Bleve implements Index on a bleve full-text index. Snippet ids are stored
// as decimal strings (bleve document IDs are strings) and must round-trip
// exactly; Query drops any hit whose ID does not parse back to an int64.
type Bleve struct {
	index bleve.Index
}

// Verify Bleve satisfies Index at compile time.
var _ Index = (*Bleve)(nil)

// OpenBleve opens the index at path, creating it if it does not exist yet.
func OpenBleve(path string) (*Bleve, error) {
	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("search: open index: %w", err)
	}
	return &Bleve{index: index}, nil
}

// NewMemoryBleve creates an in-memory index. Used by tests.
func NewMemoryBleve() (*Bleve, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("search: open memory index: %w", err)
	}
	return &Bleve{index: index}, nil
}

// Upsert stores doc under id. bleve's Index call replaces the whole document
// for an existing ID, which gives the required overwrite semantics.
func (b *Bleve) Upsert(id int64, doc Document) error {
	if err := b.index.Index(docID(id), doc); err != nil {
		return fmt.Errorf("search: upsert %d: %w", id, err)
	}
	return nil
}

// Delete removes the document with the given id. bleve treats a missing
// document as a no-op, satisfying the delete-is-retryable contract.
func (b *Bleve) Delete(id int64) error {
	if err := b.index.Delete(docID(id)); err != nil {
		return fmt.Errorf("search: delete %d: %w", id, err)
	}
	return nil
}

// Query runs a free-text query string and returns ranked snippet ids.
func (b *Bleve) Query(q string, limit int) ([]int64, error) {
	req := bleve.NewSearchRequest(bleve.NewQueryStringQuery(q))
	req.Size = limit
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w", q, err)
	}
	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteAll removes every document via batched match-all sweeps.
func (b *Bleve) DeleteAll() error {
	for {
		req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
		req.Size = 1000
		res, err := b.index.Search(req)
		if err != nil {
			return fmt.Errorf("search: delete all: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("search: delete all batch: %w", err)
		}
	}
}

// Close closes the underlying index.
func (b *Bleve) Close() error {
	return b.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
