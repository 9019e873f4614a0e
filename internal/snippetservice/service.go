// Package snippetservice coordinates the record store and the search index
// behind a single browse-or-search read path and a validated write path.
package snippetservice

import (
	"context"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/search"
	"github.com/starford/gebo/internal/store"
)

// Events receives snippet lifecycle notifications after successful mutations.
type Events interface {
	PublishSnippetEvent(kind string, id int64)
}

type nopEvents struct{}

func (nopEvents) PublishSnippetEvent(string, int64) {}

// Service is the query coordinator plus the validated mutation facade. The
// index client is the same injected instance the sync adapter uses.
type Service struct {
	store  *store.Store
	idx    search.Index
	limit  int
	events Events
}

// NewService creates a snippet service. limit caps both search results and
// the recent list. events may be nil.
func NewService(st *store.Store, idx search.Index, limit int, events Events) *Service {
	if limit <= 0 {
		limit = 10
	}
	if events == nil {
		events = nopEvents{}
	}
	return &Service{store: st, idx: idx, limit: limit, events: events}
}

// Create validates and stores a new snippet. Validation failures never reach
// the store or the index.
func (s *Service) Create(_ context.Context, title, text string) (*models.Snippet, error) {
	if err := validateSnippet(title, text); err != nil {
		return nil, err
	}
	sn, err := s.store.CreateSnippet(title, text)
	if err != nil {
		return nil, err
	}
	s.events.PublishSnippetEvent("created", sn.ID)
	return sn, nil
}

// Update validates and replaces an existing snippet's title and text.
func (s *Service) Update(_ context.Context, id int64, title, text string) (*models.Snippet, error) {
	if err := validateSnippet(title, text); err != nil {
		return nil, err
	}
	sn, err := s.store.UpdateSnippet(id, title, text)
	if err != nil {
		return nil, err
	}
	s.events.PublishSnippetEvent("updated", sn.ID)
	return sn, nil
}

// Delete hard-deletes a snippet and its index document.
func (s *Service) Delete(_ context.Context, id int64) error {
	if err := s.store.DeleteSnippet(id); err != nil {
		return err
	}
	s.events.PublishSnippetEvent("deleted", id)
	return nil
}

// Get returns one snippet by id.
func (s *Service) Get(_ context.Context, id int64) (*models.Snippet, error) {
	return s.store.GetSnippet(id)
}

// ListRecent returns the most recently created snippets, newest first.
func (s *Service) ListRecent(_ context.Context) ([]models.Snippet, error) {
	return s.store.ListRecent(s.limit)
}

// Search serves the unified browse-or-search path. A blank query behaves as
// ListRecent. Otherwise the index supplies ranked ids, the store hydrates
// them, and the result keeps the index's ranking order exactly — the store's
// batch fetch returns primary-key order, so the re-sort is mandatory. Ids the
// index still holds but the store no longer does are silently dropped.
func (s *Service) Search(ctx context.Context, query string) ([]models.Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return s.ListRecent(ctx)
	}
	ids, err := s.idx.Query(query, s.limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Snippet{}, nil
	}
	fetched, err := s.store.GetSnippets(ids)
	if err != nil {
		return nil, err
	}
	rank := make(map[int64]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.Slice(fetched, func(i, j int) bool {
		return rank[fetched[i].ID] < rank[fetched[j].ID]
	})
	if fetched == nil {
		fetched = []models.Snippet{}
	}
	return fetched, nil
}

func validateSnippet(title, text string) error {
	return validation.Errors{
		"title": validation.Validate(title, validation.Required),
		"text":  validation.Validate(text, validation.Required),
	}.Filter()
}
