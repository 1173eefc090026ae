package document

import (
	"context"

	"pagebrief/backend/internal/docstore"
	"pagebrief/backend/internal/text"
)

type Store interface {
	Put(ctx context.Context, url, title, cleanedText, rawText string) (string, error)
	Get(ctx context.Context, id string) (*docstore.Record, error)
	Exists(ctx context.Context, id string) (*docstore.Metadata, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type Stored struct {
	ID            string `json:"id"`
	VisitCount    int    `json:"visit_count"`
	IndexedStatus string `json:"indexed_status"`
}

// Submit cleans and stores a document, returning its content-addressed id and
// the post-store metadata snapshot.
func (s *Service) Submit(ctx context.Context, url, title, content string) (*Stored, error) {
	cleaned := text.Clean(content)
	id, err := s.store.Put(ctx, url, title, cleaned, content)
	if err != nil {
		return nil, err
	}

	stored := &Stored{ID: id}
	if meta, err := s.store.Exists(ctx, id); err == nil && meta != nil {
		stored.VisitCount = meta.VisitCount
		stored.IndexedStatus = meta.IndexedStatus
	}
	return stored, nil
}

func (s *Service) Get(ctx context.Context, id string) (*docstore.Record, error) {
	return s.store.Get(ctx, id)
}
