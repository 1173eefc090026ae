package worker

import (
	"context"

	"pagebrief/backend/internal/docstore"
)

type DocumentStore interface {
	Get(ctx context.Context, id string) (*docstore.Record, error)
	SetIndexedStatus(ctx context.Context, id, status string)
}

type SearchIndex interface {
	IndexChunks(ctx context.Context, docID, title string, chunks []string) error
	DeleteDocument(ctx context.Context, docID string) error
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
