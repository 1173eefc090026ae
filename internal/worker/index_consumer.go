package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"pagebrief/backend/internal/docstore"
	"pagebrief/backend/internal/middleware"
	"pagebrief/backend/internal/text"
)

// IndexConsumer handles index jobs: it loads the stored document, chunks the
// cleaned text and ingests the chunks into the search index.
type IndexConsumer struct {
	docs         DocumentStore
	index        SearchIndex
	maxChunkSize int
}

func NewIndexConsumer(docs DocumentStore, index SearchIndex, maxChunkSize int) *IndexConsumer {
	if maxChunkSize <= 0 {
		maxChunkSize = text.DefaultMaxChunkSize
	}
	return &IndexConsumer{docs: docs, index: index, maxChunkSize: maxChunkSize}
}

func (c *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload struct {
		JobID         string `json:"job_id"`
		DocumentID    string `json:"document_id"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		slog.Error("invalid index message, dropping", "error", err)
		return nil
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if payload.DocumentID == "" {
		slog.ErrorContext(ctx, "index message without document id, dropping", "job_id", payload.JobID)
		return nil
	}

	rec, err := c.docs.Get(ctx, payload.DocumentID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load document for indexing", "document_id", payload.DocumentID, "error", err)
		c.docs.SetIndexedStatus(ctx, payload.DocumentID, docstore.StatusFailed)
		return nil
	}

	// Clear any chunks from a previous content revision first.
	if err := c.index.DeleteDocument(ctx, payload.DocumentID); err != nil {
		slog.WarnContext(ctx, "failed to delete stale chunks", "document_id", payload.DocumentID, "error", err)
	}

	chunks := text.SplitChunks(rec.CleanedText, c.maxChunkSize)
	if err := c.index.IndexChunks(ctx, payload.DocumentID, rec.Title, chunks); err != nil {
		slog.ErrorContext(ctx, "indexing failed", "document_id", payload.DocumentID, "error", err)
		c.docs.SetIndexedStatus(ctx, payload.DocumentID, docstore.StatusFailed)
		return err // NSQ requeues; indexing is idempotent.
	}

	c.docs.SetIndexedStatus(ctx, payload.DocumentID, docstore.StatusComplete)
	slog.InfoContext(ctx, "document indexed", "document_id", payload.DocumentID, "chunks", len(chunks))
	return nil
}
