package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"pagebrief/backend/internal/middleware"
)

// ResultConsumer persists the terminal artifacts remote processors publish,
// so the result endpoint and poll loops can observe them. Success lands at
// <prefix>/<job>.txt, failure reasons at <prefix>/<job>.FAILED.txt.
type ResultConsumer struct {
	blobs    ObjectStore
	prefixes map[string]string // job kind -> artifact prefix
}

func NewResultConsumer(blobs ObjectStore, prefixes map[string]string) *ResultConsumer {
	return &ResultConsumer{blobs: blobs, prefixes: prefixes}
}

func (c *ResultConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload struct {
		JobID         string `json:"job_id"`
		Kind          string `json:"kind"`
		Status        string `json:"status"` // "success" or "failed"
		Result        string `json:"result,omitempty"`
		Error         string `json:"error,omitempty"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		slog.Error("invalid result message, dropping", "error", err)
		return nil
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	prefix, ok := c.prefixes[payload.Kind]
	if !ok || payload.JobID == "" {
		slog.ErrorContext(ctx, "result for unknown job, dropping", "kind", payload.Kind, "job_id", payload.JobID)
		return nil
	}

	if payload.Status == "failed" {
		key := fmt.Sprintf("%s/%s.FAILED.txt", prefix, payload.JobID)
		if err := c.blobs.Put(ctx, key, []byte(payload.Error), "text/plain"); err != nil {
			slog.ErrorContext(ctx, "failed to write failure artifact", "key", key, "error", err)
			return err
		}
		slog.InfoContext(ctx, "recorded job failure", "job_id", payload.JobID, "kind", payload.Kind)
		return nil
	}

	key := fmt.Sprintf("%s/%s.txt", prefix, payload.JobID)
	if err := c.blobs.Put(ctx, key, []byte(payload.Result), "text/plain"); err != nil {
		slog.ErrorContext(ctx, "failed to write result artifact", "key", key, "error", err)
		return err
	}
	slog.InfoContext(ctx, "recorded job result", "job_id", payload.JobID, "kind", payload.Kind)
	return nil
}
