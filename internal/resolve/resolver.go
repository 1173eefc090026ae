// Package resolve decides, per document, whether to trust indexed passages,
// re-run indexing, or fall back to raw text.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pagebrief/backend/internal/dispatch"
	"pagebrief/backend/internal/docstore"
	"pagebrief/backend/internal/poll"
)

// ErrEnhancementFailed is returned when the caller required indexed passages
// and indexing terminally failed or timed out. Required enhancement is never
// silently downgraded to raw text.
var ErrEnhancementFailed = errors.New("enhancement failed")

// Resolved is the text handed to summarization, with an explicit flag for
// whether indexed passages (rather than raw cleaned text) were used.
type Resolved struct {
	Text     string
	Enhanced bool
}

type DocumentStore interface {
	Exists(ctx context.Context, id string) (*docstore.Metadata, error)
	Get(ctx context.Context, id string) (*docstore.Record, error)
	SetIndexedStatus(ctx context.Context, id, status string)
}

type SearchIndex interface {
	Passages(ctx context.Context, docID, query string) (string, error)
}

type JobSubmitter interface {
	Submit(ctx context.Context, kind dispatch.Kind, params dispatch.Params) (string, error)
}

type Poller interface {
	Await(ctx context.Context, jobID string, check poll.CheckFunc, maxRetries int, baseWait time.Duration) poll.Outcome
}

type Resolver struct {
	docs       DocumentStore
	index      SearchIndex
	dispatcher JobSubmitter
	poller     Poller
	maxRetries int
	baseWait   time.Duration
}

func New(docs DocumentStore, index SearchIndex, dispatcher JobSubmitter, poller Poller, maxRetries int, baseWait time.Duration) *Resolver {
	return &Resolver{
		docs:       docs,
		index:      index,
		dispatcher: dispatcher,
		poller:     poller,
		maxRetries: maxRetries,
		baseWait:   baseWait,
	}
}

// Resolve returns the best available text for a document. When the index
// already holds the document, passages are used directly; otherwise an index
// job is dispatched and polled. On a terminal indexing failure, required
// callers get ErrEnhancementFailed while optional callers fall back to the
// document's raw cleaned text.
func (r *Resolver) Resolve(ctx context.Context, id, query string, required bool) (Resolved, error) {
	meta, err := r.docs.Exists(ctx, id)
	if err != nil {
		return Resolved{}, err
	}

	if meta != nil && meta.IndexedStatus == docstore.StatusComplete {
		passages, err := r.index.Passages(ctx, id, query)
		if err == nil && passages != "" {
			return Resolved{Text: passages, Enhanced: true}, nil
		}
		if err != nil {
			slog.WarnContext(ctx, "passage query on indexed document failed", "id", id, "error", err)
		}
		// Indexed but nothing retrievable: fall through and re-index.
	}

	jobID, err := r.dispatcher.Submit(ctx, dispatch.KindIndex, dispatch.Params{DocumentID: id, Query: query})
	if err != nil {
		return r.fallback(ctx, id, required, fmt.Sprintf("index dispatch: %v", err))
	}

	check := func(ctx context.Context, _ string) (poll.Outcome, error) {
		passages, err := r.index.Passages(ctx, id, query)
		if err != nil {
			return poll.Pending(), err
		}
		if passages == "" {
			return poll.Pending(), nil
		}
		return poll.Completed(passages), nil
	}

	outcome := r.poller.Await(ctx, jobID, check, r.maxRetries, r.baseWait)
	switch outcome.Status {
	case poll.StatusCompleted:
		r.docs.SetIndexedStatus(ctx, id, docstore.StatusComplete)
		return Resolved{Text: outcome.Payload, Enhanced: true}, nil
	case poll.StatusFailed:
		r.docs.SetIndexedStatus(ctx, id, docstore.StatusFailed)
		return r.fallback(ctx, id, required, outcome.Reason)
	default: // TIMED_OUT: unknown, may still complete — status stays pending.
		return r.fallback(ctx, id, required, "indexing timed out")
	}
}

func (r *Resolver) fallback(ctx context.Context, id string, required bool, reason string) (Resolved, error) {
	if required {
		return Resolved{}, fmt.Errorf("%w: %s", ErrEnhancementFailed, reason)
	}

	slog.InfoContext(ctx, "falling back to raw cleaned text", "id", id, "reason", reason)
	rec, err := r.docs.Get(ctx, id)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Text: rec.CleanedText, Enhanced: false}, nil
}
