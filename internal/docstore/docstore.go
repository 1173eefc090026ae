package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pagebrief/backend/internal/blob"
)

const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Record is the stored document content. Immutable once written except on a
// staleness refresh.
type Record struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	CleanedText string `json:"cleaned_text"`
	RawText     string `json:"raw_text,omitempty"`
}

// Metadata tracks access and indexing state per document id.
type Metadata struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	LastUpdated   int64  `json:"last_updated"`
	LastAccessed  int64  `json:"last_accessed"`
	VisitCount    int    `json:"visit_count"`
	IndexedStatus string `json:"indexed_status"`
}

// Store is the content-addressed document cache. Records and metadata live as
// JSON objects in the blob store; the id is the single source of truth for
// both keys.
type Store struct {
	blobs     blob.Store
	staleness time.Duration
	now       func() time.Time
}

func New(blobs blob.Store, staleness time.Duration) *Store {
	return &Store{blobs: blobs, staleness: staleness, now: time.Now}
}

// WithClock substitutes the time source. Tests use it to exercise the
// staleness window deterministically.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func contentKey(id string) string  { return fmt.Sprintf("shared/websites/%s.json", id) }
func metadataKey(id string) string { return fmt.Sprintf("shared/metadata/%s-meta.json", id) }

// Exists returns the metadata for id, or nil when the document is not stored.
// Only backing-store connectivity errors are returned as errors.
func (s *Store) Exists(ctx context.Context, id string) (*Metadata, error) {
	data, err := s.blobs.Get(ctx, metadataKey(id))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking document %s: %w", id, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata %s: %w", id, err)
	}
	return &meta, nil
}

// Put stores a document and returns its id. An existing record gets its visit
// count and last-accessed bumped; content is only overwritten when it has
// outlived the staleness window.
func (s *Store) Put(ctx context.Context, url, title, cleanedText, rawText string) (string, error) {
	var id string
	if url != "" {
		id = DocumentID(url)
	} else {
		id = ContentID(title, cleanedText)
	}

	existing, err := s.Exists(ctx, id)
	if err != nil {
		return "", err
	}

	now := s.now().Unix()

	if existing != nil {
		existing.VisitCount++
		existing.LastAccessed = now

		if time.Duration(now-existing.LastUpdated)*time.Second > s.staleness {
			if err := s.writeRecord(ctx, id, Record{URL: url, Title: title, CleanedText: cleanedText, RawText: rawText}); err != nil {
				return "", err
			}
			existing.LastUpdated = now
			// The index still holds chunks of the superseded revision.
			existing.IndexedStatus = StatusPending
		}

		if err := s.writeMetadata(ctx, id, *existing); err != nil {
			return "", err
		}
		slog.InfoContext(ctx, "updated existing document", "id", id, "visit_count", existing.VisitCount)
		return id, nil
	}

	if err := s.writeRecord(ctx, id, Record{URL: url, Title: title, CleanedText: cleanedText, RawText: rawText}); err != nil {
		return "", err
	}
	meta := Metadata{
		URL:           url,
		Title:         title,
		LastUpdated:   now,
		LastAccessed:  now,
		VisitCount:    1,
		IndexedStatus: StatusPending,
	}
	if err := s.writeMetadata(ctx, id, meta); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "created new document", "id", id, "url", url)
	return id, nil
}

// Get retrieves the stored record. As a side effect it touches the metadata
// (visit count, last accessed); a metadata failure never fails the read.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.blobs.Get(ctx, contentKey(id))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving document %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}

	if meta, err := s.Exists(ctx, id); err == nil && meta != nil {
		meta.LastAccessed = s.now().Unix()
		meta.VisitCount++
		if err := s.writeMetadata(ctx, id, *meta); err != nil {
			slog.WarnContext(ctx, "could not update metadata on access", "id", id, "error", err)
		}
	} else if err != nil {
		slog.WarnContext(ctx, "could not read metadata on access", "id", id, "error", err)
	}

	return &rec, nil
}

// SetIndexedStatus overwrites the indexed status. A missing metadata record is
// logged and swallowed: indexing before storing is a caller bug, not a reason
// to fail the indexing pipeline.
func (s *Store) SetIndexedStatus(ctx context.Context, id, status string) {
	meta, err := s.Exists(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read metadata for status update", "id", id, "error", err)
		return
	}
	if meta == nil {
		slog.WarnContext(ctx, "no metadata record for indexed status update", "id", id, "status", status)
		return
	}
	meta.IndexedStatus = status
	if err := s.writeMetadata(ctx, id, *meta); err != nil {
		slog.ErrorContext(ctx, "failed to write indexed status", "id", id, "error", err)
	}
}

func (s *Store) writeRecord(ctx context.Context, id string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, contentKey(id), data, "application/json")
}

func (s *Store) writeMetadata(ctx context.Context, id string, meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, metadataKey(id), data, "application/json")
}
