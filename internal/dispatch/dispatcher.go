package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pagebrief/backend/internal/blob"
	"pagebrief/backend/internal/config"
	"pagebrief/backend/internal/middleware"
)

type Kind string

const (
	KindImageText     Kind = "image-text"
	KindTranscription Kind = "transcription"
	KindIndex         Kind = "index"
)

var (
	// ErrConfiguration signals missing deployment configuration (no topic for
	// the kind, no publisher). Operator-fixable, maps to HTTP 500.
	ErrConfiguration = errors.New("dispatch configuration error")

	// ErrDispatch signals the remote accept call itself failed.
	ErrDispatch = errors.New("dispatch failed")
)

// Params carries the remote job's input. Exactly one of URL, DocumentID or
// Audio is set depending on the kind.
type Params struct {
	URL        string
	DocumentID string
	Query      string
	Audio      []byte
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Dispatcher packages job parameters and triggers remote execution. Submit
// returns once the work is accepted, not once it finishes.
type Dispatcher struct {
	pub   EventPublisher
	blobs blob.Store
}

func New(pub EventPublisher, blobs blob.Store) *Dispatcher {
	return &Dispatcher{pub: pub, blobs: blobs}
}

type payload struct {
	JobID         string `json:"job_id"`
	Kind          string `json:"kind"`
	ImageURL      string `json:"image_url,omitempty"`
	DocumentID    string `json:"document_id,omitempty"`
	Query         string `json:"query,omitempty"`
	AudioKey      string `json:"audio_key,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Submit generates a fresh job id, durably stages any binary input, and
// publishes the job to the kind's topic. For audio jobs the payload is
// written to the object store before dispatch so the remote worker can read
// it independently of this request's lifetime; a failed dispatch deletes the
// staged object best-effort.
func (d *Dispatcher) Submit(ctx context.Context, kind Kind, params Params) (string, error) {
	if d.pub == nil {
		return "", fmt.Errorf("%w: no event publisher", ErrConfiguration)
	}

	topic, err := topicFor(kind)
	if err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	p := payload{
		JobID:         jobID,
		Kind:          string(kind),
		ImageURL:      params.URL,
		DocumentID:    params.DocumentID,
		Query:         params.Query,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}

	audioKey := ""
	if kind == KindTranscription {
		if len(params.Audio) == 0 {
			return "", fmt.Errorf("%w: transcription job without audio", ErrConfiguration)
		}
		audioKey = fmt.Sprintf("temp-audio/%s.webm", jobID)
		if err := d.blobs.Put(ctx, audioKey, params.Audio, "audio/webm"); err != nil {
			return "", fmt.Errorf("%w: staging audio: %v", ErrDispatch, err)
		}
		p.AudioKey = audioKey
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	if err := d.pub.Publish(topic, body); err != nil {
		if audioKey != "" {
			// Compensating action so a failed dispatch doesn't orphan storage.
			if delErr := d.blobs.Delete(ctx, audioKey); delErr != nil {
				slog.WarnContext(ctx, "failed to clean up staged audio", "key", audioKey, "error", delErr)
			}
		}
		return "", fmt.Errorf("%w: publishing to %s: %v", ErrDispatch, topic, err)
	}

	slog.InfoContext(ctx, "job submitted", "job_id", jobID, "kind", kind, "topic", topic)
	return jobID, nil
}

func topicFor(kind Kind) (string, error) {
	switch kind {
	case KindImageText:
		return config.TopicVision, nil
	case KindTranscription:
		return config.TopicTranscribe, nil
	case KindIndex:
		return config.TopicIndex, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrConfiguration, kind)
	}
}
