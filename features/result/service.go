package result

import (
	"context"
	"errors"
	"fmt"

	"pagebrief/backend/internal/blob"
	"pagebrief/backend/internal/poll"
)

// Service checks for the terminal artifacts asynchronous jobs leave in the
// object store: <prefix>/<job>.txt on success, <prefix>/<job>.FAILED.txt on
// failure. Neither existing means the job is still pending.
type Service struct {
	blobs    blob.Store
	prefixes map[string]string // result type -> artifact prefix
}

func NewService(blobs blob.Store, prefixes map[string]string) *Service {
	return &Service{blobs: blobs, prefixes: prefixes}
}

var ErrUnknownType = errors.New("invalid result type")

// Check returns the job's observable state. A transient store read failure is
// reported alongside a PENDING outcome so the caller's retry loop absorbs it
// instead of surfacing a hard failure.
func (s *Service) Check(ctx context.Context, resultType, jobID string) (poll.Outcome, error) {
	prefix, ok := s.prefixes[resultType]
	if !ok {
		return poll.Pending(), fmt.Errorf("%w: %s", ErrUnknownType, resultType)
	}

	resultKey := fmt.Sprintf("%s/%s.txt", prefix, jobID)
	data, err := s.blobs.Get(ctx, resultKey)
	if err == nil {
		return poll.Completed(string(data)), nil
	}
	if !errors.Is(err, blob.ErrNotFound) {
		return poll.Pending(), fmt.Errorf("checking result: %w", err)
	}

	failureKey := fmt.Sprintf("%s/%s.FAILED.txt", prefix, jobID)
	reason, err := s.blobs.Get(ctx, failureKey)
	if err == nil {
		return poll.Failed(string(reason)), nil
	}
	if !errors.Is(err, blob.ErrNotFound) {
		return poll.Pending(), fmt.Errorf("checking failure file: %w", err)
	}

	return poll.Pending(), nil
}

// Checker returns a poll.CheckFunc bound to one result type, for callers that
// block on completion instead of returning 202s.
func (s *Service) Checker(resultType string) poll.CheckFunc {
	return func(ctx context.Context, jobID string) (poll.Outcome, error) {
		return s.Check(ctx, resultType, jobID)
	}
}
