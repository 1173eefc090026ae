package history

import (
	"context"
	"time"
)

// Entry is one summarization recorded for a user. The list is append-only.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Append(ctx context.Context, userID string, entry Entry) error
	List(ctx context.Context, userID string) ([]Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Append(ctx context.Context, userID string, entry Entry) error {
	return s.repo.Append(ctx, userID, entry)
}

func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	return s.repo.List(ctx, userID)
}
