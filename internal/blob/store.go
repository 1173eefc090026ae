package blob

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is the normal "absent" result for a missing key. Connectivity
// errors surface as-is so callers can distinguish a missing object from an
// unavailable store.
var ErrNotFound = errors.New("object not found")

// Store persists binary objects under string keys with standard object-store
// semantics. Keys are namespaced by purpose, e.g. "shared/websites/<id>.json"
// or "temp-audio/<job>.webm".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	query := `INSERT INTO objects (key, data, content_type, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET data = $2, content_type = $3, updated_at = NOW()`
	_, err := s.db.ExecContext(ctx, query, key, data, contentType)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	query := `SELECT data FROM objects WHERE key = $1`
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM objects WHERE key = $1`
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}
