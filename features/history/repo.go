package history

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, userID string, entry Entry) error {
	query := `INSERT INTO summaries (user_id, url, title, summary) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, userID, entry.URL, entry.Title, entry.Summary)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Entry, error) {
	query := `SELECT id, user_id, url, title, summary, created_at FROM summaries WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.URL, &e.Title, &e.Summary, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
