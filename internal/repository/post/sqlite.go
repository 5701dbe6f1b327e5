package post

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/CheerChen/konakore/internal/apperror"
	domain "github.com/CheerChen/konakore/internal/post"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	const batchSize = 200

	for i := 0; i < len(posts); i += batchSize {
		end := i + batchSize
		if end > len(posts) {
			end = len(posts)
		}
		batch := posts[i:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*2)
		for j, p := range batch {
			placeholders[j] = "(?, ?, 0, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))"
			args = append(args, p.ID, string(p.Raw))
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			`INSERT INTO posts (id, raw_data, is_processed, last_synced_at) VALUES %s
			ON CONFLICT (id) DO UPDATE SET
				raw_data = excluded.raw_data,
				last_synced_at = excluded.last_synced_at,
				is_processed = 0`,
			strings.Join(placeholders, ", "),
		)

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert posts: %w", err)
		}
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	const query = `SELECT id, raw_data, is_processed, last_synced_at FROM posts WHERE id = ?`

	p := &domain.Post{}
	var raw string
	var processed int
	var syncedStr string

	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &raw, &processed, &syncedStr)
	if err == sql.ErrNoRows {
		return nil, apperror.New(apperror.NotFound, "post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	p.Raw = json.RawMessage(raw)
	p.IsProcessed = processed != 0
	p.LastSyncedAt, _ = time.Parse(time.RFC3339, syncedStr)
	return p, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}
