package post

import "context"

type Repository interface {
	// Upsert inserts or refreshes posts keyed by their remote id. Re-applying
	// the same batch must leave the store unchanged apart from timestamps.
	Upsert(ctx context.Context, posts []Post) error
	Get(ctx context.Context, id int64) (*Post, error)
	Count(ctx context.Context) (int64, error)
}
