package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/CheerChen/konakore/internal/metrics"
	"github.com/CheerChen/konakore/internal/post"
)

const (
	defaultBaseURL = "https://konachan.net"
	postsEndpoint  = "/post.json"
	defaultTimeout = 30 * time.Second
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "failure"
)

// Result is the tagged outcome of one page fetch. Count is only meaningful
// for OutcomeSuccess. Empty means the remote returned a well-formed empty
// page; Failure covers transport, decode and non-2xx responses.
type Result struct {
	Outcome Outcome
	Count   int
}

func Success(n int) Result { return Result{Outcome: OutcomeSuccess, Count: n} }
func Empty() Result        { return Result{Outcome: OutcomeEmpty} }
func Failure() Result      { return Result{Outcome: OutcomeFailure} }

// Fetcher pulls one page of posts from the remote catalog and writes them
// through the post repository.
type Fetcher struct {
	client  *http.Client
	baseURL string
	repo    post.Repository
}

type Option func(*Fetcher)

func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithBaseURL(url string) Option {
	return func(f *Fetcher) { f.baseURL = url }
}

func New(repo post.Repository, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: defaultBaseURL,
		repo:    repo,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Sync fetches the given page and upserts every item it contains. Network
// and decode problems are folded into Failure; they are expected during
// normal operation and handled by the jobs' retry budgets. The upsert is
// idempotent, so re-fetching a page after a mid-tick crash is safe.
func (f *Fetcher) Sync(ctx context.Context, page, limit int) Result {
	if page < 1 || limit < 1 {
		slog.Error("fetcher: invalid page request", "page", page, "limit", limit)
		return Failure()
	}

	items, err := f.getPage(ctx, page, limit)
	if err != nil {
		slog.Error("fetcher: failed to sync page", "page", page, "error", err)
		return Failure()
	}
	if len(items) == 0 {
		return Empty()
	}

	posts := make([]post.Post, 0, len(items))
	for _, raw := range items {
		var ident struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &ident); err != nil || ident.ID == 0 {
			slog.Error("fetcher: item without usable id", "page", page, "error", err)
			return Failure()
		}
		posts = append(posts, post.Post{ID: ident.ID, Raw: raw})
	}

	if err := f.repo.Upsert(ctx, posts); err != nil {
		slog.Error("fetcher: failed to upsert page", "page", page, "error", err)
		return Failure()
	}

	metrics.PostsSynced.Add(float64(len(posts)))
	slog.Info("fetcher: synced page", "page", page, "count", len(posts))
	return Success(len(posts))
}

func (f *Fetcher) getPage(ctx context.Context, page, limit int) ([]json.RawMessage, error) {
	url := fmt.Sprintf("%s%s?page=%d&limit=%d", f.baseURL, postsEndpoint, page, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}
