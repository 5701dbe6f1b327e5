package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CheerChen/konakore/internal/fetcher"
	"github.com/CheerChen/konakore/internal/metrics"
	"github.com/CheerChen/konakore/internal/schedule"
)

const (
	defaultWindow           = 30
	defaultRecurringRetries = 5
)

// Recurring keeps the head of the catalog fresh by cycling over a fixed
// page window on an external cadence. It has no terminal state: when a page
// keeps failing it drops it and moves on, relying on the next pass over the
// window to pick it up again.
type Recurring struct {
	store  schedule.Store
	syncer Syncer

	pageSize   int
	window     int
	maxRetries int
	now        func() time.Time
}

type RecurringOption func(*Recurring)

func WithRecurringPageSize(n int) RecurringOption {
	return func(r *Recurring) { r.pageSize = n }
}

func WithRecurringWindow(w int) RecurringOption {
	return func(r *Recurring) { r.window = w }
}

func WithRecurringMaxRetries(n int) RecurringOption {
	return func(r *Recurring) { r.maxRetries = n }
}

func WithRecurringClock(now func() time.Time) RecurringOption {
	return func(r *Recurring) { r.now = now }
}

func NewRecurring(store schedule.Store, syncer Syncer, opts ...RecurringOption) *Recurring {
	r := &Recurring{
		store:      store,
		syncer:     syncer,
		pageSize:   defaultPageSize,
		window:     defaultWindow,
		maxRetries: defaultRecurringRetries,
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Tick runs one cycle against the current window page. The cadence itself
// lives outside; this method never reschedules anything.
func (r *Recurring) Tick(ctx context.Context) error {
	st, err := r.store.Get(ctx, schedule.JobRecent)
	if err != nil {
		return fmt.Errorf("recurring: load state: %w", err)
	}

	res := r.syncer.Sync(ctx, st.Cursor, r.pageSize)
	metrics.SyncTicks.WithLabelValues(schedule.JobRecent, string(res.Outcome)).Inc()

	next := r.next(*st, res)
	next.LastRunAt = r.now().UTC()

	if err := r.store.Save(ctx, &next); err != nil {
		return fmt.Errorf("recurring: save state: %w", err)
	}

	if next.Cursor != st.Cursor {
		slog.Info("recurring: advanced", "page", st.Cursor, "next", next.Cursor, "outcome", res.Outcome)
	} else {
		slog.Info("recurring: will retry page", "page", st.Cursor, "retries", next.Retries)
	}
	return nil
}

// next wraps the cursor over [1, window]. An empty page is unexpected this
// close to the head of the catalog but is treated as success rather than a
// failure worth retrying. After maxRetries consecutive failures the page is
// abandoned for this pass so the job cannot wedge on a single bad page.
func (r *Recurring) next(st schedule.JobState, res fetcher.Result) schedule.JobState {
	advance := func() {
		st.Retries = 0
		st.Cursor = st.Cursor%r.window + 1
	}

	switch res.Outcome {
	case fetcher.OutcomeSuccess, fetcher.OutcomeEmpty:
		advance()
	default:
		if st.Retries+1 >= r.maxRetries {
			advance()
		} else {
			st.Retries++
		}
	}
	return st
}
