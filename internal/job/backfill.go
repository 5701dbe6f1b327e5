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

// Syncer is the fetch-and-upsert capability consumed by both jobs.
type Syncer interface {
	Sync(ctx context.Context, page, limit int) fetcher.Result
}

const (
	defaultPageSize        = 100
	defaultBackfillRetries = 10
	defaultBackfillShort   = 10 * time.Second
	defaultBackfillLong    = 5 * time.Minute
)

// Backfill walks the catalog forward from page 1 until it sees an empty
// page (completed) or burns through its retry budget (failed). Either way
// it deactivates itself and is never scheduled again; only the persisted
// state survives between ticks.
type Backfill struct {
	store   schedule.Store
	syncer  Syncer
	trigger Trigger

	pageSize   int
	maxRetries int
	shortDelay time.Duration
	longDelay  time.Duration
	now        func() time.Time
}

type BackfillOption func(*Backfill)

func WithBackfillPageSize(n int) BackfillOption {
	return func(b *Backfill) { b.pageSize = n }
}

func WithBackfillMaxRetries(n int) BackfillOption {
	return func(b *Backfill) { b.maxRetries = n }
}

func WithBackfillDelays(short, long time.Duration) BackfillOption {
	return func(b *Backfill) { b.shortDelay = short; b.longDelay = long }
}

func WithBackfillClock(now func() time.Time) BackfillOption {
	return func(b *Backfill) { b.now = now }
}

func NewBackfill(store schedule.Store, syncer Syncer, trigger Trigger, opts ...BackfillOption) *Backfill {
	b := &Backfill{
		store:      store,
		syncer:     syncer,
		trigger:    trigger,
		pageSize:   defaultPageSize,
		maxRetries: defaultBackfillRetries,
		shortDelay: defaultBackfillShort,
		longDelay:  defaultBackfillLong,
		now:        time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Tick runs one load-fetch-transition-save cycle. It returns an error only
// when the state store fails; fetch failures are absorbed by the retry
// budget. An inactive job does nothing, not even a fetch.
func (b *Backfill) Tick(ctx context.Context) error {
	st, err := b.store.Get(ctx, schedule.JobBackfill)
	if err != nil {
		// The one-shot timer that invoked this tick has already fired, so a
		// store error must re-arm it or the job is dead until restart. The
		// rescheduled tick retries the whole load-fetch-transition-save
		// sequence against the persisted state.
		b.trigger.Reschedule(schedule.JobBackfill, b.longDelay)
		return fmt.Errorf("backfill: load state: %w", err)
	}
	if !st.Active {
		slog.Info("backfill: job inactive, skipping", "finalStatus", st.FinalStatus)
		return nil
	}

	res := b.syncer.Sync(ctx, st.Cursor, b.pageSize)
	metrics.SyncTicks.WithLabelValues(schedule.JobBackfill, string(res.Outcome)).Inc()

	next, eff := b.next(*st, res)
	next.LastRunAt = b.now().UTC()

	if err := b.store.Save(ctx, &next); err != nil {
		// Same as the load path: re-arm before surfacing the error. The
		// upsert already happened, but it is idempotent, so the retried
		// tick repairs the state drift by re-fetching the same page.
		b.trigger.Reschedule(schedule.JobBackfill, b.longDelay)
		return fmt.Errorf("backfill: save state: %w", err)
	}

	switch {
	case eff.cancel:
		slog.Info("backfill: finished", "finalStatus", next.FinalStatus, "cursor", next.Cursor)
		b.trigger.Cancel(schedule.JobBackfill)
	case eff.delay > 0:
		slog.Info("backfill: rescheduling", "cursor", next.Cursor, "retries", next.Retries, "delay", eff.delay.String())
		b.trigger.Reschedule(schedule.JobBackfill, eff.delay)
	}
	return nil
}

type effect struct {
	delay  time.Duration
	cancel bool
}

// next is the pure transition: state x fetch result -> state + scheduling
// effect. Keeping it side-effect free is what makes the table in the tests
// checkable without a database.
func (b *Backfill) next(st schedule.JobState, res fetcher.Result) (schedule.JobState, effect) {
	switch res.Outcome {
	case fetcher.OutcomeSuccess:
		st.Retries = 0
		st.Cursor++
		return st, effect{delay: b.shortDelay}
	case fetcher.OutcomeEmpty:
		st.Active = false
		st.FinalStatus = schedule.FinalCompleted
		return st, effect{cancel: true}
	default:
		if st.Retries+1 >= b.maxRetries {
			st.Active = false
			st.FinalStatus = schedule.FinalFailed
			return st, effect{cancel: true}
		}
		st.Retries++
		return st, effect{delay: b.longDelay}
	}
}
