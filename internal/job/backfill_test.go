package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CheerChen/konakore/internal/fetcher"
	"github.com/CheerChen/konakore/internal/schedule"
)

func TestBackfill_SuccessAdvancesCursor(t *testing.T) {
	store := newMockStore(schedule.SeedBackfill())
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Success(100)}}
	trigger := &fakeTrigger{}
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	b := NewBackfill(store, syncer, trigger, WithBackfillClock(fixedClock(now)))

	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	st := store.state(schedule.JobBackfill)
	if st.Cursor != 2 || st.Retries != 0 || !st.Active {
		t.Errorf("unexpected state: %+v", st)
	}
	if !st.LastRunAt.Equal(now) {
		t.Errorf("expected lastRunAt %v, got %v", now, st.LastRunAt)
	}
	if len(trigger.rescheduled) != 1 || trigger.rescheduled[0] != defaultBackfillShort {
		t.Errorf("expected one short reschedule, got %v", trigger.rescheduled)
	}
}

func TestBackfill_EmptyCompletes(t *testing.T) {
	store := newMockStore(schedule.JobState{JobName: schedule.JobBackfill, Cursor: 812, Active: true})
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Empty()}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger)

	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	st := store.state(schedule.JobBackfill)
	if st.Active {
		t.Error("expected inactive after exhaustion")
	}
	if st.FinalStatus != schedule.FinalCompleted {
		t.Errorf("expected completed, got %q", st.FinalStatus)
	}
	if st.Cursor != 812 {
		t.Errorf("cursor must not move on exhaustion, got %d", st.Cursor)
	}
	if trigger.cancelled != 1 || len(trigger.rescheduled) != 0 {
		t.Errorf("expected a single cancel, got cancels=%d reschedules=%v", trigger.cancelled, trigger.rescheduled)
	}

	// Terminal state: further ticks must not fetch or mutate anything.
	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick after completion: %v", err)
	}
	if syncer.calls() != 1 {
		t.Errorf("expected no fetch after completion, got %d calls", syncer.calls())
	}
	if got := store.state(schedule.JobBackfill); got != st {
		t.Errorf("state mutated after completion: %+v", got)
	}
}

func TestBackfill_RetriesIncreaseMonotonically(t *testing.T) {
	store := newMockStore(schedule.JobState{JobName: schedule.JobBackfill, Cursor: 5, Active: true})
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Failure()}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger, WithBackfillMaxRetries(10))

	for i := 1; i < 10; i++ {
		if err := b.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		st := store.state(schedule.JobBackfill)
		if st.Retries != i {
			t.Fatalf("tick %d: expected retries %d, got %d", i, i, st.Retries)
		}
		if st.Cursor != 5 || !st.Active {
			t.Fatalf("tick %d: cursor/active must not change below budget: %+v", i, st)
		}
	}

	for _, d := range trigger.rescheduled {
		if d != defaultBackfillLong {
			t.Errorf("expected long backoff reschedules, got %v", d)
		}
	}
}

func TestBackfill_GivesUpExactlyAtMaxRetries(t *testing.T) {
	store := newMockStore(schedule.JobState{JobName: schedule.JobBackfill, Cursor: 5, Retries: 9, Active: true})
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Failure()}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger, WithBackfillMaxRetries(10))

	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	st := store.state(schedule.JobBackfill)
	if st.Active {
		t.Error("expected inactive at retry budget")
	}
	if st.FinalStatus != schedule.FinalFailed {
		t.Errorf("expected failed, got %q", st.FinalStatus)
	}
	if trigger.cancelled != 1 {
		t.Errorf("expected cancel, got %d", trigger.cancelled)
	}
}

func TestBackfill_StillActiveJustBelowBudget(t *testing.T) {
	store := newMockStore(schedule.JobState{JobName: schedule.JobBackfill, Cursor: 5, Retries: 8, Active: true})
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Failure()}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger, WithBackfillMaxRetries(10))

	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	st := store.state(schedule.JobBackfill)
	if !st.Active || st.Retries != 9 {
		t.Errorf("expected active with retries 9, got %+v", st)
	}
}

func TestBackfill_SuccessResetsRetries(t *testing.T) {
	store := newMockStore(schedule.JobState{JobName: schedule.JobBackfill, Cursor: 2, Retries: 3, Active: true})
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Success(42)}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger)

	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	st := store.state(schedule.JobBackfill)
	if st.Retries != 0 || st.Cursor != 3 {
		t.Errorf("expected retries reset and cursor advance, got %+v", st)
	}
}

func TestBackfill_InactiveTickIsNoop(t *testing.T) {
	store := newMockStore(schedule.JobState{
		JobName:     schedule.JobBackfill,
		Cursor:      7,
		Active:      false,
		FinalStatus: schedule.FinalFailed,
	})
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Success(1)}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger)

	if err := b.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if syncer.calls() != 0 {
		t.Error("inactive job must not fetch")
	}
	if len(trigger.rescheduled) != 0 || trigger.cancelled != 0 {
		t.Error("inactive job must not touch the trigger")
	}
	if store.saves != 0 {
		t.Error("inactive job must not persist anything")
	}
}

func TestBackfill_SaveErrorPropagatesAndRearmsTimer(t *testing.T) {
	store := newMockStore(schedule.SeedBackfill())
	store.saveErr = errors.New("disk full")
	syncer := &stubSyncer{results: []fetcher.Result{fetcher.Success(10)}}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger)

	if err := b.Tick(context.Background()); err == nil {
		t.Fatal("expected save error to propagate")
	}

	// The timer that drove this tick already fired; without a reschedule
	// the job would stay dead despite Active=true.
	if len(trigger.rescheduled) != 1 || trigger.rescheduled[0] != defaultBackfillLong {
		t.Errorf("expected a long-delay reschedule after save failure, got %v", trigger.rescheduled)
	}
}

func TestBackfill_LoadErrorPropagatesAndRearmsTimer(t *testing.T) {
	store := newMockStore(schedule.SeedBackfill())
	store.getErr = errors.New("database is locked")
	syncer := &stubSyncer{}
	trigger := &fakeTrigger{}

	b := NewBackfill(store, syncer, trigger)

	if err := b.Tick(context.Background()); err == nil {
		t.Fatal("expected load error to propagate")
	}
	if syncer.calls() != 0 {
		t.Error("must not fetch when the state could not be loaded")
	}
	if len(trigger.rescheduled) != 1 || trigger.rescheduled[0] != defaultBackfillLong {
		t.Errorf("expected a long-delay reschedule after load failure, got %v", trigger.rescheduled)
	}
}

func TestBackfill_RecoversFromTransientStoreFailure(t *testing.T) {
	store := newMockStore(schedule.SeedBackfill())
	store.failSavesLeft = 1 // first save fails, everything after succeeds
	syncer := &stubSyncer{results: []fetcher.Result{
		fetcher.Success(100),
		fetcher.Success(100),
		fetcher.Empty(),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timers := NewTimers(ctx)
	b := NewBackfill(store, syncer, timers,
		WithBackfillDelays(time.Millisecond, time.Millisecond),
	)
	timers.Register(schedule.JobBackfill, b.Tick)
	timers.Reschedule(schedule.JobBackfill, 0)

	// Driven by real timers, the job must ride out the failed save and
	// still crawl to completion.
	deadline := time.After(5 * time.Second)
	for {
		st := store.state(schedule.JobBackfill)
		if !st.Active {
			if st.FinalStatus != schedule.FinalCompleted {
				t.Fatalf("expected completed, got %q", st.FinalStatus)
			}
			// Page 1 is fetched twice (the first save failed), page 2
			// comes back empty, so the cursor finishes at 2.
			if st.Cursor != 2 {
				t.Errorf("expected cursor 2 at completion, got %d", st.Cursor)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job stalled after transient store failure: %+v, fetches=%d", st, syncer.calls())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
