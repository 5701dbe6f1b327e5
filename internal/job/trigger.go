package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickFunc is one invocation of a job's fetch-transition-persist sequence.
type TickFunc func(ctx context.Context) error

// Trigger is the scheduling capability the backfill job requests from its
// environment. The job layer never talks to timers directly, so tests can
// substitute a recording fake.
type Trigger interface {
	Reschedule(jobName string, delay time.Duration)
	Cancel(jobName string)
}

// Timers drives registered ticks with reschedulable one-shot timers. Each
// Reschedule replaces the job's pending timer, so at most one tick per job
// is ever in flight.
type Timers struct {
	ctx context.Context

	mu     sync.Mutex
	ticks  map[string]TickFunc
	timers map[string]*time.Timer
}

// NewTimers creates a Timers bound to ctx; once ctx is cancelled no further
// ticks fire.
func NewTimers(ctx context.Context) *Timers {
	return &Timers{
		ctx:    ctx,
		ticks:  make(map[string]TickFunc),
		timers: make(map[string]*time.Timer),
	}
}

func (t *Timers) Register(jobName string, fn TickFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticks[jobName] = fn
}

func (t *Timers) Reschedule(jobName string, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx.Err() != nil {
		return
	}
	fn, ok := t.ticks[jobName]
	if !ok {
		slog.Error("trigger: reschedule for unregistered job", "job", jobName)
		return
	}
	if tm, ok := t.timers[jobName]; ok {
		tm.Stop()
	}
	var tm *time.Timer
	tm = time.AfterFunc(delay, func() {
		// Drop the map entry once fired, unless a Reschedule already
		// replaced this timer with a newer one.
		t.mu.Lock()
		if cur, ok := t.timers[jobName]; ok && cur == tm {
			delete(t.timers, jobName)
		}
		t.mu.Unlock()
		t.fire(jobName, fn)
	})
	t.timers[jobName] = tm
}

func (t *Timers) Cancel(jobName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tm, ok := t.timers[jobName]; ok {
		tm.Stop()
		delete(t.timers, jobName)
	}
}

// Stop cancels every pending timer. In-flight ticks are not interrupted;
// they stop at the next ctx check.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for name, tm := range t.timers {
		tm.Stop()
		delete(t.timers, name)
	}
}

func (t *Timers) fire(jobName string, fn TickFunc) {
	if t.ctx.Err() != nil {
		return
	}
	if err := fn(t.ctx); err != nil {
		slog.Error("trigger: tick failed", "job", jobName, "error", err)
	}
}

// RunEvery invokes fn on a fixed cadence until ctx is cancelled. Errors are
// logged and the cadence continues; the next tick retries the whole
// sequence against the persisted state.
func RunEvery(ctx context.Context, jobName string, interval time.Duration, fn TickFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				slog.Error("trigger: tick failed", "job", jobName, "error", err)
			}
		}
	}
}
