package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CheerChen/konakore/internal/fetcher"
	"github.com/CheerChen/konakore/internal/schedule"
)

type mockStore struct {
	mu            sync.Mutex
	states        map[string]*schedule.JobState
	getErr        error
	saveErr       error
	failSavesLeft int
	saves         int
}

func newMockStore(seed ...schedule.JobState) *mockStore {
	m := &mockStore{states: make(map[string]*schedule.JobState)}
	for _, st := range seed {
		cp := st
		m.states[st.JobName] = &cp
	}
	return m
}

func (m *mockStore) Get(_ context.Context, jobName string) (*schedule.JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.states[jobName]
	return &cp, nil
}

func (m *mockStore) Save(_ context.Context, st *schedule.JobState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.failSavesLeft > 0 {
		m.failSavesLeft--
		return errors.New("database is locked")
	}
	m.saves++
	cp := *st
	m.states[st.JobName] = &cp
	return nil
}

func (m *mockStore) Seed(_ context.Context, st *schedule.JobState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[st.JobName]; !ok {
		cp := *st
		m.states[st.JobName] = &cp
	}
	return nil
}

func (m *mockStore) List(_ context.Context) ([]schedule.JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schedule.JobState, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, *st)
	}
	return out, nil
}

func (m *mockStore) state(jobName string) schedule.JobState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.states[jobName]
}

// stubSyncer replays a scripted sequence of results and records the pages
// it was asked for. Past the end of the script it keeps returning the last
// result.
type stubSyncer struct {
	mu      sync.Mutex
	results []fetcher.Result
	pages   []int
}

func (s *stubSyncer) Sync(_ context.Context, page, _ int) fetcher.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)
	if len(s.results) == 0 {
		return fetcher.Failure()
	}
	res := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return res
}

func (s *stubSyncer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

type fakeTrigger struct {
	mu          sync.Mutex
	rescheduled []time.Duration
	cancelled   int
}

func (f *fakeTrigger) Reschedule(_ string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, delay)
}

func (f *fakeTrigger) Cancel(_ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
