package schedule

import (
	"context"
	"log/slog"
)

// Service is the read surface for operators; jobs write their own state
// directly through the Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Bootstrap makes sure both job rows exist. Existing rows are left alone so
// a restart resumes from the persisted cursor.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, st := range []JobState{SeedBackfill(), SeedRecent()} {
		if err := s.store.Seed(ctx, &st); err != nil {
			return err
		}
	}
	slog.Info("schedule state bootstrapped")
	return nil
}

func (s *Service) Get(ctx context.Context, req GetStateRequest) (*JobState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, req.JobName)
}

func (s *Service) List(ctx context.Context) ([]JobState, error) {
	return s.store.List(ctx)
}
