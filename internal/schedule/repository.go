package schedule

import "context"

type Store interface {
	Get(ctx context.Context, jobName string) (*JobState, error)
	// Save overwrites the row for st.JobName.
	Save(ctx context.Context, st *JobState) error
	// Seed inserts st only if no row exists for its job name.
	Seed(ctx context.Context, st *JobState) error
	List(ctx context.Context) ([]JobState, error)
}
