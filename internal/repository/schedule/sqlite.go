package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CheerChen/konakore/internal/apperror"
	domain "github.com/CheerChen/konakore/internal/schedule"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, jobName string) (*domain.JobState, error) {
	const query = `SELECT job_name, cursor, retries, active, final_status, last_run_at
		FROM schedule_state WHERE job_name = ?`

	st := &domain.JobState{}
	var active int
	var finalStatus, lastRunStr string

	err := r.db.QueryRowContext(ctx, query, jobName).Scan(
		&st.JobName, &st.Cursor, &st.Retries, &active, &finalStatus, &lastRunStr,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.New(apperror.NotFound, "job state not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job state: %w", err)
	}

	st.Active = active != 0
	st.FinalStatus = domain.FinalStatus(finalStatus)
	if lastRunStr != "" {
		st.LastRunAt, _ = time.Parse(time.RFC3339, lastRunStr)
	}
	return st, nil
}

func (r *Repository) Save(ctx context.Context, st *domain.JobState) error {
	const query = `UPDATE schedule_state
		SET cursor = ?, retries = ?, active = ?, final_status = ?, last_run_at = ?
		WHERE job_name = ?`

	res, err := r.db.ExecContext(ctx, query,
		st.Cursor, st.Retries, boolToInt(st.Active),
		string(st.FinalStatus), formatTime(st.LastRunAt),
		st.JobName,
	)
	if err != nil {
		return fmt.Errorf("save job state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "job state not found")
	}
	return nil
}

func (r *Repository) Seed(ctx context.Context, st *domain.JobState) error {
	const query = `INSERT OR IGNORE INTO schedule_state
		(job_name, cursor, retries, active, final_status, last_run_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		st.JobName, st.Cursor, st.Retries, boolToInt(st.Active),
		string(st.FinalStatus), formatTime(st.LastRunAt),
	)
	if err != nil {
		return fmt.Errorf("seed job state: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]domain.JobState, error) {
	const query = `SELECT job_name, cursor, retries, active, final_status, last_run_at
		FROM schedule_state ORDER BY job_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list job states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []domain.JobState
	for rows.Next() {
		var st domain.JobState
		var active int
		var finalStatus, lastRunStr string
		if err := rows.Scan(&st.JobName, &st.Cursor, &st.Retries, &active, &finalStatus, &lastRunStr); err != nil {
			return nil, fmt.Errorf("scan job state: %w", err)
		}
		st.Active = active != 0
		st.FinalStatus = domain.FinalStatus(finalStatus)
		if lastRunStr != "" {
			st.LastRunAt, _ = time.Parse(time.RFC3339, lastRunStr)
		}
		states = append(states, st)
	}

	return states, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
