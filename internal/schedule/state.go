package schedule

import "time"

// Job names match the rows seeded at bootstrap; each job mutates only its
// own row.
const (
	JobBackfill = "backfill-all"
	JobRecent   = "sync-recent"
)

type FinalStatus string

const (
	FinalNone      FinalStatus = ""
	FinalCompleted FinalStatus = "completed"
	FinalFailed    FinalStatus = "failed"
)

// JobState is the durable cursor/retry record for one sync job. Cursor is
// the page fetched next; Retries counts consecutive failures and resets on
// any success. Active and FinalStatus only matter for the backfill job:
// once Active is false the job never runs again.
type JobState struct {
	JobName     string      `json:"jobName"`
	Cursor      int         `json:"cursor"`
	Retries     int         `json:"retries"`
	Active      bool        `json:"active"`
	FinalStatus FinalStatus `json:"finalStatus,omitempty"`
	LastRunAt   time.Time   `json:"lastRunAt"`
}

// SeedBackfill is the bootstrap row for the backfill job.
func SeedBackfill() JobState {
	return JobState{JobName: JobBackfill, Cursor: 1, Active: true}
}

// SeedRecent is the bootstrap row for the recurring job. The recurring job
// has no terminal state, so Active is unused; it is kept true so the row
// reads sensibly from the operator API.
func SeedRecent() JobState {
	return JobState{JobName: JobRecent, Cursor: 1, Active: true}
}
