package refresh

import "time"

// Scope enumerates the supported refresh job variants.
type Scope string

const (
	// ScopeFull re-acquires the whole catalog.
	ScopeFull Scope = "full"

	// ScopePartial re-acquires a named subset of games.
	ScopePartial Scope = "partial"
)

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job tracks one refresh request through its lifecycle. Jobs live in
// memory only; the durable record of executed work is the runs table.
type Job struct {
	JobID      string     `json:"job_id"`
	Scope      Scope      `json:"scope"`
	GameKeys   []string   `json:"game_keys,omitempty"`
	Status     JobStatus  `json:"status"`
	Message    string     `json:"message,omitempty"`
	RunID      int        `json:"run_id,omitempty"`
	Total      int        `json:"games_total"`
	Resolved   int        `json:"games_resolved"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Copy returns a copy to prevent external mutation.
func (j *Job) Copy() *Job {
	if j == nil {
		return nil
	}
	cpy := *j
	cpy.GameKeys = append([]string(nil), j.GameKeys...)
	return &cpy
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Request represents a refresh invocation request.
type Request struct {
	GameKeys []string
}

// DeriveScope infers the scope from the populated fields.
func (r Request) DeriveScope() Scope {
	if len(r.GameKeys) > 0 {
		return ScopePartial
	}
	return ScopeFull
}

// Reporter receives lifecycle callbacks from the worker.
type Reporter interface {
	OnJobQueued(job *Job)
	OnJobStart(job *Job)
	OnJobComplete(job *Job)
	OnJobError(job *Job, err error)
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job   `json:"active_job,omitempty"`
	History   []*Job `json:"recent_jobs,omitempty"`
}
