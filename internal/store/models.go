package store

import (
	"database/sql"
	"time"
)

// Snapshot is one published snapshot document, stored whole as JSONB
// alongside the per-game rows that index into it.
type Snapshot struct {
	SnapshotID  int       `json:"snapshot_id" db:"snapshot_id"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	Document    []byte    `json:"document" db:"document"`
	GameCount   int       `json:"game_count" db:"game_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GameResult is one game's row within a stored snapshot.
type GameResult struct {
	ResultID    int             `json:"result_id" db:"result_id"`
	SnapshotID  int             `json:"snapshot_id" db:"snapshot_id"`
	GameKey     string          `json:"game_key" db:"game_key"`
	Name        string          `json:"name" db:"name"`
	Jackpot     float64         `json:"jackpot" db:"jackpot"`
	Price       float64         `json:"price" db:"price"`
	NextDraw    string          `json:"next_draw" db:"next_draw"`
	Currency    string          `json:"currency" db:"currency"`
	OddsJackpot int64           `json:"odds_jackpot" db:"odds_jackpot"`
	BaseRTP     sql.NullFloat64 `json:"base_rtp,omitempty" db:"base_rtp"`
	SourceID    string          `json:"source_id" db:"source_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`

	// Not in game_results - joined from snapshots for history queries
	SnapshotTime time.Time `json:"snapshot_time,omitempty" db:"-"`
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusDegraded  = "degraded"
	RunStatusFailed    = "failed"
)

// Run triggers.
const (
	RunTriggerScheduled = "scheduled"
	RunTriggerManual    = "manual"
	RunTriggerStartup   = "startup"
)

// Run is one acquisition cycle across the whole catalog.
type Run struct {
	RunID         int            `json:"run_id" db:"run_id"`
	TriggeredBy   string         `json:"triggered_by" db:"triggered_by"`
	Status        string         `json:"status" db:"status"`
	GamesTotal    int            `json:"games_total" db:"games_total"`
	GamesResolved int            `json:"games_resolved" db:"games_resolved"`
	Error         sql.NullString `json:"error,omitempty" db:"error"`
	StartedAt     time.Time      `json:"started_at" db:"started_at"`
	FinishedAt    sql.NullTime   `json:"finished_at,omitempty" db:"finished_at"`
}

// AttemptOutcomeOK marks a winning source attempt; failed attempts carry
// the retrieval error kind instead.
const AttemptOutcomeOK = "ok"

// RunAttempt is one source try within a run, kept for source health
// reporting.
type RunAttempt struct {
	AttemptID int            `json:"attempt_id" db:"attempt_id"`
	RunID     int            `json:"run_id" db:"run_id"`
	GameKey   string         `json:"game_key" db:"game_key"`
	SourceID  string         `json:"source_id" db:"source_id"`
	Provider  string         `json:"provider" db:"provider"`
	Outcome   string         `json:"outcome" db:"outcome"`
	Detail    sql.NullString `json:"detail,omitempty" db:"detail"`
	ElapsedMs int            `json:"elapsed_ms" db:"elapsed_ms"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// SourceStat aggregates attempts per source over a window.
type SourceStat struct {
	SourceID    string       `json:"source_id" db:"source_id"`
	Provider    string       `json:"provider" db:"provider"`
	Attempts    int          `json:"attempts" db:"attempts"`
	Successes   int          `json:"successes" db:"successes"`
	AvgElapsed  float64      `json:"avg_elapsed_ms" db:"avg_elapsed_ms"`
	LastSuccess sql.NullTime `json:"last_success,omitempty" db:"last_success"`
}
