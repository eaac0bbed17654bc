package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/felicitas/internal/store"
)

// RunRepository handles acquisition run bookkeeping
type RunRepository struct {
	db *store.Database
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *store.Database) *RunRepository {
	return &RunRepository{db: db}
}

// Create opens a run in running state and returns its ID
func (r *RunRepository) Create(ctx context.Context, triggeredBy string, gamesTotal int) (int, error) {
	query := `
		INSERT INTO runs (triggered_by, status, games_total)
		VALUES ($1, $2, $3)
		RETURNING run_id
	`

	var id int
	err := r.db.DB().QueryRowContext(ctx, query, triggeredBy, store.RunStatusRunning, gamesTotal).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating run: %w", err)
	}

	return id, nil
}

// Finish closes a run with its final status and resolution count
func (r *RunRepository) Finish(ctx context.Context, runID int, status string, gamesResolved int, errText string) error {
	query := `
		UPDATE runs
		SET status = $2, games_resolved = $3, error = NULLIF($4, ''), finished_at = NOW()
		WHERE run_id = $1
	`

	_, err := r.db.DB().ExecContext(ctx, query, runID, status, gamesResolved, errText)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", runID, err)
	}

	return nil
}

// InsertAttempts stores every source try of a run
func (r *RunRepository) InsertAttempts(ctx context.Context, runID int, attempts []*store.RunAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO run_attempts (run_id, game_key, source_id, provider, outcome, detail, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, attempt := range attempts {
		_, err := stmt.ExecContext(ctx,
			runID, attempt.GameKey, attempt.SourceID, attempt.Provider,
			attempt.Outcome, attempt.Detail, attempt.ElapsedMs,
		)
		if err != nil {
			return fmt.Errorf("inserting attempt %s/%s: %w", attempt.GameKey, attempt.SourceID, err)
		}
	}

	return tx.Commit()
}

// GetByID finds a run by ID
func (r *RunRepository) GetByID(ctx context.Context, runID int) (*store.Run, error) {
	query := `
		SELECT run_id, triggered_by, status, games_total, games_resolved,
			error, started_at, finished_at
		FROM runs
		WHERE run_id = $1
	`

	run := &store.Run{}
	err := r.db.DB().QueryRowContext(ctx, query, runID).Scan(
		&run.RunID, &run.TriggeredBy, &run.Status, &run.GamesTotal,
		&run.GamesResolved, &run.Error, &run.StartedAt, &run.FinishedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %d", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	return run, nil
}

// ListRecent returns recent runs, newest first
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*store.Run, error) {
	query := `
		SELECT run_id, triggered_by, status, games_total, games_resolved,
			error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.Run
	for rows.Next() {
		run := &store.Run{}
		err := rows.Scan(
			&run.RunID, &run.TriggeredBy, &run.Status, &run.GamesTotal,
			&run.GamesResolved, &run.Error, &run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SourceStats aggregates attempt outcomes per source since a cutoff
func (r *RunRepository) SourceStats(ctx context.Context, since time.Time) ([]*store.SourceStat, error) {
	query := `
		SELECT source_id, provider,
			COUNT(*) AS attempts,
			COUNT(*) FILTER (WHERE outcome = 'ok') AS successes,
			COALESCE(AVG(elapsed_ms), 0)::float AS avg_elapsed_ms,
			MAX(created_at) FILTER (WHERE outcome = 'ok') AS last_success
		FROM run_attempts
		WHERE created_at >= $1
		GROUP BY source_id, provider
		ORDER BY provider, source_id
	`

	rows, err := r.db.DB().QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("querying source stats: %w", err)
	}
	defer rows.Close()

	var stats []*store.SourceStat
	for rows.Next() {
		stat := &store.SourceStat{}
		err := rows.Scan(
			&stat.SourceID, &stat.Provider, &stat.Attempts,
			&stat.Successes, &stat.AvgElapsed, &stat.LastSuccess,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}
