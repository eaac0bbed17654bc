package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/felicitas/internal/store"
)

// ResultRepository handles per-game snapshot rows
type ResultRepository struct {
	db *store.Database
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *store.Database) *ResultRepository {
	return &ResultRepository{db: db}
}

// InsertBatch stores every game row of a snapshot in one transaction
func (r *ResultRepository) InsertBatch(ctx context.Context, snapshotID int, results []*store.GameResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO game_results (
			snapshot_id, game_key, name, jackpot, price, next_draw,
			currency, odds_jackpot, base_rtp, source_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, result := range results {
		_, err := stmt.ExecContext(ctx,
			snapshotID, result.GameKey, result.Name, result.Jackpot,
			result.Price, result.NextDraw, result.Currency,
			result.OddsJackpot, result.BaseRTP, result.SourceID,
		)
		if err != nil {
			return fmt.Errorf("inserting result for %s: %w", result.GameKey, err)
		}
	}

	return tx.Commit()
}

// GetBySnapshot returns every game row of one snapshot
func (r *ResultRepository) GetBySnapshot(ctx context.Context, snapshotID int) ([]*store.GameResult, error) {
	query := `
		SELECT result_id, snapshot_id, game_key, name, jackpot, price,
			next_draw, currency, odds_jackpot, base_rtp, source_id, created_at
		FROM game_results
		WHERE snapshot_id = $1
		ORDER BY result_id
	`

	rows, err := r.db.DB().QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []*store.GameResult
	for rows.Next() {
		result := &store.GameResult{}
		err := rows.Scan(
			&result.ResultID, &result.SnapshotID, &result.GameKey,
			&result.Name, &result.Jackpot, &result.Price, &result.NextDraw,
			&result.Currency, &result.OddsJackpot, &result.BaseRTP,
			&result.SourceID, &result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// GetHistory returns a game's rows across recent snapshots, newest first
func (r *ResultRepository) GetHistory(ctx context.Context, gameKey string, limit int) ([]*store.GameResult, error) {
	query := `
		SELECT gr.result_id, gr.snapshot_id, gr.game_key, gr.name, gr.jackpot,
			gr.price, gr.next_draw, gr.currency, gr.odds_jackpot, gr.base_rtp,
			gr.source_id, gr.created_at, s.last_updated
		FROM game_results gr
		JOIN snapshots s ON s.snapshot_id = gr.snapshot_id
		WHERE gr.game_key = $1
		ORDER BY s.last_updated DESC
		LIMIT $2
	`

	rows, err := r.db.DB().QueryContext(ctx, query, gameKey, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", gameKey, err)
	}
	defer rows.Close()

	var results []*store.GameResult
	for rows.Next() {
		result := &store.GameResult{}
		err := rows.Scan(
			&result.ResultID, &result.SnapshotID, &result.GameKey,
			&result.Name, &result.Jackpot, &result.Price, &result.NextDraw,
			&result.Currency, &result.OddsJackpot, &result.BaseRTP,
			&result.SourceID, &result.CreatedAt, &result.SnapshotTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
