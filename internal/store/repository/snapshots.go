package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/felicitas/internal/store"
)

// SnapshotRepository handles snapshot document access
type SnapshotRepository struct {
	db *store.Database
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *store.Database) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert stores a snapshot document and returns its ID
func (r *SnapshotRepository) Insert(ctx context.Context, snap *store.Snapshot) (int, error) {
	query := `
		INSERT INTO snapshots (last_updated, document, game_count)
		VALUES ($1, $2, $3)
		RETURNING snapshot_id
	`

	var id int
	err := r.db.DB().QueryRowContext(ctx, query,
		snap.LastUpdated, snap.Document, snap.GameCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting snapshot: %w", err)
	}

	return id, nil
}

// GetLatest returns the most recently published snapshot
func (r *SnapshotRepository) GetLatest(ctx context.Context) (*store.Snapshot, error) {
	query := `
		SELECT snapshot_id, last_updated, document, game_count, created_at
		FROM snapshots
		ORDER BY last_updated DESC
		LIMIT 1
	`

	snap := &store.Snapshot{}
	err := r.db.DB().QueryRowContext(ctx, query).Scan(
		&snap.SnapshotID, &snap.LastUpdated, &snap.Document,
		&snap.GameCount, &snap.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no snapshots stored yet")
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	return snap, nil
}

// GetByID finds a snapshot by ID
func (r *SnapshotRepository) GetByID(ctx context.Context, snapshotID int) (*store.Snapshot, error) {
	query := `
		SELECT snapshot_id, last_updated, document, game_count, created_at
		FROM snapshots
		WHERE snapshot_id = $1
	`

	snap := &store.Snapshot{}
	err := r.db.DB().QueryRowContext(ctx, query, snapshotID).Scan(
		&snap.SnapshotID, &snap.LastUpdated, &snap.Document,
		&snap.GameCount, &snap.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot not found: %d", snapshotID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	return snap, nil
}

// List returns recent snapshots, newest first, without their documents
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]*store.Snapshot, error) {
	query := `
		SELECT snapshot_id, last_updated, '{}'::jsonb, game_count, created_at
		FROM snapshots
		ORDER BY last_updated DESC
		LIMIT $1
	`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*store.Snapshot
	for rows.Next() {
		snap := &store.Snapshot{}
		err := rows.Scan(
			&snap.SnapshotID, &snap.LastUpdated, &snap.Document,
			&snap.GameCount, &snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// Prune deletes all but the newest keep snapshots and returns how many
// rows went away. Game result rows cascade.
func (r *SnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM snapshots
		WHERE snapshot_id NOT IN (
			SELECT snapshot_id FROM snapshots
			ORDER BY last_updated DESC
			LIMIT $1
		)
	`

	res, err := r.db.DB().ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}

	return res.RowsAffected()
}
