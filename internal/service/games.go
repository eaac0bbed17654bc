package service

import (
	"context"
	"fmt"

	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/snapshot"
	"github.com/fortuna/felicitas/internal/store"
	"github.com/fortuna/felicitas/internal/store/repository"
)

// GameService answers catalog and per-game questions.
type GameService struct {
	catalog    []game.Spec
	snapshots  *SnapshotService
	resultRepo *repository.ResultRepository
}

// NewGameService creates a new game service. db may be nil, which
// disables history lookups.
func NewGameService(catalog []game.Spec, snapshots *SnapshotService, db *store.Database) *GameService {
	s := &GameService{
		catalog:   catalog,
		snapshots: snapshots,
	}
	if db != nil {
		s.resultRepo = repository.NewResultRepository(db)
	}
	return s
}

// ListGames describes every catalog game in catalog order.
func (s *GameService) ListGames() []GameInfo {
	infos := make([]GameInfo, 0, len(s.catalog))
	for _, spec := range s.catalog {
		infos = append(infos, describeGame(spec))
	}
	return infos
}

// GetGame returns one game's catalog entry, its latest resolved values,
// and recent jackpot history when the store is available.
func (s *GameService) GetGame(ctx context.Context, key string) (*GameDetail, error) {
	spec, ok := game.ByKey(key)
	if !ok {
		return nil, fmt.Errorf("game not found: %s", key)
	}

	detail := &GameDetail{GameInfo: describeGame(*spec)}

	if snap, err := s.snapshots.Latest(ctx); err == nil {
		if result, ok := snap.Game(spec.Name); ok {
			detail.Latest = &result
		}
	}

	if s.resultRepo != nil {
		history, err := s.resultRepo.GetHistory(ctx, spec.Key, 30)
		if err != nil {
			return nil, fmt.Errorf("fetching history for %s: %w", key, err)
		}
		detail.History = history
	}

	return detail, nil
}

func describeGame(spec game.Spec) GameInfo {
	schedule := make([]string, 0, len(spec.Schedule))
	for _, day := range spec.Schedule {
		schedule = append(schedule, day.String())
	}

	sources := make([]SourceInfo, 0, len(spec.Chain))
	for _, src := range spec.Chain {
		sources = append(sources, SourceInfo{
			ID:       src.ID,
			Provider: src.Provider,
			Kind:     string(src.Kind),
			Rendered: src.Render,
		})
	}

	return GameInfo{
		Key:         spec.Key,
		Name:        spec.Name,
		Provider:    spec.Provider,
		Currency:    spec.Currency,
		Price:       spec.Price,
		OddsJackpot: spec.OddsJackpot,
		BaseRTP:     spec.BaseRTP,
		Schedule:    schedule,
		Sources:     sources,
	}
}

// GameInfo is a catalog entry as served by the API.
type GameInfo struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Provider    string       `json:"provider"`
	Currency    string       `json:"currency"`
	Price       float64      `json:"price"`
	OddsJackpot int64        `json:"odds_jackpot"`
	BaseRTP     *float64     `json:"base_rtp"`
	Schedule    []string     `json:"schedule"`
	Sources     []SourceInfo `json:"sources"`
}

// SourceInfo describes one chain entry without its extraction rules.
type SourceInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Rendered bool   `json:"rendered,omitempty"`
}

// GameDetail adds current and historical values to a catalog entry.
type GameDetail struct {
	GameInfo
	Latest  *snapshot.GameResult `json:"latest,omitempty"`
	History []*store.GameResult  `json:"history,omitempty"`
}
