package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/felicitas/internal/store"
	"github.com/fortuna/felicitas/internal/store/repository"
)

// StatsService surfaces source health and run history.
type StatsService struct {
	runRepo *repository.RunRepository
}

// NewStatsService creates a new stats service. db may be nil.
func NewStatsService(db *store.Database) *StatsService {
	s := &StatsService{}
	if db != nil {
		s.runRepo = repository.NewRunRepository(db)
	}
	return s
}

// SourceStats aggregates per-source attempt outcomes over the window.
func (s *StatsService) SourceStats(ctx context.Context, window time.Duration) (*SourceReport, error) {
	if s.runRepo == nil {
		return nil, fmt.Errorf("history store disabled")
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}

	stats, err := s.runRepo.SourceStats(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("fetching source stats: %w", err)
	}

	report := &SourceReport{
		Window:  window.String(),
		Sources: make([]*SourceHealth, 0, len(stats)),
	}
	for _, stat := range stats {
		health := &SourceHealth{Stat: stat}
		if stat.Attempts > 0 {
			health.SuccessRate = float64(stat.Successes) / float64(stat.Attempts)
		}
		report.Sources = append(report.Sources, health)
	}

	return report, nil
}

// RecentRuns lists recent acquisition runs, newest first.
func (s *StatsService) RecentRuns(ctx context.Context, limit int) ([]*store.Run, error) {
	if s.runRepo == nil {
		return nil, fmt.Errorf("history store disabled")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := s.runRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}
	return runs, nil
}

// SourceReport is the source health response.
type SourceReport struct {
	Window  string          `json:"window"`
	Sources []*SourceHealth `json:"sources"`
}

// SourceHealth combines raw counts with a derived success rate.
type SourceHealth struct {
	Stat        *store.SourceStat `json:"stat"`
	SuccessRate float64           `json:"success_rate"`
}
