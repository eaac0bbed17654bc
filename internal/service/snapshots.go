package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fortuna/felicitas/internal/cache"
	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/pipeline"
	"github.com/fortuna/felicitas/internal/publisher"
	"github.com/fortuna/felicitas/internal/snapshot"
	"github.com/fortuna/felicitas/internal/store"
	"github.com/fortuna/felicitas/internal/store/repository"
)

// Outcome summarizes one acquisition pass.
type Outcome struct {
	RunID    int
	Status   string
	Total    int
	Resolved int
	Snapshot *snapshot.Snapshot
	Reports  []pipeline.Report
	Changes  []snapshot.Change
	Duration time.Duration
}

// SnapshotConfig carries the service's tunables.
type SnapshotConfig struct {
	OutputPath  string
	CacheTTL    time.Duration
	HistoryKeep int
}

// Notifier receives every completed run, whatever triggered it. The
// websocket hub satisfies it.
type Notifier interface {
	OnSnapshot(snap *snapshot.Snapshot, changes []snapshot.Change)
}

// SnapshotService coordinates acquisition runs and snapshot access. The
// database, cache, and publisher are each optional: a missing collaborator
// degrades that concern instead of failing the run.
type SnapshotService struct {
	agg     *pipeline.Aggregator
	catalog []game.Spec
	cfg     SnapshotConfig

	snapRepo   *repository.SnapshotRepository
	resultRepo *repository.ResultRepository
	runRepo    *repository.RunRepository

	cache     *cache.RedisCache
	publisher *publisher.RedisStreamPublisher

	logger *log.Logger

	acquireMu sync.Mutex
	mu        sync.RWMutex
	last      *snapshot.Snapshot
	notifier  Notifier
}

// SetNotifier registers a listener for completed runs. Call before the
// first run.
func (s *SnapshotService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// NewSnapshotService creates the central snapshot service. db, rc, and pub
// may each be nil.
func NewSnapshotService(agg *pipeline.Aggregator, catalog []game.Spec, db *store.Database, rc *cache.RedisCache, pub *publisher.RedisStreamPublisher, cfg SnapshotConfig) *SnapshotService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.HistoryKeep <= 0 {
		cfg.HistoryKeep = 500
	}

	s := &SnapshotService{
		agg:       agg,
		catalog:   catalog,
		cfg:       cfg,
		cache:     rc,
		publisher: pub,
		logger:    log.New(log.Writer(), "[snapshots] ", log.LstdFlags),
	}
	if db != nil {
		s.snapRepo = repository.NewSnapshotRepository(db)
		s.resultRepo = repository.NewResultRepository(db)
		s.runRepo = repository.NewRunRepository(db)
	}
	return s
}

// Acquire runs the catalog, or the named subset of it, through the
// pipeline and publishes the result everywhere that is wired up. Only a
// bad game key fails the call; infrastructure trouble downgrades the run
// instead.
func (s *SnapshotService) Acquire(ctx context.Context, trigger string, keys []string) (*Outcome, error) {
	specs, err := s.specsFor(keys)
	if err != nil {
		return nil, err
	}

	s.acquireMu.Lock()
	defer s.acquireMu.Unlock()

	started := time.Now()
	previous := s.previous(ctx)

	runID := 0
	if s.runRepo != nil {
		id, err := s.runRepo.Create(ctx, trigger, len(specs))
		if err != nil {
			s.logger.Printf("⚠️  recording run failed: %v (continuing without history)", err)
		} else {
			runID = id
		}
	}

	snap, reports := s.agg.Run(ctx, specs)

	partial := len(keys) > 0
	if partial {
		snap = s.merge(previous, snap)
	}

	resolved := 0
	for _, rep := range reports {
		if rep.State == pipeline.StateResolved {
			resolved++
		}
	}

	status := store.RunStatusCompleted
	if resolved < len(specs) {
		status = store.RunStatusDegraded
	}

	changes := s.diff(previous, snap, reports)

	outcome := &Outcome{
		RunID:    runID,
		Status:   status,
		Total:    len(specs),
		Resolved: resolved,
		Snapshot: snap,
		Reports:  reports,
		Changes:  changes,
		Duration: time.Since(started),
	}

	s.persist(ctx, outcome)
	s.distribute(ctx, outcome)

	s.mu.Lock()
	s.last = snap
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.OnSnapshot(snap, changes)
	}

	s.logger.Printf("✓ Run complete: %d/%d games, %s (%s)",
		resolved, len(specs), snapshot.Summarize(changes), outcome.Duration.Round(time.Millisecond))

	return outcome, nil
}

// Latest returns the freshest snapshot: this process's last run, then the
// cache, then the history store.
func (s *SnapshotService) Latest(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last, nil
	}

	if s.cache != nil {
		if data, err := s.cache.GetLatestSnapshot(ctx); err == nil {
			return snapshot.Decode(data)
		}
	}

	if s.snapRepo != nil {
		row, err := s.snapRepo.GetLatest(ctx)
		if err != nil {
			return nil, err
		}
		return snapshot.Decode(row.Document)
	}

	return nil, fmt.Errorf("no snapshot available yet")
}

// History lists recent stored snapshots without their documents.
func (s *SnapshotService) History(ctx context.Context, limit int) ([]*store.Snapshot, error) {
	if s.snapRepo == nil {
		return nil, fmt.Errorf("history store disabled")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.snapRepo.List(ctx, limit)
}

// Snapshot returns one stored snapshot, decoded.
func (s *SnapshotService) Snapshot(ctx context.Context, snapshotID int) (*snapshot.Snapshot, error) {
	if s.snapRepo == nil {
		return nil, fmt.Errorf("history store disabled")
	}
	row, err := s.snapRepo.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return snapshot.Decode(row.Document)
}

func (s *SnapshotService) specsFor(keys []string) ([]game.Spec, error) {
	if len(keys) == 0 {
		return s.catalog, nil
	}

	var specs []game.Spec
	for _, key := range keys {
		spec, ok := game.ByKey(key)
		if !ok {
			return nil, fmt.Errorf("unknown game: %s", key)
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// previous fetches the best-known prior snapshot for diffing. Absence is
// normal on first run.
func (s *SnapshotService) previous(ctx context.Context) *snapshot.Snapshot {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last
	}

	if s.cache != nil {
		if data, err := s.cache.GetLatestSnapshot(ctx); err == nil {
			if snap, err := snapshot.Decode(data); err == nil {
				return snap
			}
		}
	}

	if s.snapRepo != nil {
		if row, err := s.snapRepo.GetLatest(ctx); err == nil {
			if snap, err := snapshot.Decode(row.Document); err == nil {
				return snap
			}
		}
	}

	return nil
}

// merge folds a partial run into the previous snapshot so a subset
// refresh never shrinks the published document. Attempted games that
// resolved replace their rows; everything else keeps its prior row.
func (s *SnapshotService) merge(previous, partial *snapshot.Snapshot) *snapshot.Snapshot {
	if previous == nil {
		return partial
	}

	fresh := make(map[string]snapshot.GameResult)
	for _, g := range partial.Games {
		fresh[g.Name] = g
	}

	var games []snapshot.GameResult
	for _, spec := range s.catalog {
		if g, ok := fresh[spec.Name]; ok {
			games = append(games, g)
			continue
		}
		if g, ok := previous.Game(spec.Name); ok {
			games = append(games, g)
		}
	}

	return &snapshot.Snapshot{LastUpdated: partial.LastUpdated, Games: games}
}

// diff compares against the previous snapshot. A partial run only
// reports movement for the games it actually attempted.
func (s *SnapshotService) diff(previous, snap *snapshot.Snapshot, reports []pipeline.Report) []snapshot.Change {
	changes := snapshot.Diff(previous, snap)
	if len(s.catalog) == len(reports) {
		return changes
	}

	attempted := make(map[string]bool)
	for _, rep := range reports {
		if spec, ok := game.ByKey(rep.Game); ok {
			attempted[spec.Name] = true
		}
	}

	var scoped []snapshot.Change
	for _, c := range changes {
		if attempted[c.Game] {
			scoped = append(scoped, c)
		}
	}
	return scoped
}

// persist writes the run's artifacts to the history store and the output
// file. Failures are logged, not returned; the snapshot itself is the
// product.
func (s *SnapshotService) persist(ctx context.Context, outcome *Outcome) {
	document, err := outcome.Snapshot.Encode()
	if err != nil {
		s.logger.Printf("❌ encoding snapshot: %v", err)
		return
	}

	if s.cfg.OutputPath != "" {
		if err := outcome.Snapshot.WriteFile(s.cfg.OutputPath); err != nil {
			s.logger.Printf("⚠️  writing %s: %v", s.cfg.OutputPath, err)
		}
	}

	if s.snapRepo == nil {
		return
	}

	lastUpdated, err := time.ParseInLocation(snapshot.TimestampLayout, outcome.Snapshot.LastUpdated, time.Local)
	if err != nil {
		lastUpdated = time.Now()
	}

	snapshotID, err := s.snapRepo.Insert(ctx, &store.Snapshot{
		LastUpdated: lastUpdated,
		Document:    document,
		GameCount:   len(outcome.Snapshot.Games),
	})
	if err != nil {
		s.logger.Printf("⚠️  storing snapshot: %v", err)
		return
	}

	if err := s.resultRepo.InsertBatch(ctx, snapshotID, s.resultRows(outcome)); err != nil {
		s.logger.Printf("⚠️  storing game results: %v", err)
	}

	if outcome.RunID > 0 {
		if err := s.runRepo.InsertAttempts(ctx, outcome.RunID, attemptRows(outcome.Reports)); err != nil {
			s.logger.Printf("⚠️  storing attempts: %v", err)
		}
		if err := s.runRepo.Finish(ctx, outcome.RunID, outcome.Status, outcome.Resolved, ""); err != nil {
			s.logger.Printf("⚠️  finishing run: %v", err)
		}
	}

	if pruned, err := s.snapRepo.Prune(ctx, s.cfg.HistoryKeep); err != nil {
		s.logger.Printf("⚠️  pruning history: %v", err)
	} else if pruned > 0 {
		s.logger.Printf("Pruned %d old snapshots", pruned)
	}
}

// distribute pushes the snapshot to the cache and the streams.
func (s *SnapshotService) distribute(ctx context.Context, outcome *Outcome) {
	document, err := outcome.Snapshot.Encode()
	if err != nil {
		return
	}

	if s.cache != nil {
		if err := s.cache.SetLatestSnapshot(ctx, document, s.cfg.CacheTTL); err != nil {
			s.logger.Printf("⚠️  caching snapshot: %v", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, outcome.Snapshot); err != nil {
			s.logger.Printf("⚠️  publishing snapshot: %v", err)
		}
		if err := s.publisher.PublishChanges(ctx, outcome.Changes); err != nil {
			s.logger.Printf("⚠️  publishing changes: %v", err)
		}
	}
}

// resultRows converts resolved reports into store rows, tagged with the
// winning source.
func (s *SnapshotService) resultRows(outcome *Outcome) []*store.GameResult {
	sources := make(map[string]string)
	keys := make(map[string]string)
	for _, rep := range outcome.Reports {
		if rep.State != pipeline.StateResolved {
			continue
		}
		if spec, ok := game.ByKey(rep.Game); ok {
			sources[spec.Name] = rep.SourceID
			keys[spec.Name] = spec.Key
		}
	}

	var rows []*store.GameResult
	for _, g := range outcome.Snapshot.Games {
		sourceID, ok := sources[g.Name]
		if !ok {
			// Carried over from the previous snapshot by a partial merge.
			continue
		}

		row := &store.GameResult{
			GameKey:     keys[g.Name],
			Name:        g.Name,
			Jackpot:     g.Jackpot,
			Price:       g.Price,
			NextDraw:    g.NextDraw,
			Currency:    g.Currency,
			OddsJackpot: g.OddsJackpot,
			SourceID:    sourceID,
		}
		if g.BaseRTP != nil {
			row.BaseRTP = sql.NullFloat64{Float64: *g.BaseRTP, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

func attemptRows(reports []pipeline.Report) []*store.RunAttempt {
	var rows []*store.RunAttempt
	for _, rep := range reports {
		for _, att := range rep.Attempts {
			row := &store.RunAttempt{
				GameKey:   rep.Game,
				SourceID:  att.SourceID,
				Provider:  att.Provider,
				Outcome:   store.AttemptOutcomeOK,
				ElapsedMs: int(att.Elapsed.Milliseconds()),
			}
			if att.Err != nil {
				row.Outcome = string(att.Kind)
				row.Detail = sql.NullString{String: att.Err.Error(), Valid: true}
			}
			rows = append(rows, row)
		}
	}
	return rows
}
