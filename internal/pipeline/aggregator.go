package pipeline

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/snapshot"
)

// Aggregator runs every catalog game through its chain and assembles the
// canonical snapshot. A run never fails as a whole: games that exhaust
// their chains are omitted from the document and surfaced in the reports.
type Aggregator struct {
	runner *Runner
	clock  func() time.Time
	logger *log.Logger
}

func NewAggregator(runner *Runner) *Aggregator {
	return &Aggregator{
		runner: runner,
		clock:  time.Now,
		logger: log.New(os.Stdout, "[aggregate] ", log.LstdFlags),
	}
}

// Run walks the specs in the order given, which is the catalog's fixed
// provider-grouped order, and stamps the snapshot with the wall-clock
// time of assembly.
func (a *Aggregator) Run(ctx context.Context, specs []game.Spec) (*snapshot.Snapshot, []Report) {
	a.logger.Printf("Acquiring %d games...", len(specs))

	var games []snapshot.GameResult
	reports := make([]Report, 0, len(specs))

	for _, spec := range specs {
		report := a.runner.Resolve(ctx, spec)
		reports = append(reports, report)
		if report.State == StateResolved {
			games = append(games, *report.Result)
		}
	}

	snap := snapshot.New(games, a.clock())
	a.logger.Printf("✓ Acquisition complete: %d/%d games resolved", len(games), len(specs))
	return snap, reports
}

// Exhausted lists the games that resolved nothing in a run.
func Exhausted(reports []Report) []string {
	var failed []string
	for _, rep := range reports {
		if rep.State == StateExhausted {
			failed = append(failed, rep.Game)
		}
	}
	return failed
}

// AttemptCount totals source tries across a run, for run bookkeeping.
func AttemptCount(reports []Report) int {
	total := 0
	for _, rep := range reports {
		total += len(rep.Attempts)
	}
	return total
}
