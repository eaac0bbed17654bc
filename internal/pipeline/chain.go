package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/fortuna/felicitas/internal/extract"
	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/normalize"
	"github.com/fortuna/felicitas/internal/snapshot"
)

// State tracks a game's progress through its source chain.
type State string

const (
	StatePending   State = "pending"
	StateTrying    State = "trying"
	StateResolved  State = "resolved"
	StateExhausted State = "exhausted"
)

// Fetcher retrieves one raw payload. The plain HTTP client and the
// headless renderer both satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Payload, error)
}

// Waiter spaces consecutive requests to the same provider.
type Waiter interface {
	Wait(ctx context.Context, provider string) error
}

// Attempt records one source try, successful or not.
type Attempt struct {
	SourceID string
	Provider string
	Kind     fetch.ErrKind // empty on the winning attempt
	Err      error
	Elapsed  time.Duration
}

// Report is the outcome of walking one game's chain.
type Report struct {
	Game     string
	State    State
	SourceID string // winning source, empty when exhausted
	Result   *snapshot.GameResult
	Attempts []Attempt
}

// Runner walks fallback chains source by source. The first source that
// yields a plausible jackpot wins; every other failure mode moves the
// walk along to the next source.
type Runner struct {
	plain    Fetcher
	rendered Fetcher // nil when the headless browser is unavailable
	pacer    Waiter
	now      func() time.Time
	logger   *log.Logger
}

// NewRunner creates a chain runner. rendered may be nil; sources that
// need a rendered page then fail over like any other source error.
func NewRunner(plain, rendered Fetcher, pacer Waiter) *Runner {
	return &Runner{
		plain:    plain,
		rendered: rendered,
		pacer:    pacer,
		now:      time.Now,
		logger:   log.New(os.Stdout, "[chain] ", log.LstdFlags),
	}
}

// Resolve tries spec's sources in order until one produces a jackpot
// above the game's plausibility floor. A source that responds but cannot
// name a draw date still wins; only the jackpot is mandatory.
func (r *Runner) Resolve(ctx context.Context, spec game.Spec) Report {
	report := Report{Game: spec.Key, State: StatePending}

	for i, source := range spec.Chain {
		report.State = StateTrying
		started := time.Now()

		cand, err := r.try(ctx, spec, source)
		attempt := Attempt{
			SourceID: source.ID,
			Provider: source.Provider,
			Elapsed:  time.Since(started),
		}
		if err != nil {
			attempt.Kind = fetch.KindOf(err)
			attempt.Err = err
			report.Attempts = append(report.Attempts, attempt)
			if i+1 < len(spec.Chain) {
				r.logger.Printf("⚠️  %s: %s failed: %v (falling back)", spec.Key, source.ID, err)
			} else {
				r.logger.Printf("⚠️  %s: %s failed: %v", spec.Key, source.ID, err)
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		report.Attempts = append(report.Attempts, attempt)
		report.State = StateResolved
		report.SourceID = source.ID
		report.Result = r.assemble(spec, cand)
		r.logger.Printf("✓ %s: %s resolved %s%.0f (next draw %s)",
			spec.Key, source.ID, spec.Currency, report.Result.Jackpot, report.Result.NextDraw)
		return report
	}

	report.State = StateExhausted
	r.logger.Printf("❌ %s: all %d sources failed", spec.Key, len(spec.Chain))
	return report
}

func (r *Runner) try(ctx context.Context, spec game.Spec, source game.Source) (*extract.Candidate, error) {
	if err := r.pacer.Wait(ctx, source.Provider); err != nil {
		return nil, fetch.NewTransport(err)
	}

	fetcher := r.plain
	if source.Render {
		if r.rendered == nil {
			return nil, fetch.NewTransport(errors.New("headless renderer unavailable"))
		}
		fetcher = r.rendered
	}

	payload, err := fetcher.Fetch(ctx, fetch.Request{
		URL:      source.URL,
		Provider: source.Provider,
		Timeout:  source.Timeout,
	})
	if err != nil {
		return nil, err
	}

	cand, err := r.parse(payload, spec, source)
	if err != nil {
		return nil, err
	}
	cand.SourceID = source.ID

	if cand.Jackpot == nil {
		return nil, fetch.NewUnparseable("source %s yielded no jackpot", source.ID)
	}
	if *cand.Jackpot <= spec.MinJackpot {
		return nil, fetch.NewBelowThreshold(*cand.Jackpot, spec.MinJackpot)
	}
	return cand, nil
}

func (r *Runner) parse(payload *fetch.Payload, spec game.Spec, source game.Source) (*extract.Candidate, error) {
	switch source.Kind {
	case game.PayloadJSON:
		return extract.ParseStructured(payload, source.Structured, r.now())
	case game.PayloadXML:
		flat, err := extract.FlattenXMLFeed(payload)
		if err != nil {
			return nil, err
		}
		return extract.ParseHeuristic(flat, source.Heuristic, spec.MinJackpot, r.now())
	default:
		return extract.ParseHeuristic(payload, source.Heuristic, spec.MinJackpot, r.now())
	}
}

func (r *Runner) assemble(spec game.Spec, cand *extract.Candidate) *snapshot.GameResult {
	price := spec.Price
	if cand.Price != nil {
		price = *cand.Price
	}

	return &snapshot.GameResult{
		Name:        spec.Name,
		Jackpot:     *cand.Jackpot,
		Price:       price,
		NextDraw:    r.nextDraw(spec, cand),
		Currency:    spec.Currency,
		OddsJackpot: spec.OddsJackpot,
		BaseRTP:     spec.BaseRTP,
	}
}

// nextDraw prefers the date the source itself published. When the source
// had none, the game's weekly schedule supplies the next occurrence, and
// only a game with no schedule at all falls back to the sentinel.
func (r *Runner) nextDraw(spec game.Spec, cand *extract.Candidate) string {
	if cand.NextDraw != nil {
		return normalize.FormatDate(*cand.NextDraw)
	}
	if next, ok := normalize.NextDrawFromSchedule(r.now(), spec.Schedule); ok {
		return normalize.FormatDate(next)
	}
	return normalize.Unresolved
}
