package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fortuna/felicitas/internal/service"
	"github.com/fortuna/felicitas/internal/store"
)

// Acquirer runs a full acquisition pass. Satisfied by service.SnapshotService.
type Acquirer interface {
	Acquire(ctx context.Context, trigger string, keys []string) (*service.Outcome, error)
}

// Config holds scheduler configuration
type Config struct {
	Interval             time.Duration // Default: 15m
	RunOnStart           bool          // Default: true
	MaxConsecutiveErrors int           // Default: 5
	RetryDelay           time.Duration // Default: 2m (applied after repeated failures)
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:             15 * time.Minute,
		RunOnStart:           true,
		MaxConsecutiveErrors: 5,
		RetryDelay:           2 * time.Minute,
	}
}

// Orchestrator drives periodic snapshot acquisition
type Orchestrator struct {
	acquirer Acquirer
	config   *Config
	logger   *log.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	lastRun   time.Time
	lastError string
	errStreak int
	runs      int
}

// NewOrchestrator creates a new scheduler orchestrator
func NewOrchestrator(acquirer Acquirer, config *Config, logger *log.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[scheduler] ", log.LstdFlags)
	}
	return &Orchestrator{
		acquirer: acquirer,
		config:   config,
		logger:   logger,
	}
}

// Start begins the acquisition loop. Non-blocking.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.mu.Unlock()

	o.logger.Printf("→ Scheduled acquisition started (interval: %v, run on start: %v)",
		o.config.Interval, o.config.RunOnStart)

	o.wg.Add(1)
	go o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()

	if o.config.RunOnStart {
		o.acquire(ctx, store.RunTriggerStartup)
	}

	ticker := time.NewTicker(o.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Println("→ Scheduled acquisition stopped")
			return
		case <-ticker.C:
			o.acquire(ctx, store.RunTriggerScheduled)
		}
	}
}

// acquire performs one acquisition pass and tracks consecutive failures.
func (o *Orchestrator) acquire(ctx context.Context, trigger string) {
	outcome, err := o.acquirer.Acquire(ctx, trigger, nil)

	o.mu.Lock()
	o.runs++
	o.lastRun = time.Now()
	o.mu.Unlock()

	if err != nil {
		o.mu.Lock()
		o.errStreak++
		o.lastError = err.Error()
		streak := o.errStreak
		o.mu.Unlock()

		o.logger.Printf("❌ Acquisition failed: %v (consecutive errors: %d/%d)",
			err, streak, o.config.MaxConsecutiveErrors)

		// Back off after repeated failures so a broken upstream is not hammered
		if streak >= o.config.MaxConsecutiveErrors {
			o.logger.Printf("⚠️  High error rate detected. Pausing %v before next attempt...", o.config.RetryDelay)
			select {
			case <-ctx.Done():
			case <-time.After(o.config.RetryDelay):
			}
		}
		return
	}

	o.mu.Lock()
	o.errStreak = 0
	o.lastError = ""
	o.mu.Unlock()

	if outcome.Status == store.RunStatusDegraded {
		o.logger.Printf("⚠️  Acquisition degraded: %d/%d games resolved", outcome.Resolved, outcome.Total)
	}
}

// Stop gracefully stops the scheduler and waits for an in-flight run.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	o.logger.Println("Stopping scheduler...")
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
	o.logger.Println("✓ Scheduler stopped")
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := map[string]interface{}{
		"running":      o.running,
		"interval":     o.config.Interval.String(),
		"run_on_start": o.config.RunOnStart,
		"runs":         o.runs,
		"error_streak": o.errStreak,
	}
	if !o.lastRun.IsZero() {
		status["last_run"] = o.lastRun.Format("2006-01-02 15:04:05")
	}
	if o.lastError != "" {
		status["last_error"] = o.lastError
	}
	return status
}
