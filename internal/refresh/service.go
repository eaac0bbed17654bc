package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/service"
	"github.com/fortuna/felicitas/internal/store"
)

// Acquirer runs one acquisition pass over the catalog or a subset of it.
// The snapshot service satisfies this.
type Acquirer interface {
	Acquire(ctx context.Context, trigger string, keys []string) (*service.Outcome, error)
}

// Service coordinates refresh jobs: queueing, execution, and status
// reporting. One worker executes jobs serially so concurrent refresh
// requests never race the providers.
type Service struct {
	acquirer Acquirer
	reporter Reporter

	queueSize    int
	historyLimit int

	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
	queue chan string
	seq   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(acquirer Acquirer, logger *log.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = log.New(log.Writer(), "[refresh] ", log.LstdFlags)
	}

	return &Service{
		acquirer:     acquirer,
		queueSize:    8,
		historyLimit: 20,
		jobs:         make(map[string]*Job),
		queue:        make(chan string, 8),
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
}

// SetReporter attaches a lifecycle listener, e.g. the websocket hub.
func (s *Service) SetReporter(r Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporter = r
}

// Start launches the background worker loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops the worker and cancels anything still queued.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Status == JobStatusQueued {
			job.Status = JobStatusCancelled
			job.Message = "Cancelled at shutdown"
		}
	}
	return nil
}

// Enqueue creates a new job from the provided request.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	for _, key := range req.GameKeys {
		if _, ok := game.ByKey(key); !ok {
			return nil, fmt.Errorf("unknown game: %s", key)
		}
	}

	s.mu.Lock()
	s.seq++
	job := &Job{
		JobID:      fmt.Sprintf("refresh-%s-%d", time.Now().Format("20060102-150405"), s.seq),
		Scope:      req.DeriveScope(),
		GameKeys:   append([]string(nil), req.GameKeys...),
		Status:     JobStatusQueued,
		Message:    "Queued",
		EnqueuedAt: time.Now(),
	}
	s.jobs[job.JobID] = job
	s.order = append(s.order, job.JobID)
	s.trimHistoryLocked()
	reporter := s.reporter
	s.mu.Unlock()

	select {
	case s.queue <- job.JobID:
	default:
		s.mu.Lock()
		job.Status = JobStatusFailed
		job.Error = "refresh queue full"
		s.mu.Unlock()
		return nil, fmt.Errorf("refresh queue full")
	}

	if reporter != nil {
		reporter.OnJobQueued(job.Copy())
	}

	return job.Copy(), nil
}

// Get returns a job by ID.
func (s *Service) Get(jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("refresh job not found: %s", jobID)
	}
	return job.Copy(), nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus() *StatusSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &StatusSummary{}
	for i := len(s.order) - 1; i >= 0; i-- {
		job := s.jobs[s.order[i]]
		if job.Status == JobStatusRunning && summary.ActiveJob == nil {
			summary.ActiveJob = job.Copy()
			continue
		}
		summary.History = append(summary.History, job.Copy())
	}
	return summary
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case jobID := <-s.queue:
			s.execute(jobID)
		}
	}
}

func (s *Service) execute(jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != JobStatusQueued {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = JobStatusRunning
	job.Message = "Acquiring"
	job.StartedAt = &now
	keys := append([]string(nil), job.GameKeys...)
	reporter := s.reporter
	s.mu.Unlock()

	if reporter != nil {
		reporter.OnJobStart(job.Copy())
	}
	s.logger.Printf("Job %s started (%s)", jobID, job.Scope)

	outcome, err := s.acquirer.Acquire(s.ctx, store.RunTriggerManual, keys)

	s.mu.Lock()
	finished := time.Now()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		job.Message = "Refresh failed"
	} else {
		job.Status = JobStatusCompleted
		job.RunID = outcome.RunID
		job.Total = outcome.Total
		job.Resolved = outcome.Resolved
		job.Message = fmt.Sprintf("Resolved %d/%d games", outcome.Resolved, outcome.Total)
	}
	reporter = s.reporter
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("⚠️  Job %s failed: %v", jobID, err)
		if reporter != nil {
			reporter.OnJobError(job.Copy(), err)
		}
		return
	}

	s.logger.Printf("✓ Job %s complete: %s", jobID, job.Message)
	if reporter != nil {
		reporter.OnJobComplete(job.Copy())
	}
}

// trimHistoryLocked drops the oldest finished jobs beyond the history
// limit. Callers hold s.mu.
func (s *Service) trimHistoryLocked() {
	excess := len(s.order) - s.historyLimit
	if excess <= 0 {
		return
	}

	var kept []string
	for _, id := range s.order {
		if excess > 0 && s.jobs[id].Done() {
			delete(s.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
