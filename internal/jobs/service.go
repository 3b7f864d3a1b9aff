// File: internal/jobs/service.go
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xkilldash9x/guestpass/internal/autofill"
	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrShuttingDown is returned by Start once Shutdown has been called.
var ErrShuttingDown = errors.New("job service is shutting down")

// Executor performs one run. *autofill.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, target string) (*autofill.Report, error)
}

// Service launches runs in the background and tracks them as jobs.
type Service struct {
	exec       Executor
	registry   *Registry
	sem        *semaphore.Weighted
	runTimeout time.Duration
	metrics    *observability.Metrics
	log        *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewService creates a service. cfg.MaxConcurrent bounds simultaneous runs
// when positive; further jobs stay pending until a slot frees up.
func NewService(exec Executor, cfg config.RunnerConfig, metrics *observability.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		exec:       exec,
		registry:   NewRegistry(cfg.HistoryLimit),
		runTimeout: cfg.RunTimeout,
		metrics:    metrics,
		log:        logger.Named("jobs"),
		baseCtx:    ctx,
		cancel:     cancel,
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return s
}

// Start registers a pending job for target and runs it on a new goroutine.
// It returns immediately with a snapshot of the job.
func (s *Service) Start(target string) (Job, error) {
	if target != "" {
		if err := config.ValidateTarget(target); err != nil {
			return Job{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Job{}, ErrShuttingDown
	}

	job := &Job{
		ID:        uuid.NewString(),
		Target:    target,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	s.registry.Register(job)
	snapshot := *job

	s.wg.Add(1)
	go s.execute(job.ID, target)

	s.log.Info("Job accepted.", zap.String("job_id", job.ID), zap.String("target", target))
	return snapshot, nil
}

// Get returns the job with id.
func (s *Service) Get(id string) (Job, bool) {
	return s.registry.Get(id)
}

// List returns the retained jobs, newest first.
func (s *Service) List() []Job {
	return s.registry.List()
}

// Shutdown stops accepting jobs, cancels running ones and waits for them to
// release their browsers, or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs to stop: %w", ctx.Err())
	}
}

func (s *Service) execute(id, target string) {
	defer s.wg.Done()
	log := s.log.With(zap.String("job_id", id))

	var (
		started bool
		begin   time.Time
	)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("run panicked: %v", r)
			log.Error("Recovered from panic in job.", zap.Any("panic", r), zap.Stack("stack"))
			s.finish(log, id, nil, err)
			if started {
				s.metrics.RunFinished(string(StatusFailed), time.Since(begin))
			}
		}
	}()

	if s.sem != nil {
		if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
			s.finish(log, id, nil, fmt.Errorf("job canceled before start: %w", err))
			return
		}
		defer s.sem.Release(1)
	}

	begin = time.Now()
	if !s.registry.update(id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &begin
	}) {
		return
	}
	started = true
	s.metrics.RunStarted()
	log.Info("Job running.")

	ctx, cancel := s.baseCtx, context.CancelFunc(func() {})
	if s.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.baseCtx, s.runTimeout)
	}
	defer cancel()

	report, err := s.exec.Run(ctx, target)
	status := s.finish(log, id, report, err)
	s.metrics.RunFinished(string(status), time.Since(begin))
}

// finish moves the job to its terminal status.
func (s *Service) finish(log *zap.Logger, id string, report *autofill.Report, err error) Status {
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	now := time.Now()
	s.registry.update(id, func(j *Job) {
		j.Status = status
		j.FinishedAt = &now
		j.Report = report
		if report != nil && j.Target == "" {
			j.Target = report.Target
		}
		if err != nil {
			j.Error = err.Error()
		}
	})
	if err != nil {
		log.Warn("Job failed.", zap.Error(err))
	} else {
		log.Info("Job succeeded.")
	}
	return status
}
