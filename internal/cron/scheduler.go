package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler errors.
var (
	ErrDuplicateJob = errors.New("cron: duplicate job name")
	ErrUnknownJob   = errors.New("cron: unknown job")
	ErrJobBusy      = errors.New("cron: job still running")
	ErrStarted      = errors.New("cron: scheduler already started")
)

type entry struct {
	job  Job
	id   cron.EntryID
	lock sync.Mutex
}

// Scheduler runs registered jobs on their schedules. A tick that fires
// while the previous run of the same job is still going is skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]*entry
	order   []string
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates an idle scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]*entry),
		logger:  logger.With("component", "cron"),
	}
}

// Register validates j's schedule and adds it. Jobs cannot be added once
// the scheduler has started.
func (s *Scheduler) Register(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrStarted
	}
	name := j.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateJob, name)
	}

	e := &entry{job: j}
	id, err := s.cron.AddFunc(j.Schedule(), func() { s.tick(e) })
	if err != nil {
		return fmt.Errorf("cron: invalid schedule %q for job %q: %w", j.Schedule(), name, err)
	}
	e.id = id
	s.entries[name] = e
	s.order = append(s.order, name)
	return nil
}

// Start begins running jobs. Runs observe ctx and stop early once it is
// canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.order)
	return nil
}

// Stop cancels in-flight runs and waits for them to return or for ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.ctx != nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if !started {
		return nil
	}

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for running jobs: %w", ctx.Err())
	}
}

// Trigger runs the named job now, outside its schedule. It returns
// ErrJobBusy when a run is already in progress.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if !e.lock.TryLock() {
		return fmt.Errorf("%w: %q", ErrJobBusy, name)
	}
	defer e.lock.Unlock()
	return e.job.Run(ctx)
}

// Next returns the next scheduled run of the named job. It is the zero
// time before Start.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

func (s *Scheduler) tick(e *entry) {
	name := e.job.Name()
	if !e.lock.TryLock() {
		s.logger.Warn("job still running, skipping tick", "job", name)
		return
	}
	defer e.lock.Unlock()

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("job finished", "job", name, "elapsed", time.Since(start))
}
