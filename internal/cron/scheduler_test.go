package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func (j *simpleJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func TestScheduler_RegisterDuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Register(&simpleJob{name: "test", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	err := s.Register(&simpleJob{name: "test", schedule: "* * * * *"})
	if !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestScheduler_RegisterInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Register(&simpleJob{name: "bad", schedule: "invalid"}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.order) != 0 {
		t.Errorf("expected no registered jobs, got %v", s.order)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Register(&simpleJob{name: "noop", schedule: "* * * * *"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !s.Next("noop").IsZero() {
		t.Error("expected no next run before Start")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if next := s.Next("noop"); next.IsZero() || next.Before(time.Now().Add(-time.Second)) {
		t.Errorf("expected an upcoming run, got %v", next)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted on second start, got %v", err)
	}
	if err := s.Register(&simpleJob{name: "late", schedule: "* * * * *"}); !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted on late register, got %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_Trigger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	job := &simpleJob{name: "sweep", schedule: "@daily"}
	if err := s.Register(job); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := s.Trigger(context.Background(), "sweep"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", job.callCount())
	}
	if err := s.Trigger(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}
}

func TestScheduler_TriggerPropagatesJobError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := NewScheduler(slog.Default())
	_ = s.Register(&simpleJob{name: "failing", schedule: "@daily", runFunc: func(context.Context) error { return boom }})

	if err := s.Trigger(context.Background(), "failing"); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestScheduler_NoOverlappingRuns(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	job := &simpleJob{
		name:     "slow",
		schedule: "@daily",
		runFunc: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}
	s := NewScheduler(slog.Default())
	if err := s.Register(job); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "slow") }()
	<-started

	if err := s.Trigger(context.Background(), "slow"); !errors.Is(err, ErrJobBusy) {
		t.Errorf("expected ErrJobBusy, got %v", err)
	}
	s.tick(s.entries["slow"])
	if job.callCount() != 1 {
		t.Errorf("expected the tick to be skipped, got %d calls", job.callCount())
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_TickBeforeStartDoesNothing(t *testing.T) {
	t.Parallel()

	job := &simpleJob{name: "idle", schedule: "@daily"}
	s := NewScheduler(slog.Default())
	_ = s.Register(job)

	s.tick(s.entries["idle"])
	if job.callCount() != 0 {
		t.Errorf("expected no run before Start, got %d", job.callCount())
	}
}

func TestScheduler_TickLogsJobError(t *testing.T) {
	t.Parallel()

	job := &simpleJob{name: "failing", schedule: "@daily", runFunc: func(context.Context) error {
		return errors.New("job failed")
	}}
	s := NewScheduler(slog.Default())
	_ = s.Register(job)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s.tick(s.entries["failing"])
	if job.callCount() != 1 {
		t.Errorf("expected 1 run, got %d", job.callCount())
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
