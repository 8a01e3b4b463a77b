// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/sweagent/internal/cron"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and counts calls.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSweeper is a test double for cron.Sweeper.
type MockSweeper struct {
	SweepFunc func(now time.Time) (int, error)

	mu   sync.Mutex
	seen []time.Time
}

var _ cron.Sweeper = (*MockSweeper)(nil)

// Sweep implements cron.Sweeper.
func (m *MockSweeper) Sweep(now time.Time) (int, error) {
	m.mu.Lock()
	m.seen = append(m.seen, now)
	m.mu.Unlock()

	if m.SweepFunc != nil {
		return m.SweepFunc(now)
	}
	return 0, nil
}

// Calls returns the times passed to Sweep.
func (m *MockSweeper) Calls() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.seen...)
}
