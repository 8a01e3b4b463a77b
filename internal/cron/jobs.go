package cron

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes stale code knowledge graph stores. *ckg.Manager
// satisfies it.
type Sweeper interface {
	Sweep(now time.Time) (int, error)
}

// SweepJobName is the name SweepJob registers under.
const SweepJobName = "ckg_sweep"

// SweepJob periodically deletes knowledge graph stores older than the
// manager's retention.
type SweepJob struct {
	Sweeper      Sweeper
	ScheduleExpr string // empty = hourly
	Logger       *slog.Logger
	Now          func() time.Time
}

var _ Job = (*SweepJob)(nil)

// Name implements Job.
func (j *SweepJob) Name() string { return SweepJobName }

// Schedule implements Job.
func (j *SweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run implements Job.
func (j *SweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	removed, err := j.Sweeper.Sweep(now())
	if err != nil {
		return err
	}
	if removed > 0 && j.Logger != nil {
		j.Logger.Info("swept stale ckg stores", "removed", removed)
	}
	return nil
}
