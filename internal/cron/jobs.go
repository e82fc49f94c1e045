package cron

import (
	"context"
	"log/slog"
	"time"
)

// DefaultIdleSchedule is the schedule of IdleSessionJob when none is set.
const DefaultIdleSchedule = "*/5 * * * *"

// Pruner drops live sessions idle longer than maxIdle and returns the count.
type Pruner interface {
	PruneIdle(maxIdle time.Duration) int
}

// IdleSessionJob evicts idle live sessions. Their history is untouched, so
// the conversations remain resumable.
type IdleSessionJob struct {
	Sessions     Pruner
	MaxIdle      time.Duration
	ScheduleExpr string
	Logger       *slog.Logger
}

var _ Job = (*IdleSessionJob)(nil)

// Name implements Job.
func (j *IdleSessionJob) Name() string { return "idle_sessions" }

// Schedule implements Job.
func (j *IdleSessionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultIdleSchedule
}

// Run implements Job.
func (j *IdleSessionJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pruned := j.Sessions.PruneIdle(j.MaxIdle); pruned > 0 && j.Logger != nil {
		j.Logger.Info("cron: pruned idle sessions", "count", pruned, "max_idle", j.MaxIdle)
	}
	return nil
}
