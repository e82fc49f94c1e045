// Package cron runs periodic maintenance jobs, such as dropping idle live
// sessions, on 5-field cron schedules.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs. Names are unique per Scheduler.
	Name() string

	// Schedule returns a 5-field cron expression such as "*/5 * * * *".
	Schedule() string

	// Run executes one tick. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}
