// Package cron runs periodic maintenance, such as the code knowledge graph
// sweep, while the process stays up in interactive or MCP server mode.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs. Names are unique per scheduler.
	Name() string

	// Schedule returns a standard 5-field cron expression.
	Schedule() string

	// Run executes one tick. It should return promptly once ctx is done.
	Run(ctx context.Context) error
}
