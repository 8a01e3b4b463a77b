package agent

import "time"

// DefaultMaxSteps is the step budget used when none is configured.
const DefaultMaxSteps = 20

// Config controls the execution loop.
type Config struct {
	// MaxSteps is the step budget for one run.
	MaxSteps int

	// ParallelToolCalls dispatches the tool calls of a step concurrently
	// instead of one after the other.
	ParallelToolCalls bool

	// Timeout bounds the wall-clock duration of a run. Zero means no
	// limit beyond the caller's context.
	Timeout time.Duration
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	return c
}
