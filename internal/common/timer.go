// Package common provides small helpers shared across the processing stages:
// stage timing and typed reads from caller option maps.
package common

import (
	"fmt"
	"log/slog"
	"time"
)

// Timer measures one processing stage.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a new timer for the named stage.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the stage name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// LogValue renders the timer as a slog group.
func (t *Timer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("stage", t.name),
		slog.Float64("ms", float64(t.duration.Microseconds())/1000),
	)
}
