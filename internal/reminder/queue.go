// Package reminder queues commands to be executed at a later time and runs
// them when they fall due.
package reminder

import (
	"context"
	"time"
)

// Reminder is a command scheduled for DueAt. Context is handed to the
// command's state when it runs.
type Reminder struct {
	ID       string
	DueAt    time.Time
	Command  string
	Context  map[string]any
	Attempts int
}

// Queue holds pending reminders.
type Queue interface {
	Enqueue(ctx context.Context, r Reminder) error
	// Due returns up to limit pending reminders with DueAt <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Reminder, error)
	Complete(ctx context.Context, id string) error
	// Retry records a failed attempt and makes the reminder due again at at.
	Retry(ctx context.Context, id, reason string, at time.Time) error
	// Fail records a final failed attempt; the reminder is not returned by Due again.
	Fail(ctx context.Context, id, reason string) error
}
