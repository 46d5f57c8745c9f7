package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/teammate/internal/database"
	"github.com/jask/teammate/internal/database/repository"
)

// SQLQueue keeps reminders in the sqlite reminders table.
type SQLQueue struct {
	db   *sql.DB
	repo *repository.ReminderRepo
}

func NewSQLQueue(db *sql.DB) *SQLQueue {
	return &SQLQueue{db: db, repo: repository.NewReminderRepo(db)}
}

// Ping verifies the database answers.
func (q *SQLQueue) Ping(ctx context.Context) error {
	return database.Ping(ctx, q.db)
}

func (q *SQLQueue) Enqueue(ctx context.Context, r Reminder) error {
	err := q.repo.Insert(ctx, repository.Reminder{
		ID:       r.ID,
		DueAt:    r.DueAt,
		Command:  r.Command,
		Context:  r.Context,
		Attempts: r.Attempts,
	})
	if err != nil {
		return fmt.Errorf("reminder: enqueue %s: %w", r.ID, err)
	}
	return nil
}

func (q *SQLQueue) Due(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	rows, err := q.repo.Due(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("reminder: due: %w", err)
	}
	out := make([]Reminder, 0, len(rows))
	for _, r := range rows {
		out = append(out, Reminder{
			ID:       r.ID,
			DueAt:    r.DueAt,
			Command:  r.Command,
			Context:  r.Context,
			Attempts: r.Attempts,
		})
	}
	return out, nil
}

func (q *SQLQueue) Complete(ctx context.Context, id string) error {
	return q.repo.MarkDone(ctx, id)
}

func (q *SQLQueue) Retry(ctx context.Context, id, reason string, at time.Time) error {
	return q.repo.MarkRetry(ctx, id, reason, at)
}

func (q *SQLQueue) Fail(ctx context.Context, id, reason string) error {
	return q.repo.MarkFailed(ctx, id, reason)
}
