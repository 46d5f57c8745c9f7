package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ReminderRepo stores scheduled reminder commands.
type ReminderRepo struct {
	db *sql.DB
}

func NewReminderRepo(db *sql.DB) *ReminderRepo { return &ReminderRepo{db: db} }

func (r *ReminderRepo) Insert(ctx context.Context, rem Reminder) error {
	payload, err := encodeContext(rem.Context)
	if err != nil {
		return err
	}
	status := rem.Status
	if status == "" {
		status = ReminderPending
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO reminders(id, due_at, command, context, status, attempts, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, rem.ID, rem.DueAt.UTC().Truncate(time.Second), rem.Command, payload, status, rem.Attempts)
	return err
}

// Due returns pending reminders with due_at <= now, oldest first.
func (r *ReminderRepo) Due(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, due_at, command, context, status, attempts, last_error, created_at
	FROM reminders
	WHERE status = ? AND due_at <= ?
	ORDER BY due_at, rowid
	LIMIT ?`, ReminderPending, now.UTC().Truncate(time.Second), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rem)
	}
	return out, rows.Err()
}

func (r *ReminderRepo) Get(ctx context.Context, id string) (*Reminder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, due_at, command, context, status, attempts, last_error, created_at FROM reminders WHERE id = ?`, id)
	rem, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rem, err
}

func (r *ReminderRepo) MarkDone(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reminders SET status = ?, attempts = attempts + 1 WHERE id = ?`, ReminderDone, id)
	return err
}

// MarkRetry records a failed attempt and puts the reminder back in the
// queue at retryAt.
func (r *ReminderRepo) MarkRetry(ctx context.Context, id, reason string, retryAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE reminders SET attempts = attempts + 1, last_error = ?, due_at = ?, status = ?
	WHERE id = ?`, reason, retryAt.UTC().Truncate(time.Second), ReminderPending, id)
	return err
}

// MarkFailed records a final failed attempt.
func (r *ReminderRepo) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE reminders SET attempts = attempts + 1, last_error = ?, status = ?
	WHERE id = ?`, reason, ReminderFailed, id)
	return err
}

func scanReminder(s rowScanner) (*Reminder, error) {
	var (
		rem     Reminder
		payload string
		lastErr sql.NullString
	)
	if err := s.Scan(&rem.ID, &rem.DueAt, &rem.Command, &payload, &rem.Status, &rem.Attempts, &lastErr, &rem.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rem.Context); err != nil {
		return nil, fmt.Errorf("decode context for reminder %s: %w", rem.ID, err)
	}
	if lastErr.Valid {
		rem.LastError = &lastErr.String
	}
	return &rem, nil
}

func encodeContext(c map[string]any) (string, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode reminder context: %w", err)
	}
	return string(b), nil
}
