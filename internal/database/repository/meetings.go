package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MeetingRepo handles meetings and their minutes.
type MeetingRepo struct {
	db *sql.DB
}

func NewMeetingRepo(db *sql.DB) *MeetingRepo { return &MeetingRepo{db: db} }

func (r *MeetingRepo) Insert(ctx context.Context, m Meeting) error {
	attendees, err := json.Marshal(nonNil(m.Attendees))
	if err != nil {
		return fmt.Errorf("encode attendees: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO meetings(id, title, start_time, attendees, event_id, created_at)
	VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, m.ID, m.Title, m.StartTime.UTC().Truncate(time.Second), string(attendees), m.EventID)
	return err
}

// Get returns the meeting with id, or nil when it does not exist.
func (r *MeetingRepo) Get(ctx context.Context, id string) (*Meeting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, title, start_time, attendees, event_id, created_at FROM meetings WHERE id = ?`, id)
	return scanMeeting(row)
}

// Latest returns the meeting with the latest start time, or nil when there is none.
func (r *MeetingRepo) Latest(ctx context.Context) (*Meeting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, title, start_time, attendees, event_id, created_at FROM meetings ORDER BY start_time DESC, rowid DESC LIMIT 1`)
	return scanMeeting(row)
}

func (r *MeetingRepo) List(ctx context.Context) ([]Meeting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, start_time, attendees, event_id, created_at FROM meetings ORDER BY start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MeetingRepo) AddMinute(ctx context.Context, m Minute) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO minutes(id, meeting_id, speaker, text, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, m.ID, m.MeetingID, m.Speaker, m.Text)
	return err
}

func (r *MeetingRepo) Minutes(ctx context.Context, meetingID string) ([]Minute, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, meeting_id, speaker, text, created_at FROM minutes WHERE meeting_id = ? ORDER BY created_at, rowid`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Minute
	for rows.Next() {
		var m Minute
		if err := rows.Scan(&m.ID, &m.MeetingID, &m.Speaker, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentContext returns up to limit (title, minute) pairs, newest first.
func (r *MeetingRepo) RecentContext(ctx context.Context, limit int) ([]MeetingContext, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT m.title, mi.text
	FROM meetings m
	JOIN minutes mi ON mi.meeting_id = m.id
	ORDER BY mi.created_at DESC, mi.rowid DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MeetingContext
	for rows.Next() {
		var c MeetingContext
		if err := rows.Scan(&c.Title, &c.Text); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(s rowScanner) (*Meeting, error) {
	var (
		m         Meeting
		attendees string
		eventID   sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Title, &m.StartTime, &attendees, &eventID, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(attendees), &m.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees for meeting %s: %w", m.ID, err)
	}
	if eventID.Valid {
		m.EventID = &eventID.String
	}
	return &m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
