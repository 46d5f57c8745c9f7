package repository

import (
	"context"
	"database/sql"
)

// CommunicationRepo logs outbound communications.
type CommunicationRepo struct {
	db *sql.DB
}

func NewCommunicationRepo(db *sql.DB) *CommunicationRepo { return &CommunicationRepo{db: db} }

func (r *CommunicationRepo) Insert(ctx context.Context, c Communication) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO communications(id, type, recipient, content, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, c.ID, c.Type, c.Recipient, c.Content)
	return err
}

func (r *CommunicationRepo) List(ctx context.Context, limit int) ([]Communication, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, type, recipient, content, created_at FROM communications ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Communication
	for rows.Next() {
		var c Communication
		if err := rows.Scan(&c.ID, &c.Type, &c.Recipient, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
