package repository

import (
	"context"
	"database/sql"
	"errors"
)

// DocumentRepo handles documents that have been read.
type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

func (r *DocumentRepo) Insert(ctx context.Context, d Document) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO documents(id, path, type, content, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, d.ID, d.Path, d.Type, d.Content)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*Document, error) {
	var d Document
	err := r.db.QueryRowContext(ctx, `SELECT id, path, type, content, created_at FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Path, &d.Type, &d.Content, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
