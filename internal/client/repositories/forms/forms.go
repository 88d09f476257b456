// Package forms remembers forms the server reported as deleted so their
// queued work is skipped.
package forms

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

type Repository interface {
	MarkDeleted(ctx context.Context, formIDs ...string) error
	Deleted(ctx context.Context) (map[string]struct{}, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) MarkDeleted(ctx context.Context, formIDs ...string) error {
	for _, id := range formIDs {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO deleted_form (form_id) VALUES (?) ON CONFLICT DO NOTHING`, id); err != nil {
			return fmt.Errorf("failed to mark form %s deleted: %w", id, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Deleted(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT form_id FROM deleted_form`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted forms: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted form: %w", err)
		}
		result[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
