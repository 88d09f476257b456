// Package cursors stores the per survey group sync cursor used to make
// datapoint pulls incremental.
package cursors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

type Repository interface {
	// Get returns the cursor of a group, or 0 when the group was never pulled.
	Get(ctx context.Context, surveyGroupID int64) (int64, error)
	Set(ctx context.Context, surveyGroupID int64, value int64) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, surveyGroupID int64) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx, `SELECT time FROM sync_time WHERE survey_group_id = ?`, surveyGroupID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get sync cursor[%d]: %w", surveyGroupID, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, surveyGroupID int64, value int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_time (survey_group_id, time) VALUES (?, ?)
		ON CONFLICT(survey_group_id) DO UPDATE SET time = excluded.time
	`, surveyGroupID, value)
	if err != nil {
		return fmt.Errorf("failed to set sync cursor[%d]: %w", surveyGroupID, err)
	}
	return nil
}
