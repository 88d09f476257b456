// Package records persists datapoints merged from the metadata service.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

type Repository interface {
	// Upsert stores rec when it is new or strictly newer than the stored copy
	// (last write wins on LastModified) and reports whether it was applied.
	Upsert(ctx context.Context, rec *models.Record) (bool, error)
	Get(ctx context.Context, recordID string) (*models.Record, error)
	ListByGroup(ctx context.Context, surveyGroupID int64) ([]*models.Record, error)
	// DeleteEmpty removes records of the group that own no survey instance.
	DeleteEmpty(ctx context.Context, surveyGroupID int64) (int64, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.Record) (bool, error) {

	query := `INSERT INTO record (record_id, survey_group_id, name, latitude, longitude, last_modified)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(record_id) DO UPDATE SET
				survey_group_id = excluded.survey_group_id,
				name = excluded.name,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				last_modified = excluded.last_modified
			WHERE excluded.last_modified > record.last_modified`

	result, err := r.db.ExecContext(ctx, query, rec.RecordID, rec.SurveyGroupID, rec.Name, rec.Latitude, rec.Longitude, rec.LastModified)
	if err != nil {
		return false, fmt.Errorf("failed to upsert record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, recordID string) (*models.Record, error) {
	rec := &models.Record{}
	err := r.db.QueryRowContext(ctx,
		`SELECT record_id, survey_group_id, name, latitude, longitude, last_modified FROM record WHERE record_id = ?`, recordID).
		Scan(&rec.RecordID, &rec.SurveyGroupID, &rec.Name, &rec.Latitude, &rec.Longitude, &rec.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListByGroup(ctx context.Context, surveyGroupID int64) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_id, survey_group_id, name, latitude, longitude, last_modified FROM record
		 WHERE survey_group_id = ? ORDER BY last_modified, record_id`, surveyGroupID)
	if err != nil {
		return nil, fmt.Errorf("error selecting records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec := &models.Record{}
		if err := rows.Scan(&rec.RecordID, &rec.SurveyGroupID, &rec.Name, &rec.Latitude, &rec.Longitude, &rec.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteEmpty(ctx context.Context, surveyGroupID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM record WHERE survey_group_id = ?
		 AND record_id NOT IN (SELECT record_id FROM survey_instance)`, surveyGroupID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete empty records: %w", err)
	}
	return result.RowsAffected()
}
