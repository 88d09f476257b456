package instances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

const columns = `id, uuid, form_id, form_version, record_id, submitter, status,
	start_date, saved_date, submitted_date, exported_date, uploaded_date, synced_date`

// dateColumn is the timestamp stamped when an instance reaches a status.
var dateColumn = map[models.InstanceStatus]string{
	models.StatusSaved:     "saved_date",
	models.StatusSubmitted: "submitted_date",
	models.StatusExported:  "exported_date",
	models.StatusUploaded:  "uploaded_date",
	models.StatusSynced:    "synced_date",
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.SurveyInstance, error) {
	i := &models.SurveyInstance{}
	var start, saved, submitted, exported, uploaded, synced int64
	err := s.Scan(&i.ID, &i.UUID, &i.FormID, &i.FormVersion, &i.RecordID, &i.Submitter, &i.Status,
		&start, &saved, &submitted, &exported, &uploaded, &synced)
	if err != nil {
		return nil, err
	}
	i.StartDate = models.FromMillis(start)
	i.SavedDate = models.FromMillis(saved)
	i.SubmittedDate = models.FromMillis(submitted)
	i.ExportedDate = models.FromMillis(exported)
	i.UploadedDate = models.FromMillis(uploaded)
	i.SyncedDate = models.FromMillis(synced)
	return i, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, i *models.SurveyInstance) error {

	query := `INSERT INTO survey_instance (uuid, form_id, form_version, record_id, submitter, status,
			start_date, saved_date, submitted_date, exported_date, uploaded_date, synced_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`

	err := r.db.QueryRowContext(ctx, query, i.UUID, i.FormID, i.FormVersion, i.RecordID, i.Submitter, int(i.Status),
		models.ToMillis(i.StartDate), models.ToMillis(i.SavedDate), models.ToMillis(i.SubmittedDate),
		models.ToMillis(i.ExportedDate), models.ToMillis(i.UploadedDate), models.ToMillis(i.SyncedDate)).Scan(&i.ID)
	if err != nil {
		return fmt.Errorf("failed to insert survey instance: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, where string, arg any) (*models.SurveyInstance, error) {
	i, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM survey_instance WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey instance: %w", err)
	}
	return i, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.SurveyInstance, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetByUUID(ctx context.Context, uuid string) (*models.SurveyInstance, error) {
	return r.get(ctx, "uuid = ?", uuid)
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.InstanceStatus) ([]*models.SurveyInstance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM survey_instance WHERE status = ? ORDER BY id`, int(status))
	if err != nil {
		return nil, fmt.Errorf("error selecting survey instances: %w", err)
	}
	defer rows.Close()

	var result []*models.SurveyInstance
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey instance: %w", err)
		}
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Advance(ctx context.Context, id int64, status models.InstanceStatus, at time.Time) (bool, error) {
	query := `UPDATE survey_instance SET status = ?`
	args := []any{int(status)}
	if col, ok := dateColumn[status]; ok {
		query += `, ` + col + ` = ?`
		args = append(args, models.ToMillis(at))
	}
	query += ` WHERE id = ? AND status < ?`
	args = append(args, id, int(status))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update survey instance status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *SQLiteRepository) Rewind(ctx context.Context, id int64, status models.InstanceStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE survey_instance SET status = ? WHERE id = ?`, int(status), id)
	if err != nil {
		return fmt.Errorf("failed to rewind survey instance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpsertDownloaded(ctx context.Context, i *models.SurveyInstance) (bool, error) {

	query := `INSERT INTO survey_instance (uuid, form_id, form_version, record_id, submitter, status, submitted_date, synced_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(uuid) DO UPDATE SET
				form_id = excluded.form_id,
				form_version = excluded.form_version,
				record_id = excluded.record_id,
				submitter = excluded.submitter,
				submitted_date = excluded.submitted_date,
				synced_date = excluded.synced_date
			WHERE survey_instance.status = ?`

	result, err := r.db.ExecContext(ctx, query, i.UUID, i.FormID, i.FormVersion, i.RecordID, i.Submitter,
		int(models.StatusDownloaded), models.ToMillis(i.SubmittedDate), models.ToMillis(i.SyncedDate),
		int(models.StatusDownloaded))
	if err != nil {
		return false, fmt.Errorf("failed to upsert downloaded instance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	stored, err := r.GetByUUID(ctx, i.UUID)
	if err != nil {
		return false, err
	}
	i.ID = stored.ID
	i.Status = stored.Status
	return true, nil
}

func (r *SQLiteRepository) SaveResponse(ctx context.Context, resp *models.Response) error {

	query := `INSERT INTO response (survey_instance_id, question_id, iteration, answer, type)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(survey_instance_id, question_id, iteration) DO UPDATE SET
				answer = excluded.answer,
				type = excluded.type`

	_, err := r.db.ExecContext(ctx, query, resp.InstanceID, resp.QuestionID, resp.Iteration, resp.Answer, resp.Type)
	if err != nil {
		return fmt.Errorf("failed to upsert response: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListResponses(ctx context.Context, instanceID int64) ([]*models.Response, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT survey_instance_id, question_id, iteration, answer, type FROM response
		 WHERE survey_instance_id = ? ORDER BY question_id, iteration`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("error selecting responses: %w", err)
	}
	defer rows.Close()

	var result []*models.Response
	for rows.Next() {
		resp := &models.Response{}
		if err := rows.Scan(&resp.InstanceID, &resp.QuestionID, &resp.Iteration, &resp.Answer, &resp.Type); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		result = append(result, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
