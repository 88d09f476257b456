package transmissions

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

var ErrNotClaimable = errors.New("transmission is not claimable")

const (
	queued     = int(models.TransmissionQueued)
	inProgress = int(models.TransmissionInProgress)
	synced     = int(models.TransmissionSynced)
	failed     = int(models.TransmissionFailed)
)

const columns = `id, survey_instance_id, form_id, filename, object_key, public, md5, status, start_date, end_date`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Transmission, error) {
	t := &models.Transmission{}
	var start, end int64
	if err := s.Scan(&t.ID, &t.InstanceID, &t.FormID, &t.Filename, &t.ObjectKey, &t.Public, &t.MD5, &t.Status, &start, &end); err != nil {
		return nil, err
	}
	t.StartDate = models.FromMillis(start)
	t.EndDate = models.FromMillis(end)
	return t, nil
}

// Create inserts a record, or resets the record of the same filename to
// t.Status. A record with an attempt in flight is left alone and
// ErrNotClaimable is returned.
func (r *SQLiteRepository) Create(ctx context.Context, t *models.Transmission) error {

	query := `INSERT INTO transmission (survey_instance_id, form_id, filename, object_key, public, status)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(filename) DO UPDATE SET
				survey_instance_id = excluded.survey_instance_id,
				form_id = excluded.form_id,
				object_key = excluded.object_key,
				public = excluded.public,
				status = excluded.status,
				start_date = 0,
				end_date = 0
			WHERE transmission.status <> ?
			RETURNING id`

	err := r.db.QueryRowContext(ctx, query, t.InstanceID, t.FormID, t.Filename, t.ObjectKey, t.Public, int(t.Status), inProgress).Scan(&t.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotClaimable
	}
	if err != nil {
		return fmt.Errorf("failed to create transmission: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, where string, arg any) (*models.Transmission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM transmission WHERE `+where, arg)
	t, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transmission: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Transmission, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetByFilename(ctx context.Context, filename string) (*models.Transmission, error) {
	return r.get(ctx, "filename = ?", filename)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Transmission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error selecting transmissions: %w", err)
	}
	defer rows.Close()

	var result []*models.Transmission
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transmission: %w", err)
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ListByInstance(ctx context.Context, instanceID int64) ([]*models.Transmission, error) {
	return r.list(ctx, `SELECT `+columns+` FROM transmission WHERE survey_instance_id = ? ORDER BY id`, instanceID)
}

func (r *SQLiteRepository) PendingWork(ctx context.Context) ([]*models.Transmission, error) {
	return r.list(ctx, `SELECT `+columns+` FROM transmission WHERE status IN (?, ?) ORDER BY id`,
		queued, failed)
}

// transition runs a single guarded UPDATE and requires exactly one row.
func (r *SQLiteRepository) transition(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transmission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected != 1 {
		return ErrNotClaimable
	}
	return nil
}

func (r *SQLiteRepository) Begin(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx,
		`UPDATE transmission SET status = ?, start_date = ?, end_date = 0 WHERE id = ? AND status IN (?, ?)`,
		inProgress, models.ToMillis(at), id, queued, failed)
}

func (r *SQLiteRepository) Complete(ctx context.Context, id int64, md5 string, at time.Time) error {
	return r.transition(ctx,
		`UPDATE transmission SET status = ?, md5 = ?, end_date = ? WHERE id = ? AND status = ?`,
		synced, md5, models.ToMillis(at), id, inProgress)
}

func (r *SQLiteRepository) Fail(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx,
		`UPDATE transmission SET status = ?, end_date = ? WHERE id = ? AND status = ?`,
		failed, models.ToMillis(at), id, inProgress)
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update transmissions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, filename string) (int64, error) {
	return r.exec(ctx, `UPDATE transmission SET status = ?
			WHERE (filename = ? OR substr(filename, -(length(?) + 1)) = '/' || ?) AND status <> ?`,
		failed, filename, filename, filename, inProgress)
}

func (r *SQLiteRepository) Requeue(ctx context.Context, instanceID int64) (int64, error) {
	return r.exec(ctx, `UPDATE transmission SET status = ?, start_date = 0, end_date = 0 WHERE survey_instance_id = ? AND status <> ?`,
		queued, instanceID, inProgress)
}

func (r *SQLiteRepository) Reconcile(ctx context.Context) (int64, error) {
	return r.exec(ctx, `UPDATE transmission SET status = ? WHERE status = ?`,
		failed, inProgress)
}

func (r *SQLiteRepository) FindSynced(ctx context.Context, objectKey, md5 string, excludeID int64) (*models.Transmission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM transmission WHERE object_key = ? AND md5 = ? AND status = ? AND id <> ? LIMIT 1`,
		objectKey, md5, synced, excludeID)

	t, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find synced transmission: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[models.TransmissionStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM transmission GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count transmissions: %w", err)
	}
	defer rows.Close()

	result := make(map[models.TransmissionStatus]int)
	for rows.Next() {
		var st models.TransmissionStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		result[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
