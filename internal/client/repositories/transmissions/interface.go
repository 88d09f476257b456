package transmissions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Repository describes the ledger operations used by the export and sync
// services.
type Repository interface {
	// Create inserts a QUEUED (or t.Status) record. An existing record for the
	// same filename is reset to the new status and owner.
	Create(ctx context.Context, t *models.Transmission) error

	GetByID(ctx context.Context, id int64) (*models.Transmission, error)
	GetByFilename(ctx context.Context, filename string) (*models.Transmission, error)
	ListByInstance(ctx context.Context, instanceID int64) ([]*models.Transmission, error)

	// PendingWork returns all QUEUED or FAILED records in creation order.
	PendingWork(ctx context.Context) ([]*models.Transmission, error)

	// Begin moves QUEUED/FAILED to IN_PROGRESS. It returns ErrNotClaimable
	// when the record is in any other state.
	Begin(ctx context.Context, id int64, at time.Time) error
	// Complete moves IN_PROGRESS to SYNCED and stores the transmitted digest.
	Complete(ctx context.Context, id int64, md5 string, at time.Time) error
	// Fail moves IN_PROGRESS to FAILED.
	Fail(ctx context.Context, id int64, at time.Time) error

	// MarkFailed forces records that are not IN_PROGRESS to FAILED and
	// returns the number of rows changed. filename matches the whole stored
	// name or its last path element.
	MarkFailed(ctx context.Context, filename string) (int64, error)
	// Requeue resets every record of an instance to QUEUED.
	Requeue(ctx context.Context, instanceID int64) (int64, error)
	// Reconcile turns every IN_PROGRESS record into FAILED.
	Reconcile(ctx context.Context) (int64, error)

	// FindSynced returns another SYNCED record that delivered the same digest
	// under the same object key, or common.ErrorNotFound.
	FindSynced(ctx context.Context, objectKey, md5 string, excludeID int64) (*models.Transmission, error)

	CountByStatus(ctx context.Context) (map[models.TransmissionStatus]int, error)
}
