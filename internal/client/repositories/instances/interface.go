// Package instances persists survey instances and their responses.
//
// Status changes come in two flavours: Advance only moves an instance
// forward and is what the export and sync services use, Rewind is the
// explicit backwards move used by resend and export repair.
package instances

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

type Repository interface {
	Create(ctx context.Context, inst *models.SurveyInstance) error
	GetByID(ctx context.Context, id int64) (*models.SurveyInstance, error)
	GetByUUID(ctx context.Context, uuid string) (*models.SurveyInstance, error)
	ListByStatus(ctx context.Context, status models.InstanceStatus) ([]*models.SurveyInstance, error)

	// Advance sets status when it is ahead of the stored one and reports
	// whether the row changed.
	Advance(ctx context.Context, id int64, status models.InstanceStatus, at time.Time) (bool, error)
	// Rewind sets status unconditionally.
	Rewind(ctx context.Context, id int64, status models.InstanceStatus) error

	// UpsertDownloaded inserts a remote-origin instance or refreshes one that
	// is already DOWNLOADED. Local instances with the same uuid are left
	// untouched and applied is false.
	UpsertDownloaded(ctx context.Context, inst *models.SurveyInstance) (applied bool, err error)

	SaveResponse(ctx context.Context, r *models.Response) error
	ListResponses(ctx context.Context, instanceID int64) ([]*models.Response, error)
}
