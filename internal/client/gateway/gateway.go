package gateway

import "context"

// Gateway is the metadata API contract consumed by the sync engine.
type Gateway interface {
	FetchDatapoints(ctx context.Context, surveyGroupID int64, since int64) (*DatapointBatch, error)
	PendingFiles(ctx context.Context, formIDs []string) (*PendingFiles, error)
	NotifyFileAvailable(ctx context.Context, action, formID, filename string) error
	FormHeader(ctx context.Context, formID string) (*FormHeader, error)
	FormHeaders(ctx context.Context) ([]FormHeader, error)
}
