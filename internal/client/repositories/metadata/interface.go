// Package metadata is a small key/value store in the local database for
// device-level settings such as the generated device identifier.
package metadata

import (
	"context"
)

const (
	// KeyDeviceID holds the identifier generated on first start.
	KeyDeviceID = "device_id"
	// KeyOrchestratorLock holds the lease of the process running sync passes.
	KeyOrchestratorLock = "orchestrator_lock"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// GetOrCreate returns the stored value, storing gen() first when the key
	// is absent. Concurrent callers observe the same value.
	GetOrCreate(ctx context.Context, key string, gen func() []byte) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns every stored setting.
	List(ctx context.Context) (map[string][]byte, error)
}
