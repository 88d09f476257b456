package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
)

// LoadDevice completes base with the persisted device id, generating one on
// first start. The returned value is meant to be built once and shared.
func LoadDevice(ctx context.Context, repo metadata.Repository, base gateway.Device) (gateway.Device, error) {
	id, err := repo.GetOrCreate(ctx, metadata.KeyDeviceID, func() []byte {
		return []byte(uuid.NewString())
	})
	if err != nil {
		return gateway.Device{}, fmt.Errorf("failed to load device id: %w", err)
	}

	base.DeviceID = string(id)
	return base, nil
}

// ResetDevice replaces the stored device id with a freshly generated one.
func ResetDevice(ctx context.Context, repo metadata.Repository, base gateway.Device) (gateway.Device, error) {
	if err := repo.Delete(ctx, metadata.KeyDeviceID); err != nil {
		return gateway.Device{}, err
	}
	return LoadDevice(ctx, repo, base)
}

// DeviceSettings returns the stored device-level settings as text.
func DeviceSettings(ctx context.Context, repo metadata.Repository) (map[string]string, error) {
	raw, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	settings := make(map[string]string, len(raw))
	for k, v := range raw {
		settings[k] = string(v)
	}
	return settings, nil
}
