package repository

import (
	"context"
	"fmt"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
)

// ServerConfigRepository is the key/value configuration store for
// controller settings (cobbler command path, remote power credentials).
// ByKey returns an empty string for missing keys; callers that need to
// distinguish decide what an empty value means.
type ServerConfigRepository interface {
	// ByKey retrieves a configuration value, "" if the key is absent
	ByKey(ctx context.Context, key string) (string, error)

	// Set stores a configuration key/value pair
	Set(ctx context.Context, key, value string) error
}

// serverConfigRepositoryImpl implements ServerConfigRepository
type serverConfigRepositoryImpl struct {
	ds *datastore.Datastore
}

// NewServerConfigRepository creates a new server config repository
func NewServerConfigRepository(ds *datastore.Datastore) ServerConfigRepository {
	return &serverConfigRepositoryImpl{ds: ds}
}

// ByKey retrieves a configuration value by key
func (r *serverConfigRepositoryImpl) ByKey(ctx context.Context, key string) (string, error) {
	value, err := r.ds.GetConfig(key)
	if err != nil {
		return "", fmt.Errorf("failed to read config key %s: %w", key, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// Set stores a configuration key/value pair
func (r *serverConfigRepositoryImpl) Set(ctx context.Context, key, value string) error {
	if err := r.ds.SetConfig(key, value); err != nil {
		return fmt.Errorf("failed to set config key %s: %w", key, err)
	}
	return nil
}
