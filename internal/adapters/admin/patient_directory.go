package admin

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const (
	fileQueuedPrefix = "patients:file-queued:"
	fileIDPrefix     = "patients:file-id:"

	// markerTTL keeps the queued marker long enough to outlive any
	// retry schedule but lets a lost job be retried eventually.
	markerTTL = 30 * 24 * time.Hour
)

// RedisPatientDirectory implements the PatientDirectory interface
type RedisPatientDirectory struct {
	client *redisclient.Client
}

// NewRedisPatientDirectory creates a new Redis-backed patient directory
func NewRedisPatientDirectory(client *redisclient.Client) providers.PatientDirectory {
	return &RedisPatientDirectory{client: client}
}

// HasFile reports whether a file exists or creation is pending
func (d *RedisPatientDirectory) HasFile(ctx context.Context, ownerID string) (bool, error) {
	rdb := d.client.Client()

	n, err := rdb.Exists(ctx, fileIDPrefix+ownerID, fileQueuedPrefix+ownerID).Result()
	if err != nil {
		return false, apperrors.NewStoreUnavailableError("checking patient file", err)
	}
	return n > 0, nil
}

// MarkQueued records that file creation has been enqueued
func (d *RedisPatientDirectory) MarkQueued(ctx context.Context, ownerID string) error {
	if err := d.client.Client().Set(ctx, fileQueuedPrefix+ownerID, "1", markerTTL).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("marking patient file queued", err)
	}
	return nil
}

// SaveExternalID stores the portal's identifier once the file exists
func (d *RedisPatientDirectory) SaveExternalID(ctx context.Context, ownerID, externalID string) error {
	rdb := d.client.Client()

	if err := rdb.Set(ctx, fileIDPrefix+ownerID, externalID, 0).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("saving patient file id", err)
	}
	if err := rdb.Del(ctx, fileQueuedPrefix+ownerID).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("clearing queued marker", err)
	}
	return nil
}

// ExternalID returns the stored portal identifier, or ""
func (d *RedisPatientDirectory) ExternalID(ctx context.Context, ownerID string) (string, error) {
	id, err := d.client.Client().Get(ctx, fileIDPrefix+ownerID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStoreUnavailableError("reading patient file id", err)
	}
	return id, nil
}
