package admin

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const hoursKeyPrefix = "hours:"

// RedisHoursStore implements the HoursProvider interface. Visibility
// windows are edited out of band and stored as JSON per provider.
type RedisHoursStore struct {
	client *redisclient.Client
}

// NewRedisHoursStore creates a new Redis-backed hours store
func NewRedisHoursStore(client *redisclient.Client) providers.HoursProvider {
	return &RedisHoursStore{client: client}
}

// AllowedPeriod returns the provider's visibility window, or nil when
// none is configured
func (s *RedisHoursStore) AllowedPeriod(ctx context.Context, providerID string) (*entities.AllowedPeriod, error) {
	raw, err := s.client.Client().Get(ctx, hoursKeyPrefix+providerID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("reading allowed period", err)
	}

	var period entities.AllowedPeriod
	if err := json.Unmarshal(raw, &period); err != nil {
		return nil, apperrors.NewInternalError("decoding allowed period", err)
	}
	return &period, nil
}
