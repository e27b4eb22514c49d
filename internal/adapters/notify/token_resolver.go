package notify

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const tokenKeyPrefix = "notify:token:"

// RedisTokenResolver implements the ChannelResolver interface. Device
// tokens are registered by the client app under notify:token:{owner}.
type RedisTokenResolver struct {
	client *redisclient.Client
}

// NewRedisTokenResolver creates a new Redis-backed token resolver
func NewRedisTokenResolver(client *redisclient.Client) providers.ChannelResolver {
	return &RedisTokenResolver{client: client}
}

// Resolve returns the client's delivery token, or "" when none is
// registered
func (r *RedisTokenResolver) Resolve(ctx context.Context, ownerID string) (string, error) {
	token, err := r.client.Client().Get(ctx, tokenKeyPrefix+ownerID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStoreUnavailableError("resolving delivery token", err)
	}
	return token, nil
}
