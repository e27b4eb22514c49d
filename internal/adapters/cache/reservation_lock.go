package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const lockKeyPrefix = "lock:slot:"

type lockValue struct {
	Owner string    `json:"owner"`
	At    time.Time `json:"at"`
}

// RedisReservationLock implements the ReservationLock interface with a
// SET NX EX key per slot.
type RedisReservationLock struct {
	client *redisclient.Client
}

// NewRedisReservationLock creates a new Redis-backed reservation lock
func NewRedisReservationLock(client *redisclient.Client) providers.ReservationLock {
	return &RedisReservationLock{client: client}
}

// Acquire takes the lock for holder or renews a lock holder already
// owns. The renew path re-reads and re-sets rather than extending, so a
// holder that lost the lock to expiry simply re-acquires it.
func (l *RedisReservationLock) Acquire(ctx context.Context, slotID, holder string, ttl time.Duration) (bool, error) {
	rdb := l.client.Client()
	key := lockKeyPrefix + slotID

	value, err := json.Marshal(lockValue{Owner: holder, At: time.Now().UTC()})
	if err != nil {
		return false, apperrors.NewInternalError("encoding lock value", err)
	}

	current, err := l.Holder(ctx, slotID)
	if err != nil {
		return false, err
	}
	if current == holder && current != "" {
		if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
			return false, apperrors.NewStoreUnavailableError("renewing lock", err)
		}
		return true, nil
	}

	ok, err := rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, apperrors.NewStoreUnavailableError("acquiring lock", err)
	}
	return ok, nil
}

// Release drops the lock if holder owns it
func (l *RedisReservationLock) Release(ctx context.Context, slotID, holder string) error {
	current, err := l.Holder(ctx, slotID)
	if err != nil {
		return err
	}
	if current != holder {
		return nil
	}
	if err := l.client.Client().Del(ctx, lockKeyPrefix+slotID).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("releasing lock", err)
	}
	return nil
}

// Holder returns the current lock holder, or "" when unlocked
func (l *RedisReservationLock) Holder(ctx context.Context, slotID string) (string, error) {
	raw, err := l.client.Client().Get(ctx, lockKeyPrefix+slotID).Bytes()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStoreUnavailableError("reading lock", err)
	}

	var v lockValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", apperrors.NewInternalError("decoding lock value", err)
	}
	return v.Owner, nil
}
