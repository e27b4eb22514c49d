package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const remindersKey = "reminders:due"

// RedisReminderStore implements the ReminderStore interface on a sorted
// set scored by fire time in epoch milliseconds.
type RedisReminderStore struct {
	client *redisclient.Client
}

// NewRedisReminderStore creates a new Redis-backed reminder store
func NewRedisReminderStore(client *redisclient.Client) providers.ReminderStore {
	return &RedisReminderStore{client: client}
}

// Schedule records a reminder to fire at its FireAt instant
func (s *RedisReminderStore) Schedule(ctx context.Context, reminder *entities.Reminder) error {
	payload, err := json.Marshal(reminder)
	if err != nil {
		return apperrors.NewInternalError("encoding reminder", err)
	}
	if err := s.client.Client().ZAdd(ctx, remindersKey, redis.Z{
		Score:  float64(reminder.FireAt.UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("scheduling reminder", err)
	}
	return nil
}

// PopDue removes and returns reminders due at or before now. Each
// member is removed before it is returned so concurrent sweepers hand a
// reminder to at most one of them.
func (s *RedisReminderStore) PopDue(ctx context.Context, now time.Time) ([]*entities.Reminder, error) {
	rdb := s.client.Client()

	members, err := rdb.ZRangeByScore(ctx, remindersKey, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("reading due reminders", err)
	}

	var due []*entities.Reminder
	for _, member := range members {
		removed, err := rdb.ZRem(ctx, remindersKey, member).Result()
		if err != nil {
			return due, apperrors.NewStoreUnavailableError("removing reminder", err)
		}
		if removed == 0 {
			// another sweeper took it
			continue
		}

		var reminder entities.Reminder
		if err := json.Unmarshal([]byte(member), &reminder); err != nil {
			log.Error().Err(err).Msg("dropping malformed reminder")
			continue
		}
		due = append(due, &reminder)
	}
	return due, nil
}

// Cancel removes any pending reminder for a booking
func (s *RedisReminderStore) Cancel(ctx context.Context, bookingID string) error {
	rdb := s.client.Client()

	members, err := rdb.ZRange(ctx, remindersKey, 0, -1).Result()
	if err != nil {
		return apperrors.NewStoreUnavailableError("reading reminders", err)
	}
	for _, member := range members {
		var reminder entities.Reminder
		if err := json.Unmarshal([]byte(member), &reminder); err != nil {
			continue
		}
		if reminder.BookingID == bookingID {
			if err := rdb.ZRem(ctx, remindersKey, member).Err(); err != nil {
				return apperrors.NewStoreUnavailableError("removing reminder", err)
			}
		}
	}
	return nil
}
