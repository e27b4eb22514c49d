//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixclinic/bookingcore/internal/adapters/notify"
	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

func TestReminderStoreIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	store := notify.NewRedisReminderStore(redisClient)
	ctx := context.Background()

	start := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	reminder := &entities.Reminder{
		BookingID: "bk_1",
		OwnerID:   "owner-1",
		ClinicID:  "main",
		Date:      start.Format("2006-01-02"),
		Time:      start.Format("15:04"),
		FireAt:    start.Add(-time.Hour),
	}
	require.NoError(t, store.Schedule(ctx, reminder))

	// Not due one second before the fire time.
	due, err := store.PopDue(ctx, reminder.FireAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)

	// Due once the fire time has passed, and popped exactly once.
	due, err = store.PopDue(ctx, reminder.FireAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "bk_1", due[0].BookingID)

	due, err = store.PopDue(ctx, reminder.FireAt.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestReminderStoreCancelIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	store := notify.NewRedisReminderStore(redisClient)
	ctx := context.Background()

	fireAt := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.Schedule(ctx, &entities.Reminder{BookingID: "bk_keep", FireAt: fireAt}))
	require.NoError(t, store.Schedule(ctx, &entities.Reminder{BookingID: "bk_drop", FireAt: fireAt}))

	require.NoError(t, store.Cancel(ctx, "bk_drop"))

	due, err := store.PopDue(ctx, fireAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "bk_keep", due[0].BookingID)
}
