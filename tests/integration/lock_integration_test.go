//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixclinic/bookingcore/internal/adapters/cache"
)

func TestReservationLockIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	lock := cache.NewRedisReservationLock(redisClient)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "slot-1", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	holder, err := lock.Holder(ctx, "slot-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", holder)

	// A different client cannot take a held lock.
	ok, err = lock.Acquire(ctx, "slot-1", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// The current holder can renew.
	ok, err = lock.Acquire(ctx, "slot-1", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Release by a non-holder is a no-op.
	require.NoError(t, lock.Release(ctx, "slot-1", "owner-b"))
	holder, err = lock.Holder(ctx, "slot-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", holder)

	require.NoError(t, lock.Release(ctx, "slot-1", "owner-a"))
	holder, err = lock.Holder(ctx, "slot-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestReservationLockExpiryIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	lock := cache.NewRedisReservationLock(redisClient)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "slot-2", "owner-a", 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(300 * time.Millisecond)

	// The lock expired, so another client can take it.
	ok, err = lock.Acquire(ctx, "slot-2", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
