//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixclinic/bookingcore/internal/adapters/queue"
	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

func newBookingJob(dedup map[string]string) *entities.Job {
	return &entities.Job{
		ID:        uuid.New().String(),
		Kind:      entities.JobKindBooking,
		DedupKey:  entities.NewDedupKey(dedup),
		Status:    entities.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
		Booking: &entities.BookingJob{
			BookingID:  "bk_20260910_abc123",
			OwnerID:    "owner-1",
			ClinicID:   "main",
			ProviderID: "default",
			Date:       "2026-09-10",
			Time:       "09:00",
		},
	}
}

func TestRedisQueueRoundTripIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	q := queue.NewRedisQueue(redisClient, time.Hour)
	ctx := context.Background()

	job := newBookingJob(map[string]string{"owner_id": "owner-1", "date": "2026-09-10", "time": "09:00"})

	duplicate, err := q.Enqueue(ctx, job)
	require.NoError(t, err)
	assert.False(t, duplicate)

	// A second submission with the same dedup key is swallowed.
	duplicate, err = q.Enqueue(ctx, newBookingJob(map[string]string{"owner_id": "owner-1", "date": "2026-09-10", "time": "09:00"}))
	require.NoError(t, err)
	assert.True(t, duplicate)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.NotEmpty(t, got.Raw)

	inFlight, err := q.InFlight(ctx)
	require.NoError(t, err)
	assert.Len(t, inFlight, 1)

	require.NoError(t, q.Ack(ctx, got))

	inFlight, err = q.InFlight(ctx)
	require.NoError(t, err)
	assert.Empty(t, inFlight)

	// After ack the dedup key is released and the job can be submitted again.
	duplicate, err = q.Enqueue(ctx, newBookingJob(map[string]string{"owner_id": "owner-1", "date": "2026-09-10", "time": "09:00"}))
	require.NoError(t, err)
	assert.False(t, duplicate)
}

func TestRedisQueueDequeueTimeoutIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	q := queue.NewRedisQueue(redisClient, time.Hour)

	got, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisQueueRequeueAndPromoteIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	q := queue.NewRedisQueue(redisClient, time.Hour)
	ctx := context.Background()

	job := newBookingJob(map[string]string{"owner_id": "owner-2", "date": "2026-09-11", "time": "10:00"})

	_, err := q.Enqueue(ctx, job)
	require.NoError(t, err)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)

	got.Attempts++
	require.NoError(t, q.Requeue(ctx, got, 50*time.Millisecond))

	// Not due yet.
	promoted, err := q.PromoteDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, promoted)

	time.Sleep(100 * time.Millisecond)

	promoted, err = q.PromoteDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	again, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 1, again.Attempts)

	require.NoError(t, q.Ack(ctx, again))
}
