package providers

import (
	"context"
	"time"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// JobQueue defines the interface for the durable job queue. Jobs move
// from the ready list to a processing list on dequeue and stay there
// until acknowledged, so a crashed consumer leaves its job recoverable.
type JobQueue interface {
	// Enqueue appends a job to the ready list. The returned flag is true
	// when a job with the same dedup key is already pending and the job
	// was not enqueued again.
	Enqueue(ctx context.Context, job *entities.Job) (duplicate bool, err error)

	// Dequeue blocks up to timeout for the next job, moving it to the
	// processing list. A nil job with nil error means the timeout
	// elapsed with nothing to do.
	Dequeue(ctx context.Context, timeout time.Duration) (*entities.Job, error)

	// Ack removes a processed job from the processing list and releases
	// its dedup key.
	Ack(ctx context.Context, job *entities.Job) error

	// Requeue removes the job from the processing list and schedules it
	// to re-enter the ready list after delay. The dedup key is retained.
	Requeue(ctx context.Context, job *entities.Job, delay time.Duration) error

	// PromoteDue moves jobs whose requeue delay has elapsed back onto
	// the ready list, returning how many were promoted.
	PromoteDue(ctx context.Context, now time.Time) (int, error)

	// InFlight returns jobs currently on the processing list.
	InFlight(ctx context.Context) ([]*entities.Job, error)
}
