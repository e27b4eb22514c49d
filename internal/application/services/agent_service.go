package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/observability"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
	"github.com/phoenixclinic/bookingcore/pkg/retry"
)

// AgentConfig tunes the execution agent's retry behaviour.
type AgentConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	DequeueTimeout time.Duration
}

// AgentService is the execution agent: it consumes jobs from the
// durable queue, drives the external portal through the driver, and
// reports outcomes back to the booking system.
//
// The portal's booking form is not idempotent, so a job whose attempt
// may have landed is never blindly re-driven: only failures the driver
// classifies as retryable go back on the queue, and a success whose
// report fails is acknowledged anyway rather than risking a double
// booking.
type AgentService struct {
	queue    providers.JobQueue
	driver   providers.ExecutionDriver
	reporter providers.CompletionReporter
	metrics  *observability.Metrics
	cfg      AgentConfig
}

// NewAgentService creates a new execution agent
func NewAgentService(
	queue providers.JobQueue,
	driver providers.ExecutionDriver,
	reporter providers.CompletionReporter,
	metrics *observability.Metrics,
	cfg AgentConfig,
) *AgentService {
	return &AgentService{
		queue:    queue,
		driver:   driver,
		reporter: reporter,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Run consumes jobs until the context is cancelled. A store outage is
// returned to the caller; everything else is handled per job.
func (a *AgentService) Run(ctx context.Context) error {
	log.Info().
		Int("max_attempts", a.cfg.MaxAttempts).
		Dur("backoff_base", a.cfg.BackoffBase).
		Dur("backoff_cap", a.cfg.BackoffCap).
		Msg("execution agent started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := a.queue.Dequeue(ctx, a.cfg.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if apperrors.IsFatal(err) {
				return err
			}
			log.Error().Err(err).Msg("dequeue failed")
			continue
		}
		if job == nil {
			continue
		}

		a.ProcessJob(ctx, job)
	}
}

// ProcessJob runs a single attempt of a job and decides its fate:
// acknowledge on success, requeue with backoff on a retryable failure,
// drop once attempts are exhausted.
func (a *AgentService) ProcessJob(ctx context.Context, job *entities.Job) {
	started := time.Now()
	err := a.execute(ctx, job)

	outcome := "done"
	switch {
	case err == nil:
		if ackErr := a.queue.Ack(ctx, job); ackErr != nil {
			log.Error().Err(ackErr).Str("job_id", job.ID).Msg("failed to ack completed job")
		}

	case !apperrors.IsRetryable(err):
		outcome = "dropped"
		log.Error().Err(err).
			Str("job_id", job.ID).
			Str("kind", string(job.Kind)).
			Msg("dropping job with non-retryable error")
		a.reportFailure(ctx, job, err)
		if ackErr := a.queue.Ack(ctx, job); ackErr != nil {
			log.Error().Err(ackErr).Str("job_id", job.ID).Msg("failed to ack dropped job")
		}

	case job.Attempts+1 >= a.cfg.MaxAttempts:
		outcome = "dropped"
		log.Error().Err(err).
			Str("job_id", job.ID).
			Str("kind", string(job.Kind)).
			Int("attempts", job.Attempts+1).
			Msg("dropping job after exhausting attempts")
		a.reportFailure(ctx, job, err)
		if ackErr := a.queue.Ack(ctx, job); ackErr != nil {
			log.Error().Err(ackErr).Str("job_id", job.ID).Msg("failed to ack dropped job")
		}

	default:
		outcome = "requeued"
		job.Attempts++
		delay := retry.Backoff(job.Attempts, a.cfg.BackoffBase, a.cfg.BackoffCap)
		log.Warn().Err(err).
			Str("job_id", job.ID).
			Str("kind", string(job.Kind)).
			Int("attempt", job.Attempts).
			Dur("delay", delay).
			Msg("requeuing job")
		if reqErr := a.queue.Requeue(ctx, job, delay); reqErr != nil {
			log.Error().Err(reqErr).Str("job_id", job.ID).Msg("failed to requeue job")
		}
	}

	if a.metrics != nil {
		observability.RecordJobAttempt(ctx, a.metrics, string(job.Kind), outcome, time.Since(started))
	}
}

func (a *AgentService) execute(ctx context.Context, job *entities.Job) error {
	switch job.Kind {
	case entities.JobKindBooking:
		if job.Booking == nil {
			return apperrors.NewValidationError("booking job without payload")
		}
		return a.executeBooking(ctx, job.Booking)

	case entities.JobKindCancellation:
		if job.Cancellation == nil {
			return apperrors.NewValidationError("cancellation job without payload")
		}
		if err := a.driver.CancelBooking(ctx, job.Cancellation); err != nil {
			return err
		}
		a.report(ctx, func(rctx context.Context) error {
			return a.reporter.CancellationDone(rctx, job.Cancellation.BookingID)
		}, "cancellation done", job.Cancellation.BookingID)
		return nil

	case entities.JobKindResourceCreation:
		if job.Resource == nil {
			return apperrors.NewValidationError("resource job without payload")
		}
		externalID, err := a.driver.CreatePatientFile(ctx, job.Resource)
		if err != nil {
			return err
		}
		a.report(ctx, func(rctx context.Context) error {
			return a.reporter.PatientFileCreated(rctx, job.Resource.OwnerID, externalID)
		}, "patient file created", job.Resource.OwnerID)
		return nil

	default:
		return apperrors.NewValidationError("unknown job kind: " + string(job.Kind))
	}
}

// executeBooking books the primary slot, then the follow-up if one is
// attached. A follow-up failure is logged and contained; the primary
// booking stands and is never re-driven because of it.
func (a *AgentService) executeBooking(ctx context.Context, payload *entities.BookingJob) error {
	result, err := a.driver.BookSlot(ctx, payload)
	if err != nil {
		return err
	}

	a.report(ctx, func(rctx context.Context) error {
		return a.reporter.BookingConfirmed(rctx, payload.BookingID, result.ExternalRef, result.EvidencePath)
	}, "booking confirmed", payload.BookingID)

	if payload.FollowUp != nil {
		if _, fuErr := a.driver.BookFollowUp(ctx, payload, payload.FollowUp); fuErr != nil {
			log.Error().Err(fuErr).
				Str("booking_id", payload.BookingID).
				Str("follow_up_date", payload.FollowUp.Date).
				Msg("follow-up booking failed, primary booking stands")
		}
	}
	return nil
}

// report delivers an outcome with bounded retries. Reporting is best
// effort: the job is acknowledged either way, since re-driving the
// portal to fix a lost report would double-book.
func (a *AgentService) report(ctx context.Context, fn func(context.Context) error, what, id string) {
	cfg := retry.Config{
		MaxAttempts:     4,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 30 * time.Second,
	}
	err := retry.Do(ctx, cfg, func() error { return fn(ctx) })
	if err != nil {
		log.Error().Err(err).Str("id", id).Msgf("failed to report %s, manual reconciliation needed", what)
	}
}

func (a *AgentService) reportFailure(ctx context.Context, job *entities.Job, cause error) {
	if job.Kind != entities.JobKindBooking || job.Booking == nil {
		return
	}
	a.report(ctx, func(rctx context.Context) error {
		return a.reporter.BookingFailed(rctx, job.Booking.BookingID, cause.Error())
	}, "booking failure", job.Booking.BookingID)
}

// RunPromoter periodically moves delayed jobs whose backoff has elapsed
// back onto the ready list.
func (a *AgentService) RunPromoter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.queue.PromoteDue(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("failed to promote delayed jobs")
				continue
			}
			if n > 0 {
				log.Debug().Int("promoted", n).Msg("promoted delayed jobs")
			}
		}
	}
}
