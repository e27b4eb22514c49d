package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	"github.com/phoenixclinic/bookingcore/internal/domain/repositories"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/observability"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

// BookingService orchestrates the reservation flow: lock a slot while
// the client completes checkout, flip it on confirm, enqueue the work
// that drives the external portal, and track the booking record.
type BookingService struct {
	slotStore providers.SlotStore
	lock      providers.ReservationLock
	queue     providers.JobQueue
	bookings  repositories.BookingRepository
	eventBus  providers.EventBus
	patients  providers.PatientDirectory
	reminders *ReminderService
	metrics   *observability.Metrics

	clinicID string
	lockTTL  time.Duration
	loc      *time.Location
}

// ConfirmRequest carries the client details needed to confirm a locked
// slot.
type ConfirmRequest struct {
	SlotID    string
	OwnerID   string
	OwnerName string
	Phone     string
	Note      string
	FollowUp  *entities.FollowUpReservation
}

// NewBookingService creates a new booking service
func NewBookingService(
	slotStore providers.SlotStore,
	lock providers.ReservationLock,
	queue providers.JobQueue,
	bookings repositories.BookingRepository,
	eventBus providers.EventBus,
	patients providers.PatientDirectory,
	reminders *ReminderService,
	metrics *observability.Metrics,
	clinicID string,
	lockTTL time.Duration,
	loc *time.Location,
) *BookingService {
	return &BookingService{
		slotStore: slotStore,
		lock:      lock,
		queue:     queue,
		bookings:  bookings,
		eventBus:  eventBus,
		patients:  patients,
		reminders: reminders,
		metrics:   metrics,
		clinicID:  clinicID,
		lockTTL:   lockTTL,
		loc:       loc,
	}
}

// ListSlots returns the cached slots for a month bucket.
func (s *BookingService) ListSlots(ctx context.Context, month string) ([]entities.Slot, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	return s.slotStore.Snapshot(ctx, s.clinicID, month)
}

// AcquireLock takes the reservation lock on a slot for the holder. The
// same holder may call again to renew; a different holder gets a
// contention error.
func (s *BookingService) AcquireLock(ctx context.Context, month, slotID, holder string) error {
	if holder == "" {
		return apperrors.NewValidationError("holder is required")
	}

	slot, err := s.slotStore.FindSlot(ctx, s.clinicID, month, slotID)
	if err != nil {
		return err
	}
	if !slot.Available {
		if s.metrics != nil {
			observability.RecordLockContention(ctx, s.metrics, s.clinicID)
		}
		return apperrors.NewContentionError("slot is no longer available")
	}

	ok, err := s.lock.Acquire(ctx, slotID, holder, s.lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		if s.metrics != nil {
			observability.RecordLockContention(ctx, s.metrics, s.clinicID)
		}
		return apperrors.NewContentionError("slot is locked by another client")
	}

	s.publish(ctx, slot.Month(), &entities.SlotEvent{
		ID:       uuid.NewString(),
		ClinicID: s.clinicID,
		Month:    slot.Month(),
		Type:     entities.SlotEventLocked,
		At:       time.Now().UTC(),
		SlotID:   slotID,
		Holder:   holder,
	})
	return nil
}

// ReleaseLock drops the holder's lock on a slot.
func (s *BookingService) ReleaseLock(ctx context.Context, slotID, holder string) error {
	return s.lock.Release(ctx, slotID, holder)
}

// Confirm turns a locked slot into a pending booking: the slot is
// flipped in the cache, a booking record is written, and a booking job
// is enqueued for the execution agent. The caller must hold the lock.
func (s *BookingService) Confirm(ctx context.Context, month string, req ConfirmRequest) (*entities.Booking, error) {
	if req.OwnerID == "" {
		return nil, apperrors.NewValidationError("owner id is required")
	}

	// An expired lock is tolerated so a slow client can still confirm,
	// as long as nobody else holds the slot now.
	holder, err := s.lock.Holder(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if holder != "" && holder != req.OwnerID {
		return nil, apperrors.NewUnauthorizedError("slot is locked by another client")
	}

	slot, err := s.slotStore.FindSlot(ctx, s.clinicID, month, req.SlotID)
	if err != nil {
		return nil, err
	}
	if !slot.Available {
		if slot.ReservedBy == req.OwnerID {
			// Repeated confirm by the same client returns the booking
			// already created.
			return s.bookings.GetByID(ctx, entities.NewBookingID(slot))
		}
		return nil, apperrors.NewContentionError("slot was taken before confirmation")
	}

	slots, err := s.slotStore.MarkUnavailable(ctx, s.clinicID, month, req.SlotID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking := &entities.Booking{
		ID:           entities.NewBookingID(slot),
		OwnerID:      req.OwnerID,
		OwnerName:    req.OwnerName,
		Phone:        req.Phone,
		ClinicID:     s.clinicID,
		ProviderID:   slot.ProviderID,
		ProviderName: slot.ProviderName,
		ServiceID:    slot.ServiceID,
		ServiceName:  slot.ServiceName,
		SlotID:       slot.ID,
		Date:         slot.Date,
		Time:         slot.Time,
		Status:       entities.BookingStatusPending,
		Invoice: &entities.Invoice{
			Number:   "INV-" + uuid.NewString()[:8],
			Currency: "SAR",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	if err := s.enqueueBooking(ctx, booking, slot, req); err != nil {
		return nil, err
	}
	s.maybeEnqueueFileCreation(ctx, req)

	if err := s.lock.Release(ctx, req.SlotID, req.OwnerID); err != nil {
		log.Warn().Err(err).Str("slot_id", req.SlotID).Msg("failed to release lock after confirm")
	}

	s.publish(ctx, slot.Month(), &entities.SlotEvent{
		ID:       uuid.NewString(),
		ClinicID: s.clinicID,
		Month:    slot.Month(),
		Type:     entities.SlotEventConfirmed,
		At:       now,
		SlotID:   slot.ID,
		Count:    entities.CountAvailable(slots),
	})
	return booking, nil
}

func (s *BookingService) enqueueBooking(ctx context.Context, booking *entities.Booking, slot *entities.Slot, req ConfirmRequest) error {
	job := &entities.Job{
		ID:   uuid.NewString(),
		Kind: entities.JobKindBooking,
		DedupKey: entities.NewDedupKey(map[string]string{
			"owner_id":    req.OwnerID,
			"clinic_id":   s.clinicID,
			"provider_id": slot.ProviderID,
			"date":        slot.Date,
			"time":        slot.Time,
		}),
		CreatedAt: time.Now().UTC(),
		Booking: &entities.BookingJob{
			BookingID:  booking.ID,
			OwnerID:    req.OwnerID,
			OwnerName:  req.OwnerName,
			Phone:      req.Phone,
			ClinicID:   s.clinicID,
			ProviderID: slot.ProviderID,
			ServiceID:  slot.ServiceID,
			Date:       slot.Date,
			Time:       slot.Time,
			RawToken:   slot.RawToken,
			Note:       req.Note,
			FollowUp:   req.FollowUp,
		},
	}

	duplicate, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		return err
	}
	if duplicate {
		// same client, same slot: the earlier job will land it
		log.Info().Str("booking_id", booking.ID).Msg("booking job already pending, not enqueued again")
	}
	return nil
}

// maybeEnqueueFileCreation enqueues a patient file creation job for
// first-time clients. Failures here never block the booking.
func (s *BookingService) maybeEnqueueFileCreation(ctx context.Context, req ConfirmRequest) {
	has, err := s.patients.HasFile(ctx, req.OwnerID)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", req.OwnerID).Msg("failed to check patient file")
		return
	}
	if has {
		return
	}

	job := &entities.Job{
		ID:   uuid.NewString(),
		Kind: entities.JobKindResourceCreation,
		DedupKey: entities.NewDedupKey(map[string]string{
			"kind":      string(entities.JobKindResourceCreation),
			"owner_id":  req.OwnerID,
			"clinic_id": s.clinicID,
		}),
		CreatedAt: time.Now().UTC(),
		Resource: &entities.ResourceJob{
			OwnerID:   req.OwnerID,
			OwnerName: req.OwnerName,
			Phone:     req.Phone,
			ClinicID:  s.clinicID,
		},
	}

	duplicate, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", req.OwnerID).Msg("failed to enqueue patient file creation")
		return
	}
	if !duplicate {
		if err := s.patients.MarkQueued(ctx, req.OwnerID); err != nil {
			log.Warn().Err(err).Str("owner_id", req.OwnerID).Msg("failed to mark patient file queued")
		}
	}
}

// Cancel moves a booking to cancelling and enqueues a cancellation job.
// Cancellation closes two hours before the appointment.
func (s *BookingService) Cancel(ctx context.Context, bookingID, ownerID string) (*entities.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, apperrors.NewUnauthorizedError("booking belongs to another client")
	}
	if !booking.CanTransition(entities.BookingStatusCancelling) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("booking in status %s cannot be cancelled", booking.Status))
	}

	ok, err := booking.CanCancel(time.Now(), s.loc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewValidationError("too late to cancel")
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, entities.BookingStatusCancelling); err != nil {
		return nil, err
	}
	booking.Status = entities.BookingStatusCancelling

	job := &entities.Job{
		ID:   uuid.NewString(),
		Kind: entities.JobKindCancellation,
		DedupKey: entities.NewDedupKey(map[string]string{
			"kind":       string(entities.JobKindCancellation),
			"booking_id": bookingID,
		}),
		CreatedAt: time.Now().UTC(),
		Cancellation: &entities.CancellationJob{
			BookingID:   bookingID,
			OwnerID:     ownerID,
			ClinicID:    booking.ClinicID,
			ExternalRef: booking.ExternalRef,
			Date:        booking.Date,
			Time:        booking.Time,
		},
	}
	if _, err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	if s.reminders != nil {
		if err := s.reminders.CancelForBooking(ctx, bookingID); err != nil {
			log.Warn().Err(err).Str("booking_id", bookingID).Msg("failed to cancel reminder")
		}
	}
	return booking, nil
}

// ListBookings returns a client's bookings.
func (s *BookingService) ListBookings(ctx context.Context, ownerID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	if ownerID == "" {
		return nil, apperrors.NewValidationError("owner id is required")
	}
	return s.bookings.ListByOwner(ctx, ownerID, filter)
}

// GetBooking returns a booking visible to its owner.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, ownerID string) (*entities.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, apperrors.NewUnauthorizedError("booking belongs to another client")
	}
	return booking, nil
}

// MarkJobConfirmed is called from the internal callback when the agent
// lands a booking on the portal.
func (s *BookingService) MarkJobConfirmed(ctx context.Context, bookingID, externalRef, evidencePath string) error {
	if err := s.bookings.UpdateStatus(ctx, bookingID, entities.BookingStatusConfirmed); err != nil {
		return err
	}
	if err := s.bookings.SetExternalRef(ctx, bookingID, externalRef, evidencePath); err != nil {
		return err
	}

	if s.reminders != nil {
		booking, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.reminders.ScheduleForBooking(ctx, booking); err != nil {
			log.Warn().Err(err).Str("booking_id", bookingID).Msg("failed to schedule reminder")
		}
	}
	return nil
}

// MarkJobFailed is called from the internal callback when the agent
// drops a booking after exhausting its attempts.
func (s *BookingService) MarkJobFailed(ctx context.Context, bookingID, reason string) error {
	log.Error().Str("booking_id", bookingID).Str("reason", reason).Msg("booking dropped by execution agent")
	return s.bookings.UpdateStatus(ctx, bookingID, entities.BookingStatusFailed)
}

// MarkJobCancelled is called from the internal callback when the agent
// lands a cancellation on the portal.
func (s *BookingService) MarkJobCancelled(ctx context.Context, bookingID string) error {
	return s.bookings.UpdateStatus(ctx, bookingID, entities.BookingStatusCancelled)
}

// NotifyResourceCreated records the portal's patient file identifier.
func (s *BookingService) NotifyResourceCreated(ctx context.Context, ownerID, externalID string) error {
	return s.patients.SaveExternalID(ctx, ownerID, externalID)
}

func (s *BookingService) publish(ctx context.Context, month string, event *entities.SlotEvent) {
	if s.eventBus == nil {
		return
	}
	channel := providers.UpdatesChannel(s.clinicID, month)
	if err := s.eventBus.Publish(ctx, channel, event); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to publish slot event")
	}
}

func validateMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return apperrors.NewValidationError("month must be YYYY-MM")
	}
	return nil
}
