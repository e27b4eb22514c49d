package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
)

// ReminderService schedules pre-appointment reminders and sweeps the
// due ones out to clients.
type ReminderService struct {
	store    providers.ReminderStore
	notifier providers.Notifier
	resolver providers.ChannelResolver

	lead time.Duration
	loc  *time.Location
}

// NewReminderService creates a new reminder service
func NewReminderService(
	store providers.ReminderStore,
	notifier providers.Notifier,
	resolver providers.ChannelResolver,
	lead time.Duration,
	loc *time.Location,
) *ReminderService {
	return &ReminderService{
		store:    store,
		notifier: notifier,
		resolver: resolver,
		lead:     lead,
		loc:      loc,
	}
}

// ScheduleForBooking records a reminder at the booking's start minus
// the lead time. A fire time already in the past is skipped.
func (s *ReminderService) ScheduleForBooking(ctx context.Context, booking *entities.Booking) error {
	start, err := (&entities.Slot{Date: booking.Date, Time: booking.Time}).StartTime(s.loc)
	if err != nil {
		return err
	}

	fireAt := entities.ReminderFireAt(start, s.lead)
	if !fireAt.After(time.Now()) {
		log.Debug().Str("booking_id", booking.ID).Msg("reminder fire time already past, skipping")
		return nil
	}

	return s.store.Schedule(ctx, &entities.Reminder{
		BookingID: booking.ID,
		OwnerID:   booking.OwnerID,
		ClinicID:  booking.ClinicID,
		Date:      booking.Date,
		Time:      booking.Time,
		FireAt:    fireAt,
	})
}

// CancelForBooking removes any pending reminder for a booking.
func (s *ReminderService) CancelForBooking(ctx context.Context, bookingID string) error {
	return s.store.Cancel(ctx, bookingID)
}

// SweepOnce delivers every reminder due at or before now. A client
// without a registered delivery token loses the reminder; that is
// logged, not retried, because the token will not appear by retrying.
func (s *ReminderService) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.PopDue(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, reminder := range due {
		token, err := s.resolver.Resolve(ctx, reminder.OwnerID)
		if err != nil {
			log.Error().Err(err).Str("booking_id", reminder.BookingID).Msg("failed to resolve delivery token")
			continue
		}
		if token == "" {
			log.Warn().
				Str("booking_id", reminder.BookingID).
				Str("owner_id", reminder.OwnerID).
				Msg("no delivery token registered, dropping reminder")
			continue
		}

		body := fmt.Sprintf("Your appointment is at %s on %s.", reminder.Time, reminder.Date)
		if err := s.notifier.Send(ctx, token, "Appointment reminder", body); err != nil {
			log.Error().Err(err).Str("booking_id", reminder.BookingID).Msg("failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}
