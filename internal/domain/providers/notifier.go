package providers

import (
	"context"
	"time"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// Notifier defines the interface for delivering messages to clients
type Notifier interface {
	// Send delivers a message to the device identified by token.
	Send(ctx context.Context, token, title, body string) error
}

// ChannelResolver defines the interface for resolving a client's
// delivery token. A missing token returns ("", nil); the caller decides
// what to do about it.
type ChannelResolver interface {
	Resolve(ctx context.Context, ownerID string) (string, error)
}

// ReminderStore defines the interface for the time-ordered reminder
// schedule.
type ReminderStore interface {
	// Schedule records a reminder to fire at its FireAt instant.
	Schedule(ctx context.Context, reminder *entities.Reminder) error

	// PopDue atomically removes and returns reminders due at or before
	// now. Each reminder is returned to exactly one caller.
	PopDue(ctx context.Context, now time.Time) ([]*entities.Reminder, error)

	// Cancel removes any pending reminder for a booking.
	Cancel(ctx context.Context, bookingID string) error
}
