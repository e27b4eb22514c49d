package providers

import (
	"context"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to slot
// change events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SlotEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SlotEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelUpdatesPrefix is the prefix for per clinic-month update
// channels
const EventChannelUpdatesPrefix = "slots:updates:"

// UpdatesChannel returns the channel name for a clinic's month bucket
func UpdatesChannel(clinicID, month string) string {
	return EventChannelUpdatesPrefix + clinicID + ":" + month
}
