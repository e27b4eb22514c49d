package repositories

import (
	"context"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create creates a new booking record
	Create(ctx context.Context, booking *entities.Booking) error

	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// UpdateStatus advances a booking's status. The transition must be
	// allowed from the booking's current status or the update is
	// rejected.
	UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error

	// SetExternalRef records the portal's reference and evidence path
	// reported by the execution agent.
	SetExternalRef(ctx context.Context, id, externalRef, evidencePath string) error

	// ListByOwner retrieves bookings for a client
	ListByOwner(ctx context.Context, ownerID string, filter BookingFilter) ([]*entities.Booking, error)
}

// BookingFilter defines filters for listing bookings
type BookingFilter struct {
	Status entities.BookingStatus
	Limit  int
	Offset int
}
