package providers

import (
	"context"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// BookingResult is what the execution driver reports after a successful
// booking on the external portal.
type BookingResult struct {
	ExternalRef  string
	EvidencePath string
}

// ExecutionDriver defines the interface for driving the external
// scheduling portal. Implementations categorize failures with the
// application error taxonomy: timeouts and navigation failures are
// transient, a completed navigation that cannot locate the requested
// item is permanent.
type ExecutionDriver interface {
	// FetchSlots retrieves the portal's openings for a provider in a
	// "YYYY-MM" month.
	FetchSlots(ctx context.Context, providerID, month string) ([]entities.Slot, error)

	// BookSlot books the slot described by the job payload.
	BookSlot(ctx context.Context, job *entities.BookingJob) (*BookingResult, error)

	// BookFollowUp books the secondary reservation attached to a
	// primary booking.
	BookFollowUp(ctx context.Context, primary *entities.BookingJob, followUp *entities.FollowUpReservation) (*BookingResult, error)

	// CancelBooking cancels a previously made booking.
	CancelBooking(ctx context.Context, job *entities.CancellationJob) error

	// CreatePatientFile registers a first-time client on the portal and
	// returns the portal's identifier for the new file.
	CreatePatientFile(ctx context.Context, job *entities.ResourceJob) (string, error)
}
