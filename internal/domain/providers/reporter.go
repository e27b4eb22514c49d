package providers

import "context"

// CompletionReporter defines the interface the execution agent uses to
// report job outcomes back to the booking system.
type CompletionReporter interface {
	// BookingConfirmed reports that the portal accepted the booking.
	BookingConfirmed(ctx context.Context, bookingID, externalRef, evidencePath string) error

	// BookingFailed reports that the booking was dropped after
	// exhausting its attempts.
	BookingFailed(ctx context.Context, bookingID, reason string) error

	// CancellationDone reports that the portal accepted the
	// cancellation.
	CancellationDone(ctx context.Context, bookingID string) error

	// PatientFileCreated reports the portal identifier of a newly
	// created patient file.
	PatientFileCreated(ctx context.Context, ownerID, externalID string) error
}
