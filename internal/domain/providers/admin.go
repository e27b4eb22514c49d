package providers

import (
	"context"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// HoursProvider defines the interface for per-provider visibility
// windows. A provider with no configured period returns (nil, nil).
type HoursProvider interface {
	AllowedPeriod(ctx context.Context, providerID string) (*entities.AllowedPeriod, error)
}

// PatientDirectory defines the interface for tracking which clients
// already have a patient file on the portal, so file creation is
// enqueued at most once per client within the marker window.
type PatientDirectory interface {
	// HasFile reports whether a file exists or creation is already
	// pending for the client.
	HasFile(ctx context.Context, ownerID string) (bool, error)

	// MarkQueued records that file creation has been enqueued.
	MarkQueued(ctx context.Context, ownerID string) error

	// SaveExternalID stores the portal's identifier once the file has
	// been created.
	SaveExternalID(ctx context.Context, ownerID, externalID string) error

	// ExternalID returns the stored portal identifier, or "" when the
	// file has not been created yet.
	ExternalID(ctx context.Context, ownerID string) (string, error)
}
