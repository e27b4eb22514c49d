package providers

import (
	"context"
	"time"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

// SlotStore defines the interface for the shared slot cache, keyed by
// clinic and "YYYY-MM" month bucket.
type SlotStore interface {
	// Snapshot returns the cached slots for a clinic month. A missing
	// bucket returns an empty slice.
	Snapshot(ctx context.Context, clinicID, month string) ([]entities.Slot, error)

	// ReplaceSnapshot atomically replaces a month bucket with freshly
	// fetched slots, merged so reserved slots are not resurrected. The
	// returned flag is false when the merged bucket is identical to the
	// previous one.
	ReplaceSnapshot(ctx context.Context, clinicID, month string, slots []entities.Slot) ([]entities.Slot, bool, error)

	// FindSlot looks a slot up by id, first in the given month bucket,
	// then across the clinic's other cached months.
	FindSlot(ctx context.Context, clinicID, month, slotID string) (*entities.Slot, error)

	// MarkUnavailable flips a slot to unavailable and records who took
	// it. Returns the updated bucket.
	MarkUnavailable(ctx context.Context, clinicID, month, slotID, reservedBy string) ([]entities.Slot, error)
}

// ReservationLock defines the interface for the short-lived per-slot
// lock held while a client completes checkout.
type ReservationLock interface {
	// Acquire takes the lock for holder, or renews it when holder
	// already owns it. Returns false when a different holder owns the
	// lock.
	Acquire(ctx context.Context, slotID, holder string, ttl time.Duration) (bool, error)

	// Release drops the lock if holder owns it.
	Release(ctx context.Context, slotID, holder string) error

	// Holder returns the current lock holder, or "" when unlocked.
	Holder(ctx context.Context, slotID string) (string, error)
}
