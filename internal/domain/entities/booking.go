package entities

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking. Transitions are
// monotonic: pending -> confirmed -> cancelling -> cancelled, with
// failed reachable only from pending.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCancelling BookingStatus = "cancelling"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusFailed     BookingStatus = "failed"
)

// Booking is the durable record of a client's reservation. ExternalRef
// is the portal's own reference, set once the execution agent reports
// success.
type Booking struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	OwnerName    string        `json:"owner_name,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	ClinicID     string        `json:"clinic_id"`
	ProviderID   string        `json:"provider_id"`
	ProviderName string        `json:"provider_name,omitempty"`
	ServiceID    string        `json:"service_id,omitempty"`
	ServiceName  string        `json:"service_name,omitempty"`
	SlotID       string        `json:"slot_id"`
	Date         string        `json:"date"`
	Time         string        `json:"time"`
	Status       BookingStatus `json:"status"`
	ExternalRef  string        `json:"external_ref,omitempty"`
	EvidencePath string        `json:"evidence_path,omitempty"`
	Invoice      *Invoice      `json:"invoice,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Invoice is the placeholder billing stub attached at confirmation.
type Invoice struct {
	Number   string  `json:"number"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Issued   bool    `json:"issued"`
}

// NewBookingID derives the booking identifier from the slot it covers:
// "bk_" + date without dashes + "_" + slot id.
func NewBookingID(slot *Slot) string {
	return "bk_" + strings.ReplaceAll(slot.Date, "-", "") + "_" + slot.ID
}

// CanTransition reports whether a status change is allowed.
func (b *Booking) CanTransition(to BookingStatus) bool {
	switch b.Status {
	case BookingStatusPending:
		return to == BookingStatusConfirmed || to == BookingStatusFailed || to == BookingStatusCancelling
	case BookingStatusConfirmed:
		return to == BookingStatusCancelling
	case BookingStatusCancelling:
		return to == BookingStatusCancelled
	default:
		return false
	}
}

// CanCancel reports whether the booking may still be cancelled at the
// given instant. Cancellation closes two hours before the appointment
// starts.
func (b *Booking) CanCancel(now time.Time, loc *time.Location) (bool, error) {
	start, err := (&Slot{Date: b.Date, Time: b.Time}).StartTime(loc)
	if err != nil {
		return false, err
	}
	return now.Before(start.Add(-2 * time.Hour)), nil
}
