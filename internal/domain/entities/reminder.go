package entities

import "time"

// Reminder is a scheduled pre-appointment notification. FireAt is the
// appointment start minus the configured lead time.
type Reminder struct {
	BookingID string    `json:"booking_id"`
	OwnerID   string    `json:"owner_id"`
	ClinicID  string    `json:"clinic_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	FireAt    time.Time `json:"fire_at"`
}

// ReminderFireAt computes when a reminder for the given appointment
// start should fire.
func ReminderFireAt(start time.Time, lead time.Duration) time.Time {
	return start.Add(-lead)
}
