package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Slot represents a single bookable appointment opening at a clinic.
// Date is "YYYY-MM-DD" and Time is "HH:MM" in the clinic's local zone.
// RawToken carries the opaque value the scheduling portal uses to
// identify the opening; it is never interpreted, only echoed back.
type Slot struct {
	ID           string     `json:"id"`
	ClinicID     string     `json:"clinic_id"`
	ProviderID   string     `json:"provider_id"`
	ProviderName string     `json:"provider_name,omitempty"`
	ServiceID    string     `json:"service_id,omitempty"`
	ServiceName  string     `json:"service_name,omitempty"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Available    bool       `json:"available"`
	ReservedBy   string     `json:"reserved_by,omitempty"`
	ReservedAt   *time.Time `json:"reserved_at,omitempty"`
	RawToken     string     `json:"raw_token,omitempty"`
}

// SlotID derives a deterministic identifier from the slot's identity
// fields so that repeated refreshes assign the same id to the same
// opening.
func SlotID(providerID, date, timeOfDay string) string {
	sum := sha256.Sum256([]byte(providerID + "|" + date + "|" + timeOfDay))
	return hex.EncodeToString(sum[:])[:16]
}

// StartTime parses the slot's date and time in the given location.
func (s *Slot) StartTime(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot date/time %q %q: %w", s.Date, s.Time, err)
	}
	return t, nil
}

// Month returns the "YYYY-MM" bucket the slot belongs to.
func (s *Slot) Month() string {
	if len(s.Date) < 7 {
		return s.Date
	}
	return s.Date[:7]
}

// CountAvailable returns how many slots are still open.
func CountAvailable(slots []Slot) int {
	n := 0
	for i := range slots {
		if slots[i].Available {
			n++
		}
	}
	return n
}
