package entities

import "time"

// SlotEventType discriminates slot change notifications.
type SlotEventType string

const (
	SlotEventUpdate    SlotEventType = "slots_update"
	SlotEventLocked    SlotEventType = "slot_locked"
	SlotEventConfirmed SlotEventType = "slot_confirmed"
)

// SlotEvent is published whenever the slot picture for a clinic month
// changes. Count carries the number of available slots after the
// change so subscribers can render without re-fetching.
type SlotEvent struct {
	ID       string        `json:"id"`
	ClinicID string        `json:"clinic_id"`
	Month    string        `json:"month"`
	Type     SlotEventType `json:"type"`
	At       time.Time     `json:"at"`
	SlotID   string        `json:"slot_id,omitempty"`
	Holder   string        `json:"holder,omitempty"`
	Count    int           `json:"count"`
}
