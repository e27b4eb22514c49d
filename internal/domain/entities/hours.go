package entities

import "time"

// AllowedPeriod restricts which portal openings are exposed to clients.
// From and To are "HH:MM" bounds, inclusive of From and exclusive of To.
// Friday is the clinic's special day and is only offered when
// AllowFriday is set. A disabled period lets everything through.
type AllowedPeriod struct {
	Enabled     bool   `json:"enabled"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	AllowFriday bool   `json:"allow_friday"`
}

// Allows reports whether a slot falls inside the period.
func (p *AllowedPeriod) Allows(slot *Slot, loc *time.Location) bool {
	if !p.Enabled {
		return true
	}

	start, err := slot.StartTime(loc)
	if err != nil {
		return false
	}
	if start.Weekday() == time.Friday && !p.AllowFriday {
		return false
	}

	if p.From != "" && slot.Time < p.From {
		return false
	}
	if p.To != "" && slot.Time >= p.To {
		return false
	}
	return true
}

// FilterAllowed returns the slots permitted by the period, preserving
// order.
func FilterAllowed(slots []Slot, period *AllowedPeriod, loc *time.Location) []Slot {
	if period == nil {
		return slots
	}
	out := make([]Slot, 0, len(slots))
	for i := range slots {
		if period.Allows(&slots[i], loc) {
			out = append(out, slots[i])
		}
	}
	return out
}
