package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

// MockDriver implements the ExecutionDriver interface in memory for
// development and demos. It generates a stable weekday schedule and
// remembers what it has booked.
type MockDriver struct {
	mu       sync.Mutex
	booked   map[string]string // "provider|date|time" -> external ref
	patients map[string]string // owner id -> file number
}

// NewMockDriver creates a new in-memory execution driver
func NewMockDriver() providers.ExecutionDriver {
	return &MockDriver{
		booked:   make(map[string]string),
		patients: make(map[string]string),
	}
}

// FetchSlots generates half-hour openings from 09:00 to 12:00 on the
// first 20 days of the month, skipping anything already booked.
func (d *MockDriver) FetchSlots(ctx context.Context, providerID, month string) ([]entities.Slot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var slots []entities.Slot
	for day := 1; day <= 20; day++ {
		date := fmt.Sprintf("%s-%02d", month, day)
		for hour := 9; hour < 12; hour++ {
			for _, minute := range []string{"00", "30"} {
				timeOfDay := fmt.Sprintf("%02d:%s", hour, minute)
				if _, taken := d.booked[providerID+"|"+date+"|"+timeOfDay]; taken {
					continue
				}
				slots = append(slots, entities.Slot{
					ID:         entities.SlotID(providerID, date, timeOfDay),
					ProviderID: providerID,
					Date:       date,
					Time:       timeOfDay,
					Available:  true,
					RawToken:   "mock-" + entities.SlotID(providerID, date, timeOfDay),
				})
			}
		}
	}
	return slots, nil
}

// BookSlot books the slot described by the job payload
func (d *MockDriver) BookSlot(ctx context.Context, job *entities.BookingJob) (*providers.BookingResult, error) {
	return d.book(job.ProviderID, job.Date, job.Time)
}

// BookFollowUp books the secondary reservation attached to a primary
// booking
func (d *MockDriver) BookFollowUp(ctx context.Context, primary *entities.BookingJob, followUp *entities.FollowUpReservation) (*providers.BookingResult, error) {
	return d.book(followUp.ProviderID, followUp.Date, followUp.Time)
}

func (d *MockDriver) book(providerID, date, timeOfDay string) (*providers.BookingResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := providerID + "|" + date + "|" + timeOfDay
	if _, taken := d.booked[key]; taken {
		return nil, apperrors.NewPermanentExternalError("slot already booked: "+key, nil)
	}
	ref := "MOCK-" + uuid.NewString()[:8]
	d.booked[key] = ref
	return &providers.BookingResult{ExternalRef: ref}, nil
}

// CancelBooking cancels a previously made booking
func (d *MockDriver) CancelBooking(ctx context.Context, job *entities.CancellationJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, ref := range d.booked {
		if ref == job.ExternalRef {
			delete(d.booked, key)
			return nil
		}
	}
	return apperrors.NewPermanentExternalError("no booking with ref "+job.ExternalRef, nil)
}

// CreatePatientFile registers a first-time client
func (d *MockDriver) CreatePatientFile(ctx context.Context, job *entities.ResourceJob) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if file, ok := d.patients[job.OwnerID]; ok {
		return file, nil
	}
	file := "F-" + uuid.NewString()[:8]
	d.patients[job.OwnerID] = file
	return file, nil
}
