package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	"github.com/phoenixclinic/bookingcore/internal/domain/repositories"
)

// Mocks

type MockSlotStore struct {
	mock.Mock
}

func (m *MockSlotStore) Snapshot(ctx context.Context, clinicID, month string) ([]entities.Slot, error) {
	args := m.Called(ctx, clinicID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Slot), args.Error(1)
}

func (m *MockSlotStore) ReplaceSnapshot(ctx context.Context, clinicID, month string, slots []entities.Slot) ([]entities.Slot, bool, error) {
	args := m.Called(ctx, clinicID, month, slots)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).([]entities.Slot), args.Bool(1), args.Error(2)
}

func (m *MockSlotStore) FindSlot(ctx context.Context, clinicID, month, slotID string) (*entities.Slot, error) {
	args := m.Called(ctx, clinicID, month, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Slot), args.Error(1)
}

func (m *MockSlotStore) MarkUnavailable(ctx context.Context, clinicID, month, slotID, reservedBy string) ([]entities.Slot, error) {
	args := m.Called(ctx, clinicID, month, slotID, reservedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Slot), args.Error(1)
}

type MockReservationLock struct {
	mock.Mock
}

func (m *MockReservationLock) Acquire(ctx context.Context, slotID, holder string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, slotID, holder, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationLock) Release(ctx context.Context, slotID, holder string) error {
	args := m.Called(ctx, slotID, holder)
	return args.Error(0)
}

func (m *MockReservationLock) Holder(ctx context.Context, slotID string) (string, error) {
	args := m.Called(ctx, slotID)
	return args.String(0), args.Error(1)
}

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *entities.Job) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*entities.Job, error) {
	args := m.Called(ctx, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Job), args.Error(1)
}

func (m *MockJobQueue) Ack(ctx context.Context, job *entities.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobQueue) Requeue(ctx context.Context, job *entities.Job, delay time.Duration) error {
	args := m.Called(ctx, job, delay)
	return args.Error(0)
}

func (m *MockJobQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockJobQueue) InFlight(ctx context.Context) ([]*entities.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Job), args.Error(1)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *entities.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepository) SetExternalRef(ctx context.Context, id, externalRef, evidencePath string) error {
	args := m.Called(ctx, id, externalRef, evidencePath)
	return args.Error(0)
}

func (m *MockBookingRepository) ListByOwner(ctx context.Context, ownerID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.SlotEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SlotEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.SlotEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPatientDirectory struct {
	mock.Mock
}

func (m *MockPatientDirectory) HasFile(ctx context.Context, ownerID string) (bool, error) {
	args := m.Called(ctx, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPatientDirectory) MarkQueued(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *MockPatientDirectory) SaveExternalID(ctx context.Context, ownerID, externalID string) error {
	args := m.Called(ctx, ownerID, externalID)
	return args.Error(0)
}

func (m *MockPatientDirectory) ExternalID(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

type MockReminderStore struct {
	mock.Mock
}

func (m *MockReminderStore) Schedule(ctx context.Context, reminder *entities.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *MockReminderStore) PopDue(ctx context.Context, now time.Time) ([]*entities.Reminder, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Reminder), args.Error(1)
}

func (m *MockReminderStore) Cancel(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, token, title, body string) error {
	args := m.Called(ctx, token, title, body)
	return args.Error(0)
}

type MockChannelResolver struct {
	mock.Mock
}

func (m *MockChannelResolver) Resolve(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

type MockExecutionDriver struct {
	mock.Mock
}

func (m *MockExecutionDriver) FetchSlots(ctx context.Context, providerID, month string) ([]entities.Slot, error) {
	args := m.Called(ctx, providerID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Slot), args.Error(1)
}

func (m *MockExecutionDriver) BookSlot(ctx context.Context, job *entities.BookingJob) (*providers.BookingResult, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.BookingResult), args.Error(1)
}

func (m *MockExecutionDriver) BookFollowUp(ctx context.Context, primary *entities.BookingJob, followUp *entities.FollowUpReservation) (*providers.BookingResult, error) {
	args := m.Called(ctx, primary, followUp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.BookingResult), args.Error(1)
}

func (m *MockExecutionDriver) CancelBooking(ctx context.Context, job *entities.CancellationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockExecutionDriver) CreatePatientFile(ctx context.Context, job *entities.ResourceJob) (string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Error(1)
}

type MockCompletionReporter struct {
	mock.Mock
}

func (m *MockCompletionReporter) BookingConfirmed(ctx context.Context, bookingID, externalRef, evidencePath string) error {
	args := m.Called(ctx, bookingID, externalRef, evidencePath)
	return args.Error(0)
}

func (m *MockCompletionReporter) BookingFailed(ctx context.Context, bookingID, reason string) error {
	args := m.Called(ctx, bookingID, reason)
	return args.Error(0)
}

func (m *MockCompletionReporter) CancellationDone(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockCompletionReporter) PatientFileCreated(ctx context.Context, ownerID, externalID string) error {
	args := m.Called(ctx, ownerID, externalID)
	return args.Error(0)
}

type MockHoursProvider struct {
	mock.Mock
}

func (m *MockHoursProvider) AllowedPeriod(ctx context.Context, providerID string) (*entities.AllowedPeriod, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AllowedPeriod), args.Error(1)
}
