package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixclinic/bookingcore/internal/api/handlers"
	"github.com/phoenixclinic/bookingcore/internal/application/services"
	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/repositories"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

type stubBookingService struct {
	slots []entities.Slot

	lockErr    error
	releaseErr error

	confirmed  *entities.Booking
	confirmErr error

	cancelled *entities.Booking
	cancelErr error

	bookings []*entities.Booking
	listErr  error

	booking *entities.Booking
	getErr  error

	lastConfirm services.ConfirmRequest
	lastHolder  string
}

func (s *stubBookingService) ListSlots(ctx context.Context, month string) ([]entities.Slot, error) {
	return s.slots, nil
}

func (s *stubBookingService) AcquireLock(ctx context.Context, month, slotID, holder string) error {
	s.lastHolder = holder
	return s.lockErr
}

func (s *stubBookingService) ReleaseLock(ctx context.Context, slotID, holder string) error {
	return s.releaseErr
}

func (s *stubBookingService) Confirm(ctx context.Context, month string, req services.ConfirmRequest) (*entities.Booking, error) {
	s.lastConfirm = req
	return s.confirmed, s.confirmErr
}

func (s *stubBookingService) Cancel(ctx context.Context, bookingID, ownerID string) (*entities.Booking, error) {
	return s.cancelled, s.cancelErr
}

func (s *stubBookingService) ListBookings(ctx context.Context, ownerID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	return s.bookings, s.listErr
}

func (s *stubBookingService) GetBooking(ctx context.Context, bookingID, ownerID string) (*entities.Booking, error) {
	return s.booking, s.getErr
}

func TestBookingHandler_ListSlots(t *testing.T) {
	service := &stubBookingService{
		slots: []entities.Slot{
			{ID: "abc", Date: "2026-09-10", Time: "09:00", Available: true},
		},
	}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("GET", "/api/slots?month=2026-09", nil)
	w := httptest.NewRecorder()

	handler.ListSlots(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, float64(1), response["count"])
}

func TestBookingHandler_ListSlots_MissingMonth(t *testing.T) {
	handler := handlers.NewBookingHandler(&stubBookingService{})

	req := httptest.NewRequest("GET", "/api/slots", nil)
	w := httptest.NewRecorder()

	handler.ListSlots(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_LockSlot(t *testing.T) {
	service := &stubBookingService{}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("POST", "/api/slots/abc/lock?month=2026-09", nil)
	req.SetPathValue("id", "abc")
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.LockSlot(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner-1", service.lastHolder)
}

func TestBookingHandler_LockSlot_Contention(t *testing.T) {
	service := &stubBookingService{
		lockErr: apperrors.NewContentionError("slot is held by another client"),
	}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("POST", "/api/slots/abc/lock?month=2026-09", nil)
	req.SetPathValue("id", "abc")
	req.Header.Set("X-Owner-ID", "owner-2")
	w := httptest.NewRecorder()

	handler.LockSlot(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_LockSlot_MissingIdentity(t *testing.T) {
	handler := handlers.NewBookingHandler(&stubBookingService{})

	req := httptest.NewRequest("POST", "/api/slots/abc/lock?month=2026-09", nil)
	req.SetPathValue("id", "abc")
	w := httptest.NewRecorder()

	handler.LockSlot(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_ConfirmSlot(t *testing.T) {
	service := &stubBookingService{
		confirmed: &entities.Booking{ID: "bk_20260910_abc", Status: entities.BookingStatusPending},
	}
	handler := handlers.NewBookingHandler(service)

	body := `{"month":"2026-09","owner_name":"Sara","phone":"+966500000001"}`
	req := httptest.NewRequest("POST", "/api/slots/abc/confirm", strings.NewReader(body))
	req.SetPathValue("id", "abc")
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.ConfirmSlot(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "abc", service.lastConfirm.SlotID)
	assert.Equal(t, "owner-1", service.lastConfirm.OwnerID)
	assert.Equal(t, "Sara", service.lastConfirm.OwnerName)

	var booking entities.Booking
	require.NoError(t, json.NewDecoder(w.Body).Decode(&booking))
	assert.Equal(t, "bk_20260910_abc", booking.ID)
}

func TestBookingHandler_ConfirmSlot_NotLockHolder(t *testing.T) {
	service := &stubBookingService{
		confirmErr: apperrors.NewUnauthorizedError("slot is not held by this client"),
	}
	handler := handlers.NewBookingHandler(service)

	body := `{"month":"2026-09"}`
	req := httptest.NewRequest("POST", "/api/slots/abc/confirm", strings.NewReader(body))
	req.SetPathValue("id", "abc")
	req.Header.Set("X-Owner-ID", "owner-2")
	w := httptest.NewRecorder()

	handler.ConfirmSlot(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookingHandler_ConfirmSlot_MissingMonth(t *testing.T) {
	handler := handlers.NewBookingHandler(&stubBookingService{})

	req := httptest.NewRequest("POST", "/api/slots/abc/confirm", strings.NewReader(`{}`))
	req.SetPathValue("id", "abc")
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.ConfirmSlot(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_CancelBooking(t *testing.T) {
	service := &stubBookingService{
		cancelled: &entities.Booking{ID: "bk_1", Status: entities.BookingStatusCancelling},
	}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("POST", "/api/bookings/bk_1/cancel", nil)
	req.SetPathValue("id", "bk_1")
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.CancelBooking(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var booking entities.Booking
	require.NoError(t, json.NewDecoder(w.Body).Decode(&booking))
	assert.Equal(t, entities.BookingStatusCancelling, booking.Status)
}

func TestBookingHandler_CancelBooking_TooLate(t *testing.T) {
	service := &stubBookingService{
		cancelErr: apperrors.NewValidationError("too late to cancel"),
	}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("POST", "/api/bookings/bk_1/cancel", nil)
	req.SetPathValue("id", "bk_1")
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.CancelBooking(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_GetBooking_NotFound(t *testing.T) {
	service := &stubBookingService{
		getErr: apperrors.NewNotFoundError("booking not found"),
	}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("GET", "/api/bookings/missing", nil)
	req.SetPathValue("id", "missing")
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.GetBooking(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_ListBookings(t *testing.T) {
	service := &stubBookingService{
		bookings: []*entities.Booking{
			{ID: "bk_1", Status: entities.BookingStatusConfirmed},
			{ID: "bk_2", Status: entities.BookingStatusPending},
		},
	}
	handler := handlers.NewBookingHandler(service)

	req := httptest.NewRequest("GET", "/api/bookings?status=confirmed", nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	w := httptest.NewRecorder()

	handler.ListBookings(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, float64(2), response["count"])
}
