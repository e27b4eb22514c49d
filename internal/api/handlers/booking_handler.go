package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/phoenixclinic/bookingcore/internal/application/services"
	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/repositories"
)

// BookingService defines the interface for booking operations
type BookingService interface {
	ListSlots(ctx context.Context, month string) ([]entities.Slot, error)
	AcquireLock(ctx context.Context, month, slotID, holder string) error
	ReleaseLock(ctx context.Context, slotID, holder string) error
	Confirm(ctx context.Context, month string, req services.ConfirmRequest) (*entities.Booking, error)
	Cancel(ctx context.Context, bookingID, ownerID string) (*entities.Booking, error)
	ListBookings(ctx context.Context, ownerID string, filter repositories.BookingFilter) ([]*entities.Booking, error)
	GetBooking(ctx context.Context, bookingID, ownerID string) (*entities.Booking, error)
}

// BookingHandler handles slot and booking requests
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{
		service: service,
	}
}

// ownerID reads the client identity set by the gateway.
func ownerID(r *http.Request) string {
	return r.Header.Get("X-Owner-ID")
}

// ListSlots handles GET /api/slots
func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		respondWithError(w, http.StatusBadRequest, "month query parameter is required")
		return
	}

	slots, err := h.service.ListSlots(r.Context(), month)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"slots": slots,
		"count": len(slots),
	})
}

// LockSlot handles POST /api/slots/{id}/lock
func (h *BookingHandler) LockSlot(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("id")
	owner := ownerID(r)
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "client identity is required")
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		respondWithError(w, http.StatusBadRequest, "month query parameter is required")
		return
	}

	if err := h.service.AcquireLock(r.Context(), month, slotID, owner); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"slot_id": slotID,
		"status":  "locked",
	})
}

// UnlockSlot handles POST /api/slots/{id}/unlock
func (h *BookingHandler) UnlockSlot(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("id")
	owner := ownerID(r)
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "client identity is required")
		return
	}

	if err := h.service.ReleaseLock(r.Context(), slotID, owner); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"slot_id": slotID,
		"status":  "unlocked",
	})
}

type confirmRequest struct {
	Month     string                        `json:"month"`
	OwnerName string                        `json:"owner_name"`
	Phone     string                        `json:"phone"`
	Note      string                        `json:"note"`
	FollowUp  *entities.FollowUpReservation `json:"follow_up,omitempty"`
}

// ConfirmSlot handles POST /api/slots/{id}/confirm
func (h *BookingHandler) ConfirmSlot(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("id")
	owner := ownerID(r)
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "client identity is required")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Month == "" {
		respondWithError(w, http.StatusBadRequest, "month is required")
		return
	}

	booking, err := h.service.Confirm(r.Context(), req.Month, services.ConfirmRequest{
		SlotID:    slotID,
		OwnerID:   owner,
		OwnerName: req.OwnerName,
		Phone:     req.Phone,
		Note:      req.Note,
		FollowUp:  req.FollowUp,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")
	owner := ownerID(r)
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "client identity is required")
		return
	}

	booking, err := h.service.Cancel(r.Context(), bookingID, owner)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, booking)
}

// ListBookings handles GET /api/bookings
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "client identity is required")
		return
	}

	filter := repositories.BookingFilter{
		Status: entities.BookingStatus(r.URL.Query().Get("status")),
	}

	bookings, err := h.service.ListBookings(r.Context(), owner, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")
	owner := ownerID(r)
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "client identity is required")
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID, owner)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, booking)
}
