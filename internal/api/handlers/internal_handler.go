package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

// InternalService defines the callback operations the execution agent
// reports through
type InternalService interface {
	MarkJobConfirmed(ctx context.Context, bookingID, externalRef, evidencePath string) error
	MarkJobFailed(ctx context.Context, bookingID, reason string) error
	MarkJobCancelled(ctx context.Context, bookingID string) error
	NotifyResourceCreated(ctx context.Context, ownerID, externalID string) error
}

// InternalHandler handles the agent's callback endpoints. Access is
// guarded by the queue secret middleware.
type InternalHandler struct {
	service InternalService
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(service InternalService) *InternalHandler {
	return &InternalHandler{
		service: service,
	}
}

type markConfirmedRequest struct {
	BookingID    string `json:"booking_id"`
	ExternalRef  string `json:"external_ref"`
	EvidencePath string `json:"evidence_path"`
}

// MarkConfirmed handles POST /internal/jobs/mark-confirmed
func (h *InternalHandler) MarkConfirmed(w http.ResponseWriter, r *http.Request) {
	var req markConfirmedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.service.MarkJobConfirmed(r.Context(), req.BookingID, req.ExternalRef, req.EvidencePath); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type markFailedRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// MarkFailed handles POST /internal/jobs/mark-failed
func (h *InternalHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	var req markFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.service.MarkJobFailed(r.Context(), req.BookingID, req.Reason); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type markCancelledRequest struct {
	BookingID string `json:"booking_id"`
}

// MarkCancelled handles POST /internal/jobs/mark-cancelled
func (h *InternalHandler) MarkCancelled(w http.ResponseWriter, r *http.Request) {
	var req markCancelledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.service.MarkJobCancelled(r.Context(), req.BookingID); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fileCreatedRequest struct {
	OwnerID    string `json:"owner_id"`
	ExternalID string `json:"external_id"`
}

// FileCreated handles POST /internal/patients/file-created
func (h *InternalHandler) FileCreated(w http.ResponseWriter, r *http.Request) {
	var req fileCreatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.service.NotifyResourceCreated(r.Context(), req.OwnerID, req.ExternalID); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
