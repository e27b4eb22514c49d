package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

// HTTPReporter implements the CompletionReporter interface against the
// API's internal callback endpoints, authenticated with the shared
// queue secret.
type HTTPReporter struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewHTTPReporter creates a new HTTP completion reporter
func NewHTTPReporter(baseURL, secret string) providers.CompletionReporter {
	return &HTTPReporter{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// BookingConfirmed reports that the portal accepted the booking
func (r *HTTPReporter) BookingConfirmed(ctx context.Context, bookingID, externalRef, evidencePath string) error {
	return r.post(ctx, "/internal/jobs/mark-confirmed", map[string]string{
		"booking_id":    bookingID,
		"external_ref":  externalRef,
		"evidence_path": evidencePath,
	})
}

// BookingFailed reports that the booking was dropped
func (r *HTTPReporter) BookingFailed(ctx context.Context, bookingID, reason string) error {
	return r.post(ctx, "/internal/jobs/mark-failed", map[string]string{
		"booking_id": bookingID,
		"reason":     reason,
	})
}

// CancellationDone reports that the portal accepted the cancellation
func (r *HTTPReporter) CancellationDone(ctx context.Context, bookingID string) error {
	return r.post(ctx, "/internal/jobs/mark-cancelled", map[string]string{
		"booking_id": bookingID,
	})
}

// PatientFileCreated reports the portal identifier of a new patient
// file
func (r *HTTPReporter) PatientFileCreated(ctx context.Context, ownerID, externalID string) error {
	return r.post(ctx, "/internal/patients/file-created", map[string]string{
		"owner_id":    ownerID,
		"external_id": externalID,
	})
}

func (r *HTTPReporter) post(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("encoding report payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError("building report request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Queue-Secret", r.secret)

	resp, err := r.client.Do(req)
	if err != nil {
		return apperrors.NewTransientExternalError("report request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperrors.NewTransientExternalError(
			fmt.Sprintf("report endpoint returned %d", resp.StatusCode), nil)
	}
	return nil
}
