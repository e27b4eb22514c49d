package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// JobKind discriminates the payload carried by a Job.
type JobKind string

const (
	JobKindBooking          JobKind = "booking"
	JobKindCancellation     JobKind = "cancellation"
	JobKindResourceCreation JobKind = "resource_creation"
)

// JobStatus tracks a job through the queue.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusInFlight JobStatus = "in_flight"
	JobStatusDone     JobStatus = "done"
	JobStatusDropped  JobStatus = "dropped"
)

// Job is the envelope placed on the durable queue. Exactly one payload
// pointer is set, selected by Kind.
//
// Raw holds the exact bytes the job was dequeued as. Acknowledgement
// removes the job from the processing list by value, so the original
// serialization must be kept rather than re-marshalled after Attempts
// has been mutated.
type Job struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	DedupKey  string    `json:"dedup_key"`
	Attempts  int       `json:"attempts"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	Booking      *BookingJob      `json:"booking,omitempty"`
	Cancellation *CancellationJob `json:"cancellation,omitempty"`
	Resource     *ResourceJob     `json:"resource,omitempty"`

	Raw []byte `json:"-"`
}

// BookingJob instructs the execution agent to book a slot on the
// external portal on behalf of a client.
type BookingJob struct {
	BookingID  string `json:"booking_id"`
	OwnerID    string `json:"owner_id"`
	OwnerName  string `json:"owner_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ClinicID   string `json:"clinic_id"`
	ProviderID string `json:"provider_id"`
	ServiceID  string `json:"service_id,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	RawToken   string `json:"raw_token,omitempty"`
	Note       string `json:"note,omitempty"`

	// FollowUp, when present, asks the agent to book a secondary slot
	// after the primary succeeds. Follow-up failures never fail the
	// primary booking.
	FollowUp *FollowUpReservation `json:"follow_up,omitempty"`
}

// FollowUpReservation describes the optional secondary booking attached
// to a primary one.
type FollowUpReservation struct {
	ProviderID string `json:"provider_id"`
	ServiceID  string `json:"service_id,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	RawToken   string `json:"raw_token,omitempty"`
}

// CancellationJob instructs the agent to cancel an existing booking on
// the portal.
type CancellationJob struct {
	BookingID   string `json:"booking_id"`
	OwnerID     string `json:"owner_id"`
	ClinicID    string `json:"clinic_id"`
	ExternalRef string `json:"external_ref,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// ResourceJob instructs the agent to create a patient file on the
// portal for a first-time client.
type ResourceJob struct {
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	ClinicID  string `json:"clinic_id"`
}

// NewDedupKey hashes the identity fields of an operation into a stable
// key. Fields are sorted by name so callers need not agree on an order.
func NewDedupKey(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
