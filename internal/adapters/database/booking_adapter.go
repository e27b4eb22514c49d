package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/repositories"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/postgres"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var bookingColumns = []interface{}{
	"id", "owner_id", "owner_name", "phone", "clinic_id",
	"provider_id", "provider_name", "service_id", "service_name",
	"slot_id", "date", "time", "status", "external_ref",
	"evidence_path", "invoice", "created_at", "updated_at",
}

// Create creates a new booking record
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	var invoice interface{}
	if booking.Invoice != nil {
		raw, err := json.Marshal(booking.Invoice)
		if err != nil {
			return apperrors.NewInternalError("failed to encode invoice", err)
		}
		invoice = raw
	}

	record := goqu.Record{
		"id":            booking.ID,
		"owner_id":      booking.OwnerID,
		"owner_name":    booking.OwnerName,
		"phone":         booking.Phone,
		"clinic_id":     booking.ClinicID,
		"provider_id":   booking.ProviderID,
		"provider_name": booking.ProviderName,
		"service_id":    booking.ServiceID,
		"service_name":  booking.ServiceName,
		"slot_id":       booking.SlotID,
		"date":          booking.Date,
		"time":          booking.Time,
		"status":        booking.Status,
		"external_ref":  booking.ExternalRef,
		"evidence_path": booking.EvidencePath,
		"invoice":       invoice,
		"created_at":    booking.CreatedAt,
		"updated_at":    booking.UpdatedAt,
	}

	query, args, err := a.db.Insert("bookings").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create booking", err)
	}

	return nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// UpdateStatus advances a booking's status. The WHERE clause restricts
// the update to statuses allowed to transition into the new one, so a
// stale caller cannot move a booking backwards.
func (a *BookingAdapter) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	from := allowedPredecessors(status)
	if len(from) == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("no transition into status %s", status))
	}

	query, args, err := a.db.Update("bookings").
		Set(goqu.Record{"status": status, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id, "status": from}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update booking status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("booking %s cannot transition to %s", id, status))
	}
	return nil
}

// SetExternalRef records the portal's reference and evidence path
func (a *BookingAdapter) SetExternalRef(ctx context.Context, id, externalRef, evidencePath string) error {
	query, args, err := a.db.Update("bookings").
		Set(goqu.Record{
			"external_ref":  externalRef,
			"evidence_path": evidencePath,
			"updated_at":    time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to set external ref", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	return nil
}

// ListByOwner retrieves bookings for a client
func (a *BookingAdapter) ListByOwner(ctx context.Context, ownerID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	ds := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"owner_id": ownerID}).
		Order(goqu.I("date").Desc(), goqu.I("time").Desc())

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	var bookings []*entities.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bookings", err)
	}
	return bookings, nil
}

// allowedPredecessors returns the statuses from which a booking may
// enter the given status.
func allowedPredecessors(to entities.BookingStatus) []entities.BookingStatus {
	switch to {
	case entities.BookingStatusConfirmed:
		return []entities.BookingStatus{entities.BookingStatusPending}
	case entities.BookingStatusFailed:
		return []entities.BookingStatus{entities.BookingStatusPending}
	case entities.BookingStatusCancelling:
		return []entities.BookingStatus{entities.BookingStatusPending, entities.BookingStatusConfirmed}
	case entities.BookingStatusCancelled:
		return []entities.BookingStatus{entities.BookingStatusCancelling}
	default:
		return nil
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entities.Booking, error) {
	booking := &entities.Booking{}
	var ownerName, phone, providerName, serviceID, serviceName sql.NullString
	var externalRef, evidencePath sql.NullString
	var invoice []byte

	err := row.Scan(
		&booking.ID,
		&booking.OwnerID,
		&ownerName,
		&phone,
		&booking.ClinicID,
		&booking.ProviderID,
		&providerName,
		&serviceID,
		&serviceName,
		&booking.SlotID,
		&booking.Date,
		&booking.Time,
		&booking.Status,
		&externalRef,
		&evidencePath,
		&invoice,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.OwnerName = ownerName.String
	booking.Phone = phone.String
	booking.ProviderName = providerName.String
	booking.ServiceID = serviceID.String
	booking.ServiceName = serviceName.String
	booking.ExternalRef = externalRef.String
	booking.EvidencePath = evidencePath.String
	if len(invoice) > 0 {
		inv := &entities.Invoice{}
		if err := json.Unmarshal(invoice, inv); err == nil {
			booking.Invoice = inv
		}
	}
	return booking, nil
}
