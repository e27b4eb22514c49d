package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/repositories"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/postgres"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

func setupAdapter(t *testing.T) (*BookingAdapter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := NewBookingAdapter(postgres.NewClientFromDB(db)).(*BookingAdapter)
	return adapter, mock
}

func TestBookingAdapter_Create(t *testing.T) {
	adapter, mock := setupAdapter(t)

	booking := &entities.Booking{
		ID:         "bk_20260910_abc123",
		OwnerID:    "1029384756",
		ClinicID:   "main",
		ProviderID: "dr-1",
		SlotID:     "abc123",
		Date:       "2026-09-10",
		Time:       "09:30",
		Status:     entities.BookingStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	mock.ExpectExec(`INSERT INTO "bookings"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.Create(context.Background(), booking)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_GetByID_NotFound(t *testing.T) {
	adapter, mock := setupAdapter(t)

	mock.ExpectQuery(`SELECT .* FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := adapter.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_UpdateStatus(t *testing.T) {
	t.Run("allowed transition", func(t *testing.T) {
		adapter, mock := setupAdapter(t)

		mock.ExpectExec(`UPDATE "bookings"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.UpdateStatus(context.Background(), "bk_1", entities.BookingStatusConfirmed)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale transition touches no rows", func(t *testing.T) {
		adapter, mock := setupAdapter(t)

		mock.ExpectExec(`UPDATE "bookings"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.UpdateStatus(context.Background(), "bk_1", entities.BookingStatusCancelled)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
	})

	t.Run("no transition into pending", func(t *testing.T) {
		adapter, _ := setupAdapter(t)

		err := adapter.UpdateStatus(context.Background(), "bk_1", entities.BookingStatusPending)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
	})
}

func TestBookingAdapter_SetExternalRef(t *testing.T) {
	adapter, mock := setupAdapter(t)

	mock.ExpectExec(`UPDATE "bookings"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.SetExternalRef(context.Background(), "bk_1", "RES-99", "/evidence/x.html")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_ListByOwner(t *testing.T) {
	adapter, mock := setupAdapter(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "owner_name", "phone", "clinic_id",
		"provider_id", "provider_name", "service_id", "service_name",
		"slot_id", "date", "time", "status", "external_ref",
		"evidence_path", "invoice", "created_at", "updated_at",
	}).AddRow(
		"bk_1", "1029384756", "A B", "05550000", "main",
		"dr-1", "Dr One", "svc-1", "Laser",
		"abc123", "2026-09-10", "09:30", "confirmed", "RES-99",
		"", []byte(`{"number":"INV-1","amount":0,"currency":"SAR","issued":false}`), now, now,
	)

	mock.ExpectQuery(`SELECT .* FROM "bookings"`).
		WillReturnRows(rows)

	bookings, err := adapter.ListByOwner(context.Background(), "1029384756", repositories.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, entities.BookingStatusConfirmed, bookings[0].Status)
	require.NotNil(t, bookings[0].Invoice)
	assert.Equal(t, "INV-1", bookings[0].Invoice.Number)
}
