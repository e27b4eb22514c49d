package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phoenixclinic/bookingcore/internal/application/services"
	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
)

func refreshFixture(providerIDs []string, horizon int) (*MockExecutionDriver, *MockSlotStore, *MockHoursProvider, *MockEventBus, *services.RefreshService) {
	driver := new(MockExecutionDriver)
	store := new(MockSlotStore)
	hours := new(MockHoursProvider)
	bus := new(MockEventBus)
	svc := services.NewRefreshService(driver, store, hours, bus, nil,
		testClinic, providerIDs, horizon, time.UTC)
	return driver, store, hours, bus, svc
}

func TestRefreshService_RefreshOnce(t *testing.T) {
	t.Run("covers the month horizon", func(t *testing.T) {
		driver, store, hours, bus, svc := refreshFixture([]string{"dr-1"}, 3)

		driver.On("FetchSlots", mock.Anything, "dr-1", mock.Anything).
			Return([]entities.Slot{}, nil).Times(3)
		hours.On("AllowedPeriod", mock.Anything, "dr-1").Return(nil, nil).Times(3)
		store.On("ReplaceSnapshot", mock.Anything, testClinic, mock.Anything, mock.Anything).
			Return([]entities.Slot{}, true, nil).Times(3)
		bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(e *entities.SlotEvent) bool {
			return e.Type == entities.SlotEventUpdate
		})).Return(nil).Times(3)

		err := svc.RefreshOnce(context.Background())
		require.NoError(t, err)
		driver.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("applies the visibility window and stamps the clinic", func(t *testing.T) {
		driver, store, hours, bus, svc := refreshFixture([]string{"dr-1"}, 1)

		driver.On("FetchSlots", mock.Anything, "dr-1", mock.Anything).
			Return([]entities.Slot{
				{ID: "a", ProviderID: "dr-1", Date: "2026-09-10", Time: "08:00", Available: true},
				{ID: "b", ProviderID: "dr-1", Date: "2026-09-10", Time: "10:00", Available: true},
			}, nil)
		hours.On("AllowedPeriod", mock.Anything, "dr-1").
			Return(&entities.AllowedPeriod{Enabled: true, From: "09:00"}, nil)
		store.On("ReplaceSnapshot", mock.Anything, testClinic, mock.Anything,
			mock.MatchedBy(func(slots []entities.Slot) bool {
				return len(slots) == 1 && slots[0].ID == "b" && slots[0].ClinicID == testClinic
			})).Return([]entities.Slot{{ID: "b", Available: true}}, true, nil)
		bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(e *entities.SlotEvent) bool {
			return e.Count == 1
		})).Return(nil)

		err := svc.RefreshOnce(context.Background())
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("an unchanged bucket publishes no event", func(t *testing.T) {
		driver, store, hours, bus, svc := refreshFixture([]string{"dr-1"}, 1)

		driver.On("FetchSlots", mock.Anything, "dr-1", mock.Anything).
			Return([]entities.Slot{{ID: "a", ProviderID: "dr-1", Date: "2026-09-10", Time: "09:00", Available: true}}, nil)
		hours.On("AllowedPeriod", mock.Anything, "dr-1").Return(nil, nil)
		store.On("ReplaceSnapshot", mock.Anything, testClinic, mock.Anything, mock.Anything).
			Return([]entities.Slot{{ID: "a", Available: true}}, false, nil)

		err := svc.RefreshOnce(context.Background())
		require.NoError(t, err)
		bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a failing provider does not stop the cycle", func(t *testing.T) {
		driver, store, hours, bus, svc := refreshFixture([]string{"dr-1", "dr-2"}, 1)

		driver.On("FetchSlots", mock.Anything, "dr-1", mock.Anything).
			Return(nil, assert.AnError)
		driver.On("FetchSlots", mock.Anything, "dr-2", mock.Anything).
			Return([]entities.Slot{{ID: "c", ProviderID: "dr-2", Date: "2026-09-10", Time: "09:00", Available: true}}, nil)
		hours.On("AllowedPeriod", mock.Anything, "dr-2").Return(nil, nil)
		store.On("ReplaceSnapshot", mock.Anything, testClinic, mock.Anything,
			mock.MatchedBy(func(slots []entities.Slot) bool {
				return len(slots) == 1 && slots[0].ID == "c"
			})).Return([]entities.Slot{{ID: "c", Available: true}}, true, nil)
		bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := svc.RefreshOnce(context.Background())
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}
