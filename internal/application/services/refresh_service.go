package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/observability"
)

// RefreshService keeps the slot cache in step with the portal: it
// fetches every provider's openings over the configured month horizon,
// filters them through the visibility windows, merges them into the
// cache, and announces each changed bucket.
type RefreshService struct {
	driver    providers.ExecutionDriver
	slotStore providers.SlotStore
	hours     providers.HoursProvider
	eventBus  providers.EventBus
	metrics   *observability.Metrics

	clinicID      string
	providerIDs   []string
	horizonMonths int
	loc           *time.Location
}

// NewRefreshService creates a new refresh service
func NewRefreshService(
	driver providers.ExecutionDriver,
	slotStore providers.SlotStore,
	hours providers.HoursProvider,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	clinicID string,
	providerIDs []string,
	horizonMonths int,
	loc *time.Location,
) *RefreshService {
	return &RefreshService{
		driver:        driver,
		slotStore:     slotStore,
		hours:         hours,
		eventBus:      eventBus,
		metrics:       metrics,
		clinicID:      clinicID,
		providerIDs:   providerIDs,
		horizonMonths: horizonMonths,
		loc:           loc,
	}
}

// RefreshOnce runs one full refresh cycle. A provider that fails to
// fetch is logged and skipped; the rest of the cycle continues so one
// flaky page cannot starve the whole cache.
func (s *RefreshService) RefreshOnce(ctx context.Context) error {
	started := time.Now()
	months := monthsWindow(time.Now().In(s.loc), s.horizonMonths)

	for _, month := range months {
		fresh := make([]entities.Slot, 0, 64)
		for _, providerID := range s.providerIDs {
			slots, err := s.driver.FetchSlots(ctx, providerID, month)
			if err != nil {
				log.Warn().Err(err).
					Str("provider_id", providerID).
					Str("month", month).
					Msg("failed to fetch slots, skipping provider")
				continue
			}

			period, err := s.hours.AllowedPeriod(ctx, providerID)
			if err != nil {
				log.Warn().Err(err).Str("provider_id", providerID).Msg("failed to load allowed period")
			}
			slots = entities.FilterAllowed(slots, period, s.loc)

			for i := range slots {
				slots[i].ClinicID = s.clinicID
			}
			fresh = append(fresh, slots...)
		}

		merged, changed, err := s.slotStore.ReplaceSnapshot(ctx, s.clinicID, month, fresh)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}

		event := &entities.SlotEvent{
			ID:       uuid.NewString(),
			ClinicID: s.clinicID,
			Month:    month,
			Type:     entities.SlotEventUpdate,
			At:       time.Now().UTC(),
			Count:    entities.CountAvailable(merged),
		}
		if err := s.eventBus.Publish(ctx, providers.UpdatesChannel(s.clinicID, month), event); err != nil {
			log.Warn().Err(err).Str("month", month).Msg("failed to publish refresh event")
		}
		if s.metrics != nil {
			observability.RecordEventPublished(ctx, s.metrics, string(event.Type))
		}
	}

	if s.metrics != nil {
		observability.RecordRefresh(ctx, s.metrics, s.clinicID, time.Since(started))
	}
	log.Info().
		Strs("months", months).
		Dur("took", time.Since(started)).
		Msg("slot refresh cycle complete")
	return nil
}

// monthsWindow returns the current month and the following n-1 as
// "YYYY-MM".
func monthsWindow(now time.Time, n int) []string {
	if n < 1 {
		n = 1
	}
	months := make([]string, 0, n)
	year, month := now.Year(), now.Month()
	for i := 0; i < n; i++ {
		months = append(months, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, i, 0).Format("2006-01"))
	}
	return months
}
