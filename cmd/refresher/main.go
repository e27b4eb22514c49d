package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/adapters/admin"
	"github.com/phoenixclinic/bookingcore/internal/adapters/cache"
	"github.com/phoenixclinic/bookingcore/internal/adapters/driver"
	"github.com/phoenixclinic/bookingcore/internal/adapters/events"
	"github.com/phoenixclinic/bookingcore/internal/application/services"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/observability"
	"github.com/phoenixclinic/bookingcore/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-refresher", os.Getenv("ENV"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-refresher", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()
	log.Info().Msg("Redis client initialized")

	execDriver, err := driver.NewExecutionDriver(cfg.Portal, os.Getenv("EVIDENCE_DIR"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize execution driver")
	}

	slotStore := cache.NewRedisSlotStore(redisClient)
	hoursStore := admin.NewRedisHoursStore(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)

	refresher := services.NewRefreshService(
		execDriver,
		slotStore,
		hoursStore,
		eventBus,
		metrics,
		cfg.Cache.ClinicID,
		cfg.Cache.Providers,
		cfg.Cache.HorizonMonths,
		cfg.Location(),
	)

	// Prime the cache before the schedule takes over.
	if err := refresher.RefreshOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Initial refresh failed")
	}

	scheduler := cron.New()
	spec := "@every " + cfg.Cache.RefreshInterval.String()
	if _, err := scheduler.AddFunc(spec, func() {
		if err := refresher.RefreshOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled refresh failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", spec).Msg("Failed to schedule refresh")
	}
	scheduler.Start()
	log.Info().Str("spec", spec).Int("horizon_months", cfg.Cache.HorizonMonths).Msg("Slot refresher started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Slot refresher shutting down")
	cancel()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Timed out waiting for running refresh to finish")
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Slot refresher stopped")
}
