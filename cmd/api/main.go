package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/adapters/admin"
	"github.com/phoenixclinic/bookingcore/internal/adapters/cache"
	"github.com/phoenixclinic/bookingcore/internal/adapters/database"
	"github.com/phoenixclinic/bookingcore/internal/adapters/events"
	"github.com/phoenixclinic/bookingcore/internal/adapters/notify"
	"github.com/phoenixclinic/bookingcore/internal/adapters/queue"
	"github.com/phoenixclinic/bookingcore/internal/api/handlers"
	"github.com/phoenixclinic/bookingcore/internal/api/routes"
	"github.com/phoenixclinic/bookingcore/internal/application/services"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/postgres"
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

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("ENV"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
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
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()
	log.Info().Msg("Redis client initialized")

	// Adapters
	slotStore := cache.NewRedisSlotStore(redisClient)
	reservationLock := cache.NewRedisReservationLock(redisClient)
	jobQueue := queue.NewRedisQueue(redisClient, cfg.Queue.DedupTTL)
	bookingRepo := database.NewBookingAdapter(pgClient)
	eventBus := events.NewRedisEventBus(redisClient)
	patientDirectory := admin.NewRedisPatientDirectory(redisClient)
	reminderStore := notify.NewRedisReminderStore(redisClient)
	tokenResolver := notify.NewRedisTokenResolver(redisClient)
	notifier := notify.NewLogNotifier()

	loc := cfg.Location()

	// Services
	reminderService := services.NewReminderService(
		reminderStore,
		notifier,
		tokenResolver,
		cfg.Reminder.Lead,
		loc,
	)

	bookingService := services.NewBookingService(
		slotStore,
		reservationLock,
		jobQueue,
		bookingRepo,
		eventBus,
		patientDirectory,
		reminderService,
		metrics,
		cfg.Cache.ClinicID,
		cfg.Lock.TTL,
		loc,
	)

	// The reminder sweep runs inside the API process so reminders fire
	// without a dedicated worker deployment.
	sweeper := cron.New()
	sweepSpec := "@every " + cfg.Reminder.SweepInterval.String()
	if _, err := sweeper.AddFunc(sweepSpec, func() {
		if _, err := reminderService.SweepOnce(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("Reminder sweep failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", sweepSpec).Msg("Failed to schedule reminder sweep")
	}
	sweeper.Start()
	log.Info().Str("spec", sweepSpec).Msg("Reminder sweeper started")

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	streamHandler := handlers.NewStreamHandler(eventBus, slotStore, cfg.Cache.ClinicID)
	internalHandler := handlers.NewInternalHandler(bookingService)

	router := routes.NewRouter(
		bookingHandler,
		streamHandler,
		internalHandler,
		cfg.QueueSecret,
		metrics,
	)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		// Long write timeout so SSE streams are not cut off.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	<-sweeper.Stop().Done()

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
