package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/adapters/driver"
	"github.com/phoenixclinic/bookingcore/internal/adapters/queue"
	"github.com/phoenixclinic/bookingcore/internal/adapters/report"
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

	observability.InitLogger(cfg.OTEL.ServiceName+"-agent", os.Getenv("ENV"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-agent", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
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

	evidenceDir := os.Getenv("EVIDENCE_DIR")
	if evidenceDir == "" {
		evidenceDir = "/var/lib/bookingcore/evidence"
	}

	execDriver, err := driver.NewExecutionDriver(cfg.Portal, evidenceDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize execution driver")
	}

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	reporter := report.NewHTTPReporter(apiBaseURL, cfg.QueueSecret)

	jobQueue := queue.NewRedisQueue(redisClient, cfg.Queue.DedupTTL)

	agent := services.NewAgentService(jobQueue, execDriver, reporter, metrics, services.AgentConfig{
		MaxAttempts:    cfg.Queue.MaxAttempts,
		BackoffBase:    cfg.Queue.BackoffBase,
		BackoffCap:     cfg.Queue.BackoffCap,
		DequeueTimeout: cfg.Queue.DequeueTimeout,
	})

	// Delayed retries sit in a sorted set until the promoter moves
	// them back onto the ready list.
	go agent.RunPromoter(ctx, time.Second)

	done := make(chan error, 1)
	go func() {
		log.Info().Int("max_attempts", cfg.Queue.MaxAttempts).Msg("Execution agent starting")
		done <- agent.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Execution agent shutting down")
		cancel()
		<-done
	case err := <-done:
		if err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Execution agent stopped")
		}
	}

	log.Info().Msg("Execution agent stopped")
}
