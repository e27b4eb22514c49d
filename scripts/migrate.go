package main

import (
	"context"
	"log"

	"github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/postgres"
	"github.com/phoenixclinic/bookingcore/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	owner_name    TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	clinic_id     TEXT NOT NULL,
	provider_id   TEXT NOT NULL DEFAULT '',
	provider_name TEXT NOT NULL DEFAULT '',
	service_id    TEXT NOT NULL DEFAULT '',
	service_name  TEXT NOT NULL DEFAULT '',
	slot_id       TEXT NOT NULL,
	date          TEXT NOT NULL,
	time          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	external_ref  TEXT NOT NULL DEFAULT '',
	evidence_path TEXT NOT NULL DEFAULT '',
	invoice       JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bookings_owner ON bookings (owner_id, date DESC, time DESC);
CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings (status);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	if _, err := pgClient.DB().ExecContext(context.Background(), schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	log.Println("Schema applied")
}
