package driver

import (
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	"github.com/phoenixclinic/bookingcore/pkg/config"
)

// NewExecutionDriver selects a driver from configuration. An empty
// portal base URL selects the in-memory mock.
func NewExecutionDriver(cfg config.PortalConfig, evidenceDir string) (providers.ExecutionDriver, error) {
	if cfg.BaseURL == "" {
		log.Warn().Msg("no portal base URL configured, using mock execution driver")
		return NewMockDriver(), nil
	}
	return NewPortalDriver(cfg, evidenceDir)
}
