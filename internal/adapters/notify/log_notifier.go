package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
)

// LogNotifier implements the Notifier interface by logging the message.
// It stands in for a push delivery service in development.
type LogNotifier struct{}

// NewLogNotifier creates a new logging notifier
func NewLogNotifier() providers.Notifier {
	return &LogNotifier{}
}

// Send logs the message instead of delivering it
func (n *LogNotifier) Send(ctx context.Context, token, title, body string) error {
	log.Info().
		Str("token", token).
		Str("title", title).
		Str("body", body).
		Msg("notification sent")
	return nil
}
