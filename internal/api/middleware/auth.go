package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"
)

// QueueSecretHeader carries the shared secret the worker processes
// present when calling the internal completion endpoints.
const QueueSecretHeader = "X-Queue-Secret"

// QueueSecretMiddleware rejects internal requests that do not carry the
// configured shared secret. When no secret is configured the internal
// surface stays closed.
func QueueSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				log.Warn().Str("path", r.URL.Path).Msg("Internal endpoint called but no queue secret is configured")
				http.Error(w, "internal endpoints disabled", http.StatusServiceUnavailable)
				return
			}

			presented := r.Header.Get(QueueSecretHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				log.Warn().Str("path", r.URL.Path).Msg("Internal endpoint called with invalid queue secret")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
