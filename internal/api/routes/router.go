package routes

import (
	"net/http"

	"github.com/phoenixclinic/bookingcore/internal/api/handlers"
	"github.com/phoenixclinic/bookingcore/internal/api/middleware"
	"github.com/phoenixclinic/bookingcore/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	bookingHandler  *handlers.BookingHandler
	streamHandler   *handlers.StreamHandler
	internalHandler *handlers.InternalHandler

	queueSecret string
	metrics     *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	bookingHandler *handlers.BookingHandler,
	streamHandler *handlers.StreamHandler,
	internalHandler *handlers.InternalHandler,
	queueSecret string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		bookingHandler:  bookingHandler,
		streamHandler:   streamHandler,
		internalHandler: internalHandler,
		queueSecret:     queueSecret,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Slot endpoints
	r.mux.HandleFunc("GET /api/slots", r.bookingHandler.ListSlots)
	r.mux.HandleFunc("POST /api/slots/{id}/lock", r.bookingHandler.LockSlot)
	r.mux.HandleFunc("POST /api/slots/{id}/unlock", r.bookingHandler.UnlockSlot)
	r.mux.HandleFunc("POST /api/slots/{id}/confirm", r.bookingHandler.ConfirmSlot)

	// Booking endpoints
	r.mux.HandleFunc("GET /api/bookings", r.bookingHandler.ListBookings)
	r.mux.HandleFunc("GET /api/bookings/{id}", r.bookingHandler.GetBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/cancel", r.bookingHandler.CancelBooking)

	// Live slot update stream
	if r.streamHandler != nil {
		r.mux.HandleFunc("GET /api/stream", r.streamHandler.StreamSlotUpdates)
	}

	// Internal completion endpoints, called by the worker processes only
	if r.internalHandler != nil {
		guard := middleware.QueueSecretMiddleware(r.queueSecret)
		r.mux.Handle("POST /internal/jobs/mark-confirmed", guard(http.HandlerFunc(r.internalHandler.MarkConfirmed)))
		r.mux.Handle("POST /internal/jobs/mark-failed", guard(http.HandlerFunc(r.internalHandler.MarkFailed)))
		r.mux.Handle("POST /internal/jobs/mark-cancelled", guard(http.HandlerFunc(r.internalHandler.MarkCancelled)))
		r.mux.Handle("POST /internal/patients/file-created", guard(http.HandlerFunc(r.internalHandler.FileCreated)))
	}

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
