package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
)

// StreamHandler handles Server-Sent Events for live slot updates.
type StreamHandler struct {
	eventBus  providers.EventBus
	slotStore providers.SlotStore
	clinicID  string
	clients   map[string]map[chan *entities.SlotEvent]bool
	mu        sync.RWMutex
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(eventBus providers.EventBus, slotStore providers.SlotStore, clinicID string) *StreamHandler {
	return &StreamHandler{
		eventBus:  eventBus,
		slotStore: slotStore,
		clinicID:  clinicID,
		clients:   make(map[string]map[chan *entities.SlotEvent]bool),
	}
}

// StreamSlotUpdates handles SSE connections for a month of slots.
// GET /api/stream?month=YYYY-MM
func (h *StreamHandler) StreamSlotUpdates(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if _, err := time.Parse("2006-01", month); err != nil {
		respondWithError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientChan := make(chan *entities.SlotEvent, 10)
	channel := providers.UpdatesChannel(h.clinicID, month)

	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	eventChan, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to channel")
		respondWithError(w, http.StatusInternalServerError, "subscription failed")
		return
	}

	// The first event carries the current snapshot so the client does not
	// need a separate fetch before listening.
	slots, err := h.slotStore.Snapshot(r.Context(), h.clinicID, month)
	if err != nil {
		log.Warn().Err(err).Str("month", month).Msg("Failed to load snapshot for stream init")
		slots = nil
	}
	h.sendEvent(w, "init", map[string]interface{}{
		"clinic_id": h.clinicID,
		"month":     month,
		"slots":     slots,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	go h.forwardEvents(r.Context(), eventChan, clientChan)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("month", month).Msg("Client disconnected from slot stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents forwards events from the event bus to a client channel.
func (h *StreamHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.SlotEvent, clientChan chan<- *entities.SlotEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				// Client channel full, skip event
			}
		}
	}
}

// registerClient registers a client for a channel.
func (h *StreamHandler) registerClient(channel string, clientChan chan *entities.SlotEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.SlotEvent]bool)
	}
	h.clients[channel][clientChan] = true
	log.Debug().Str("channel", channel).Int("total", len(h.clients[channel])).Msg("Stream client registered")
}

// unregisterClient unregisters a client from a channel.
func (h *StreamHandler) unregisterClient(channel string, clientChan chan *entities.SlotEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

// sendEvent writes one SSE event to the client.
func (h *StreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// ClientCount returns the number of connected stream clients.
func (h *StreamHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
