// bot/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ezloot/LOOT-SERVICES/bot/commands"
	"github.com/ezloot/LOOT-SERVICES/shared/api"
)

// commandTimeout bounds one command execution end to end, including the
// loot-service calls and the reply.
const commandTimeout = 15 * time.Second

// Dispatcher enqueues a task on the worker owning a user ID.
type Dispatcher interface {
	Dispatch(userID string, task func()) error
}

// BotHandlers receives message events from the chat gateway and feeds them to
// the command router through the dispatcher.
type BotHandlers struct {
	router     *commands.Router
	dispatcher Dispatcher
}

// NewBotHandlers creates a new instance of BotHandlers.
func NewBotHandlers(router *commands.Router, dispatcher Dispatcher) *BotHandlers {
	return &BotHandlers{
		router:     router,
		dispatcher: dispatcher,
	}
}

// RegisterRoutes registers all bot-service API routes with the provided router.
func (h *BotHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/events/message", h.handleMessageEvent).Methods("POST")
	router.HandleFunc("/healthz", h.handleHealth).Methods("GET")
}

// handleMessageEvent handles POST /events/message: the gateway webhook.
// Events are acknowledged as soon as they are queued; the command itself runs
// on the worker owning the author's ID.
func (h *BotHandlers) handleMessageEvent(w http.ResponseWriter, r *http.Request) {
	var event commands.MessageEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		api.WriteBadRequest(w, "Invalid event payload")
		return
	}
	if event.AuthorID == "" || event.ChannelID == "" {
		api.WriteBadRequest(w, "Both 'author_id' and 'channel_id' are required")
		return
	}

	// Cheap pre-filter: don't occupy a worker slot for ordinary chatter.
	if !h.router.Matches(event.Content) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err := h.dispatcher.Dispatch(event.AuthorID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		h.router.HandleMessage(ctx, &event)
	})
	if err != nil {
		log.Printf("WARN: Failed to dispatch command from %s: %v", event.AuthorID, err)
		api.WriteError(w, http.StatusServiceUnavailable, "Command processing unavailable")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleHealth handles GET /healthz
func (h *BotHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
