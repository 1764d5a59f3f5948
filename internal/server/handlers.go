// Package server exposes the admin control surface over HTTP: room and
// member listings, kick and close operations, listener lifecycle, and the
// WebSocket event stream consumed by admin front ends.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// AdminAPI binds the admin HTTP handlers to the core components. It holds no
// state of its own; every request reads or mutates the registry directly.
type AdminAPI struct {
	registry *Registry
	chat     *ChatServer
	events   *EventBus

	shutdownTimeout time.Duration
}

// NewAdminAPI creates the admin surface over the given core components.
func NewAdminAPI(registry *Registry, chat *ChatServer, events *EventBus) *AdminAPI {
	return &AdminAPI{
		registry:        registry,
		chat:            chat,
		events:          events,
		shutdownTimeout: 10 * time.Second,
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func (a *AdminAPI) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Roomcast server is running!")
}

// RoomsHandler returns the room list as JSON: id, member count, and admin.
func (a *AdminAPI) RoomsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.registry.ListRooms())
}

// MembersHandler returns the nicknames of a room's members in join order.
func (a *AdminAPI) MembersHandler(w http.ResponseWriter, r *http.Request) {
	members, err := a.registry.ListMembers(r.PathValue("id"))
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, members)
}

// KickHandler removes the member named by the "nickname" query parameter
// from the room.
func (a *AdminAPI) KickHandler(w http.ResponseWriter, r *http.Request) {
	nickname := r.URL.Query().Get("nickname")
	if nickname == "" {
		http.Error(w, "missing nickname parameter", http.StatusBadRequest)
		return
	}

	if err := a.registry.Kick(r.PathValue("id"), nickname); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseRoomHandler disconnects every member of the room and removes it.
func (a *AdminAPI) CloseRoomHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.registry.CloseRoom(r.PathValue("id")); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartHandler starts the chat listener on the address given by the "addr"
// query parameter, or the configured chat address when absent.
func (a *AdminAPI) StartHandler(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("addr")
	if addr == "" {
		addr = currentConfig().ChatAddr
	}

	if err := a.chat.Start(addr); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShutdownHandler disconnects every member, clears the registry, and stops
// the chat listener. The admin HTTP server itself stays up so the listener
// can be started again.
func (a *AdminAPI) ShutdownHandler(w http.ResponseWriter, _ *http.Request) {
	if err := a.chat.Shutdown(a.shutdownTimeout); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventsHandler upgrades the request to a WebSocket and streams core events
// as JSON until the subscriber disconnects.
func (a *AdminAPI) EventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Event stream upgrade failed: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing event stream connection: %v", err)
		}
	}()

	ch := a.events.Subscribe()
	defer a.events.Unsubscribe(ch)

	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	log.Printf("Event stream subscriber connected from %s", r.RemoteAddr)
	for {
		select {
		case event := <-ch:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-peerGone:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// writeAdminError maps the error taxonomy onto HTTP statuses: stale targets
// are 404s, lifecycle conflicts are 409s, anything else is a 500.
func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoSuchRoom), errors.Is(err, ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyStarted), errors.Is(err, ErrServerNotRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
