// Package server wires the admin HTTP handlers into a ServeMux via routing
// helpers.
package server

import "net/http"

// Routes configures and returns an HTTP ServeMux with all admin routes:
// health check, room and member listings, kick/close/start/shutdown
// operations, and the WebSocket event stream.
func (a *AdminAPI) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.HealthHandler)
	mux.HandleFunc("GET /rooms", a.RoomsHandler)
	mux.HandleFunc("GET /rooms/{id}/members", a.MembersHandler)
	mux.HandleFunc("POST /rooms/{id}/kick", a.KickHandler)
	mux.HandleFunc("POST /rooms/{id}/close", a.CloseRoomHandler)
	mux.HandleFunc("POST /start", a.StartHandler)
	mux.HandleFunc("POST /shutdown", a.ShutdownHandler)
	mux.HandleFunc("GET /events", a.EventsHandler)
	return mux
}
