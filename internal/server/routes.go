// Package server wires HTTP handlers into a ServeMux for the relay via
// routing helpers.
package server

import (
	"log/slog"
	"net/http"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application routes:
// the chat page, the WebSocket endpoint, a health check and, when StaticDir
// is configured, static assets under /static/.
func SetupRoutes(hub *Hub, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", ChatPageHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub, logger))
	mux.HandleFunc("GET /healthz", HealthHandler(hub))

	if dir := CurrentConfig().StaticDir; dir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}
	return mux
}
