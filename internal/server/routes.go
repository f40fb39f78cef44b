package server

import (
	"log/slog"
	"net/http"
)

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /media", h.Upload)
	mux.HandleFunc("GET /media", h.ListAssets)
	mux.HandleFunc("GET /media/{id}", h.GetAsset)
	mux.HandleFunc("DELETE /media/{id}", h.DeleteAsset)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return chain(mux)
}
