package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
)

const readyTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// Handler encapsula endpoints de health.
// database es obligatorio para /ready; cache es opcional (lista de tokens revocados).
type Handler struct {
	database pinger
	cache    pinger
}

// New crea un handler de health.
func New(database pinger) *Handler {
	return &Handler{database: database}
}

// WithCache agrega el chequeo de Redis a /ready.
func (handler *Handler) WithCache(cache pinger) *Handler {
	handler.cache = cache
	return handler
}

// Health indica si el proceso está vivo.
// NO chequea dependencias. Eso va en /ready.
func (handler *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, r, http.StatusOK, "", map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready indica si la app puede atender tráfico (DB alcanzable y, si está configurado, Redis).
func (handler *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if handler.database == nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "database pool not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := handler.database.Ping(ctx); err != nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "database is not reachable")
		return
	}

	if handler.cache != nil {
		if err := handler.cache.Ping(ctx); err != nil {
			httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "cache is not reachable")
			return
		}
	}

	httpx.OK(w, r, http.StatusOK, "", map[string]any{"status": "ready"})
}
