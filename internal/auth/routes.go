package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
)

// RegisterRoutes registra /auth/login (limitado por IP) y /auth/logout (autenticado).
func RegisterRoutes(route chi.Router, handler *Handler, authenticate func(http.Handler) http.Handler, loginsPerMinute int) {
	if loginsPerMinute <= 0 {
		loginsPerMinute = 10
	}
	limiter := httprate.Limit(loginsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, r, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
		}),
	)

	route.Route("/auth", func(route chi.Router) {
		route.With(limiter).Post("/login", handler.Login)
		route.With(authenticate).Post("/logout", handler.Logout)
	})
}
