package pricelist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registra las rutas de listas de precios.
// authenticate protege todo el grupo: el proveedor siempre sale del token.
func RegisterRoutes(route chi.Router, handler *Handler, authenticate func(http.Handler) http.Handler) {
	route.Route("/price-lists", func(route chi.Router) {
		if authenticate != nil {
			route.Use(authenticate)
		}
		route.Get("/", handler.List)
		route.Post("/", handler.Create)
		route.Patch("/", handler.Patch)
		route.Put("/validity", handler.PutValidity)
		route.Post("/import", handler.Import)
	})
}
