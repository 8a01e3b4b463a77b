package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler builds the router.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()

	// Public.
	r.Get("/health", g.handleHealth())

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.logger))
		}
		r.Get("/status", g.handleStatus())
		r.Get("/trajectory", g.handleTrajectory())
		r.Handle("/ws/steps", g.hub)
		if g.metrics != nil {
			r.Handle("/metrics", g.metrics)
		}
	})

	return r
}
