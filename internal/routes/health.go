package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ReadinessCheck reports whether the favourites store can be reached.
type ReadinessCheck func(ctx context.Context) error

// RegisterHealthRoutes creates the health check endpoints. A nil metrics handler
// leaves /metrics unregistered.
func RegisterHealthRoutes(ready ReadinessCheck, metrics http.Handler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			if ready != nil {
				if err := ready(r.Context()); err != nil {
					w.WriteHeader(http.StatusServiceUnavailable)
					w.Write([]byte("favourites store not ready"))
					return
				}
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})

		if metrics != nil {
			r.Method(http.MethodGet, "/metrics", metrics)
		}
	}
}
