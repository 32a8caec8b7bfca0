package monitor

import (
	"github.com/go-chi/chi/v5"

	middle "sentinel/internals/middleware"
)

// Routes exposes the monitor API. Reads are open; anything that changes a
// monitor goes through the auth middleware.
func Routes(h *Handler, auth middle.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(g chi.Router) {
		g.Use(auth)
		g.Post("/", h.CreateMonitor)
		g.Put("/{monitorID}", h.UpdateMonitor)
		g.Patch("/{monitorID}", h.SetEnabled)
		g.Delete("/{monitorID}", h.DeleteMonitor)
	})

	r.Get("/", h.ListMonitors)
	r.Get("/{monitorID}", h.GetMonitor)
	r.Get("/{monitorID}/status", h.RuntimeStatus)
	r.Get("/{monitorID}/history", h.History)
	r.Get("/{monitorID}/stats", h.Stats)

	return r
}
