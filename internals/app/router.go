package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	middle "sentinel/internals/middleware"
	"sentinel/internals/modules/metrics"
	"sentinel/internals/modules/monitor"
	"sentinel/pkg/apperror"
	"sentinel/pkg/utils"
)

func RegisterRoutes(c *Container) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.Logger(c.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", c.healthHandler)
	r.Get("/metrics", metrics.Handler(c.Metrics))

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/monitors", monitor.Routes(c.monitorHandler, c.authMW.Handle))
	})

	return r
}

func (c *Container) healthHandler(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if err := c.Store.Ping(r.Context()); err != nil {
		utils.WriteError(w, http.StatusServiceUnavailable, reqID, apperror.Dependency, "storage unreachable")
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", map[string]string{
		"status":  "ok",
		"service": c.Cfg.ServiceName,
		"version": c.Cfg.Version,
	})
}
