package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers migration HTTP routes
type Router struct {
	handler *Handler
	logger  zerolog.Logger
}

// NewRouter creates a new migration router
func NewRouter(handler *Handler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers migration routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	api := rt.Group("/api/v1/migration")

	api.POST("/start", r.handler.Start)
	api.POST("/pause", r.handler.Pause)
	api.POST("/resume", r.handler.Resume)
	api.POST("/cancel", r.handler.Cancel)
	api.PUT("/speed/{name}", r.handler.SetSpeed)
	api.GET("/statistics", r.handler.Statistics)
	api.GET("/status", r.handler.Status)
	api.GET("/runs", r.handler.ListRuns)
	api.GET("/runs/{id}", r.handler.GetRun)

	r.logger.Info().Msg("Migration routes registered")
}
