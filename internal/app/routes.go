package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"task-dashboard/internal/common/ratelimit"
	"task-dashboard/internal/handlers"
	"task-dashboard/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, writeLimiter *ratelimit.Limiter) {
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)

	// Probes
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Reads are served from the caches
	api.HandleFunc("/tasks", h.GetTasks).Methods(http.MethodGet)
	api.HandleFunc("/assignees", h.GetAssignees).Methods(http.MethodGet)
	api.HandleFunc("/assign-options", h.GetAssignOptions).Methods(http.MethodGet)
	api.HandleFunc("/store-stats", h.StoreStats).Methods(http.MethodGet)
	api.HandleFunc("/debug-fields", h.DebugFields).Methods(http.MethodGet)

	// Writes reach the upstream directly, so they are limited per client
	writes := api.NewRoute().Subrouter()
	if writeLimiter != nil {
		writes.Use(ratelimit.HTTPMiddleware(writeLimiter, ratelimit.IPKey))
	}
	writes.HandleFunc("/tasks/{id}", h.UpdateTask).Methods(http.MethodPatch)
	writes.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
}
