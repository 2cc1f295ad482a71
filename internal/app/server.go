package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/handlers"
	"task-dashboard/internal/server"
)

// Handler builds the routed HTTP handler.
func (app *App) Handler() http.Handler {
	h := handlers.New(app.Config, app.Notion, app.Cache, app.Tasks, logging.Component("handlers"))
	router := mux.NewRouter()
	SetupRoutes(router, h, app.WriteLimiter)
	return router
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, logging.GetGlobalLogger())
}
