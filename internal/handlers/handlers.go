// Package handlers implements the task dashboard REST API.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/config"
	"task-dashboard/internal/notion"
	"task-dashboard/internal/swr"
	"task-dashboard/internal/taskstore"
)

// Cache keys and prefixes for the Notion datasets.
const (
	TasksKeyPrefix    = "notion:tasks:"
	AssigneesKey      = "notion:assignees:list"
	AssignOptionsKey  = "notion:assign-options:list"
	missingCredsError = "Notion credentials missing. Set NOTION_API_KEY and NOTION_DATABASE_ID."
)

// TaskService is the upstream surface the handlers need.
type TaskService interface {
	QueryTasks(ctx context.Context, f notion.TaskFilter) ([]notion.Task, error)
	UpdateTask(ctx context.Context, id string, patch notion.TaskPatch) error
	Assignees(ctx context.Context) ([]notion.Assignee, error)
	AssignOptions(ctx context.Context) ([]string, error)
	DescribeSchema(ctx context.Context) (*notion.Schema, error)
}

// Handlers holds the dependencies of every endpoint.
type Handlers struct {
	config *config.Config
	tasks  TaskService
	cache  *swr.Engine
	store  *taskstore.Store
	logger logging.Logger
	now    func() time.Time
}

// New creates the handlers.
func New(cfg *config.Config, tasks TaskService, cache *swr.Engine, store *taskstore.Store, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		config: cfg,
		tasks:  tasks,
		cache:  cache,
		store:  store,
		logger: logger.WithFields(logging.String("component", "handlers")),
		now:    time.Now,
	}
}

// requireCredentials answers 500 and returns false when Notion is not configured.
func (h *Handlers) requireCredentials(w http.ResponseWriter) bool {
	if h.config.HasNotionCredentials() {
		return true
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": missingCredsError})
	return false
}

// invalidateTasks drops every cached task list. Failures are logged only.
func (h *Handlers) invalidateTasks(ctx context.Context) {
	if _, err := h.cache.Invalidate(ctx, TasksKeyPrefix); err != nil {
		h.logger.WithContext(ctx).Warn("Cache invalidation failed", logging.Err(err))
	}
}

// writeError maps err to a status code and a JSON error body. fallback is
// the message used for errors that carry no user-facing text.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := errors.HTTPStatus(err)
	message := fallback

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}
	if retryAfter := errors.RetryAfter(err); retryAfter > 0 {
		w.Header().Set(swr.HeaderRetryAfter, strconv.Itoa(swr.Seconds(retryAfter)))
	}

	logger := h.logger.WithContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, err, logging.String("path", r.URL.Path))
	} else {
		logger.Warn(fallback, logging.Err(err), logging.String("path", r.URL.Path))
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// cacheStatus reports the SWR backend for the health endpoint.
func (h *Handlers) cacheStatus(ctx context.Context) map[string]interface{} {
	store := h.cache.Store()
	status := map[string]interface{}{"backend": store.Backend()}
	if err := store.Ping(ctx); err != nil {
		status["healthy"] = false
		status["error"] = err.Error()
	} else {
		status["healthy"] = true
	}
	if cooldown := h.cache.Cooldown(ctx); cooldown > 0 {
		status["cooldownSeconds"] = swr.Seconds(cooldown)
	}
	return status
}
