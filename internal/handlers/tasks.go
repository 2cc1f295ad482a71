package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/common/validation"
	"task-dashboard/internal/config"
	"task-dashboard/internal/notion"
	"task-dashboard/internal/swr"
)

const maxPatchBody = 16 << 10

// GetTasks lists tasks, optionally filtered by team, assignee and status.
// The periodic strategy filters the in-process snapshot; the swr strategy
// caches one upstream query per filter.
func (h *Handlers) GetTasks(w http.ResponseWriter, r *http.Request) {
	if !h.requireCredentials(w) {
		return
	}

	query := r.URL.Query()
	filter := notion.TaskFilter{
		Team:     query.Get("team"),
		Assignee: query.Get("assignee"),
		Status:   query.Get("status"),
	}

	if h.config.CacheStrategy == config.StrategySWR {
		result, err := swr.WithCache(r.Context(), h.cache, TasksKeyPrefix+filter.Signature(),
			func(ctx context.Context) ([]notion.Task, error) {
				return h.tasks.QueryTasks(ctx, filter)
			})
		if err != nil {
			h.writeError(w, r, err, "Failed to fetch tasks")
			return
		}
		result.WriteHeaders(w.Header())
		writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": nonNil(result.Data)})
		return
	}

	tasks := notion.FilterTasks(h.store.GetItems(r.Context()), filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": nonNil(tasks)})
}

// optionalString distinguishes an absent JSON field from null or "".
type optionalString struct {
	set   bool
	value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, &o.value)
}

func (o optionalString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

type updateTaskRequest struct {
	Status     optionalString `json:"status"`
	Team       optionalString `json:"team"`
	AssigneeID optionalString `json:"assigneeId"`
	Assign     optionalString `json:"assign"`
}

func (req updateTaskRequest) patch() notion.TaskPatch {
	return notion.TaskPatch{
		Status:     req.Status.ptr(),
		Team:       req.Team.ptr(),
		AssigneeID: req.AssigneeID.ptr(),
		Assign:     req.Assign.ptr(),
	}
}

// UpdateTask applies a partial update upstream, invalidates cached task
// lists and mirrors the change into the snapshot.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	if !h.requireCredentials(w) {
		return
	}

	id := mux.Vars(r)["id"]
	if err := validation.ValidateVar(id, "notion_id"); err != nil {
		h.writeError(w, r, errors.ValidationError("invalid task id"), "Invalid task id")
		return
	}

	var req updateTaskRequest
	body := io.LimitReader(r.Body, maxPatchBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, r, errors.ValidationError("invalid JSON body"), "Invalid request body")
		return
	}

	patch := req.patch()
	if patch.IsEmpty() {
		h.writeError(w, r, errors.ValidationError("no fields to update"), "Invalid request body")
		return
	}
	if err := validation.ValidateStruct(patch); err != nil {
		h.writeError(w, r, err, "Invalid request body")
		return
	}

	if err := h.tasks.UpdateTask(r.Context(), id, patch); err != nil {
		h.writeError(w, r, err, "Failed to update task")
		return
	}

	h.invalidateTasks(r.Context())
	updatedInStore := h.store.UpdateItem(id, patch)

	h.logger.WithContext(r.Context()).Info("Task updated",
		logging.String("task_id", id),
		logging.Bool("updated_in_store", updatedInStore),
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"updatedInStore": updatedInStore,
	})
}

// Refresh forces a snapshot refresh and drops cached task lists.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.requireCredentials(w) {
		return
	}

	err := h.store.ForceRefresh(r.Context())
	h.invalidateTasks(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Forced refresh failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   refreshErrorMessage(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"taskCount": h.store.Stats().TaskCount,
		"timestamp": h.now().UnixMilli(),
	})
}

// StoreStats reports the snapshot state.
func (h *Handlers) StoreStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

func refreshErrorMessage(err error) string {
	if _, limited := errors.IsRateLimited(err); limited {
		return "Rate limited"
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Failed to refresh"
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
