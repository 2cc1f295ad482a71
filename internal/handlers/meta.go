package handlers

import (
	"net/http"

	"task-dashboard/internal/notion"
	"task-dashboard/internal/swr"
)

// GetAssignees lists the workspace people, cached under AssigneesKey.
func (h *Handlers) GetAssignees(w http.ResponseWriter, r *http.Request) {
	if !h.requireCredentials(w) {
		return
	}
	result, err := swr.WithCache(r.Context(), h.cache, AssigneesKey, h.tasks.Assignees)
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch assignees")
		return
	}
	result.WriteHeaders(w.Header())
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignees": nonNil(result.Data)})
}

// GetAssignOptions lists the assign property options, cached under AssignOptionsKey.
func (h *Handlers) GetAssignOptions(w http.ResponseWriter, r *http.Request) {
	if !h.requireCredentials(w) {
		return
	}
	result, err := swr.WithCache(r.Context(), h.cache, AssignOptionsKey, h.tasks.AssignOptions)
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch assign options")
		return
	}
	result.WriteHeaders(w.Header())
	writeJSON(w, http.StatusOK, map[string]interface{}{"options": nonNil(result.Data)})
}

// DebugFields describes the database properties for mapping troubleshooting.
func (h *Handlers) DebugFields(w http.ResponseWriter, r *http.Request) {
	if !h.requireCredentials(w) {
		return
	}
	schema, err := h.tasks.DescribeSchema(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to describe database")
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

var _ TaskService = (*notion.Client)(nil)
