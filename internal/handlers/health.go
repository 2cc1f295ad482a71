package handlers

import (
	"net/http"
)

// Healthz is the liveness probe.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Health summarizes the configuration and the cache backend without
// exposing secrets.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"env": map[string]interface{}{
			"hasNotionApiKey":        len(h.config.NotionAPIKey) > 10,
			"notionDatabaseIdLength": len(h.config.NotionDatabaseID),
			"cacheStrategy":          h.config.CacheStrategy,
			"cacheBackend":           h.config.CacheBackend,
		},
		"cache": h.cacheStatus(r.Context()),
		"store": map[string]interface{}{
			"taskCount":    stats.TaskCount,
			"isInCooldown": stats.IsInCooldown,
			"lastError":    stats.LastError,
		},
		"timestamp": h.now().UnixMilli(),
	})
}
