package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/server"
	"github.com/HerbHall/labtrack/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "GET", Path: "/{id}", Handler: m.handleGet},
	}
}

type listResponse struct {
	Items []Entry `json:"items"`
	Limit int     `json:"limit"`
}

// handleList returns the newest entries, optionally for one machine.
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := m.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			server.BadRequest(w, fmt.Sprintf("limit must be between 1 and %d", MaxLimit), r.URL.Path)
			return
		}
		limit = n
	}

	entries, err := m.repo.List(r.Context(), Filter{MachineID: q.Get("machine_id"), Limit: limit})
	if err != nil {
		m.logger.Error("list audit entries", zap.Error(err))
		server.InternalError(w, "failed to list audit entries", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: entries, Limit: limit})
}

func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, fmt.Sprintf("audit entry %s not found", id), r.URL.Path)
			return
		}
		m.logger.Error("get audit entry", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get audit entry", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
