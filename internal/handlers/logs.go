package handlers

import (
	"net/http"

	"github.com/adminpanel/apiserver/internal/services"
	"github.com/adminpanel/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// LogHandler provides HTTP handlers for the audit log.
type LogHandler struct {
	auditService *services.AuditService
}

func NewLogHandler(auditService *services.AuditService) *LogHandler {
	return &LogHandler{auditService: auditService}
}

// LogRouter registers audit log routes on the given router.
func LogRouter(r chi.Router, auditService *services.AuditService) {
	handler := NewLogHandler(auditService)

	r.Get("/", handler.ListLogs)
	r.Post("/", handler.AppendLog)
}

type LogRequest struct {
	Admin      string `json:"admin" validate:"required"`
	TargetUser string `json:"targetUser"`
	Action     string `json:"action" validate:"required"`
	Details    string `json:"details"`
	Time       string `json:"time"`
}

func (h *LogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.auditService.ListRecent(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *LogHandler) AppendLog(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.auditService.Append(r.Context(), types.LogEntry{
		Admin:      req.Admin,
		TargetUser: req.TargetUser,
		Action:     req.Action,
		Details:    req.Details,
		Time:       req.Time,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IDResponse{ID: entry.ID})
}
