package security

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tilekart/tilekart/internal/platform/httpx"
	"github.com/tilekart/tilekart/internal/shared"
)

// Handler exposes security settings and the audit timeline over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the security endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/security", func(r chi.Router) {
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
		r.Get("/audit-logs", h.ListAuditLogs)
		r.Get("/activity", h.CheckActivity)
	})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	settings, err := h.service.GetSettings(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("get security settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req UpdateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), p.UserID, req)
	if err != nil {
		h.logger.Error("update security settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, settings)
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, total, err := h.service.ListAuditLogs(r.Context(), p.UserID, limit, offset)
	if err != nil {
		h.logger.Error("list audit logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if limit <= 0 {
		limit = 50
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"audit_logs": entries,
		"pagination": shared.NewPagination(offset/limit+1, limit, total),
	})
}

func (h *Handler) CheckActivity(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	report, err := h.service.CheckActivity(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("check activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, report)
}
