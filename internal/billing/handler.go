package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tilekart/tilekart/internal/platform/httpx"
	"github.com/tilekart/tilekart/internal/shared"
)

// Handler exposes billing operations over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())

	req := ListInvoicesRequest{
		Limit:  parseInt(r.URL.Query().Get("limit"), 50),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := InvoiceStatus(status)
		req.Status = &s
	}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if from := parseDate(r.URL.Query().Get("date_from")); from != nil {
		req.DateFrom = from
	}
	if to := parseDate(r.URL.Query().Get("date_to")); to != nil {
		req.DateTo = to
	}

	invoices, total, err := h.service.List(r.Context(), p.UserID, req)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(req.Offset/maxInt(req.Limit, 1)+1, req.Limit, total),
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	invoices, err := h.service.Search(r.Context(), p.UserID, r.URL.Query().Get("q"), parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		h.logger.Error("search invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, invoices)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	detail, err := h.service.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	detail, err := h.service.Create(r.Context(), p.UserID, req)
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, detail)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	detail, err := h.service.Update(r.Context(), p.UserID, id, req)
	if err != nil {
		h.logger.Error("update invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	detail, err := h.service.UpdateStatus(r.Context(), p.UserID, id, req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), p.UserID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	detail, err := h.service.RecordPayment(r.Context(), p.UserID, req)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, detail)
}

func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	number, err := h.service.GenerateNumber(r.Context(), p.UserID, r.URL.Query().Get("prefix"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, number)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	stats, err := h.service.Stats(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("billing stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats)
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
