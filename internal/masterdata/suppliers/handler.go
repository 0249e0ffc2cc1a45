package suppliers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tilekart/tilekart/internal/platform/httpx"
	"github.com/tilekart/tilekart/internal/shared"
)

// Handler exposes supplier CRUD over HTTP.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes attaches the supplier endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	suppliers, err := h.repo.List(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, suppliers)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	s, err := h.repo.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusOK, s)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req CreateSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.repo.Create(r.Context(), Supplier{
		UserID:        p.UserID,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		GSTIN:         req.GSTIN,
	})
	if err != nil {
		h.logger.Error("create supplier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	s, err := h.repo.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusCreated, s)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.HasChanges() {
		if err := h.repo.Update(r.Context(), p.UserID, id, req); err != nil {
			httpx.RespondError(w, mapErr(err))
			return
		}
	}
	s, err := h.repo.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusOK, s)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.repo.Delete(r.Context(), p.UserID, id); err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func mapErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: supplier", shared.ErrNotFound)
	}
	return err
}
