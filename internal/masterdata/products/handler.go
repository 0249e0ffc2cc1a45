package products

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

// Handler exposes product CRUD over HTTP.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes attaches the product endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	products, err := h.repo.List(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, products)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	products, err := h.repo.Search(r.Context(), p.UserID, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.Error("search products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	product, err := h.repo.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusOK, product)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	id, err := h.repo.Create(r.Context(), Product{
		UserID:     p.UserID,
		Name:       req.Name,
		SKU:        req.SKU,
		Category:   req.Category,
		Size:       req.Size,
		Finish:     req.Finish,
		UnitPrice:  req.UnitPrice,
		AreaPerBox: req.AreaPerBox,
		InStock:    inStock,
	})
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	product, err := h.repo.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusCreated, product)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateProductRequest
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
	product, err := h.repo.Get(r.Context(), p.UserID, id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.OK(w, http.StatusOK, product)
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
		return fmt.Errorf("%w: product", shared.ErrNotFound)
	}
	if errors.Is(err, ErrDuplicateSKU) {
		return fmt.Errorf("%w: sku", shared.ErrDuplicate)
	}
	return err
}
