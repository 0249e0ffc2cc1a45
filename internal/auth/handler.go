package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tilekart/tilekart/internal/platform/httpx"
	"github.com/tilekart/tilekart/internal/shared"
)

// Handler exposes account operations over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions, csrf: csrf}
}

// MountPublicRoutes attaches the endpoints reachable without a session
// principal.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Get("/auth/csrf", h.CSRFToken)
}

// MountRoutes attaches the endpoints that require an authenticated user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
	r.Post("/auth/change-password", h.ChangePassword)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logger.Error("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	principal, err := h.service.Login(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	sess.Rotate()
	sess.SetPrincipal(principal)
	token, err := h.csrf.EnsureToken(sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.OK(w, http.StatusOK, map[string]any{
		"user_id":    principal.UserID,
		"email":      principal.Email,
		"name":       principal.Name,
		"csrf_token": token,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.sessions.Destroy(sess)
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	user, err := h.service.Me(r.Context(), p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, user)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.service.ChangePassword(r.Context(), p.UserID, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

// CSRFToken hands the session's token to clients that have not logged in
// yet, so the login POST itself can carry it.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(sess)
	if err != nil {
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"csrf_token": token})
}
