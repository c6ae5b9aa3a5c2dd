package handlers

import (
	"errors"
	"net/http"

	"fitkids-crm/internal/config"
	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/service"
)

type AuthHandler struct {
	cfg *config.Config
	svc *service.Service
}

func NewAuthHandler(cfg *config.Config, svc *service.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(w, "email and password are required")
		return
	}

	user, actor, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.cfg.Debugf("login rejected for %s", req.Email)
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}

	http.SetCookie(w, middleware.CreateSessionCookie(actor, h.cfg.SessionSecret, h.cfg.IsProduction()))
	h.cfg.Debugf("login ok: user=%s role=%s", user.ID, user.Role)
	jsonResponse(w, http.StatusOK, user)
}

// POST /api/logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, middleware.ClearSessionCookie(h.cfg.IsProduction()))
	jsonResponse(w, http.StatusNoContent, nil)
}

// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return
	}
	user, err := h.svc.GetUser(r.Context(), actor, actor.UserID)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}
