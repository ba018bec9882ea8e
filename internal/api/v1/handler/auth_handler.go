package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AuthHandler serves the demo login flow. Sessions are keyed by the same
// anonymous browser identifier as the cart.
type AuthHandler struct {
	authSvc  service.AuthService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAuthHandler(authSvc service.AuthService, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, validate: validate, logger: logger}
}

// RegisterRoutes mounts the auth endpoints.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("POST /auth/login", mw(http.HandlerFunc(h.Login)))
	mux.Handle("POST /auth/logout", mw(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /auth/session", mw(http.HandlerFunc(h.Session)))
}

// Login godoc
// @Summary Demo login
// @Description Grants a session when the shared demo password matches and the email holds at least one subscription.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	session, err := h.authSvc.Login(r.Context(), middleware.BrowserID(r), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
}

// Logout godoc
// @Summary Log out
// @Description Deletes the session. The anonymous browser identifier, and with it the cart, survives.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authSvc.Logout(r.Context(), middleware.BrowserID(r)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Session godoc
// @Summary Get the current session
// @Description Returns authenticated=false when there is no live session. Expired sessions are purged on this read.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.authSvc.CurrentSession(r.Context(), middleware.BrowserID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "session": session})
}
