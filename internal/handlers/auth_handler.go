package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/services/auth"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	auth   *auth.Service
	logger arbor.ILogger
}

func NewAuthHandler(authSvc *auth.Service, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler handles POST /api/auth/register. The API key in the
// response is shown exactly once; only its hash is stored.
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, apiKey, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if common.KindOf(err) == common.FaultPermanentInput {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Registration failed")
		WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    user,
		"api_key": apiKey,
		"notice":  "store this API key now; it cannot be retrieved again",
	})
}

// LoginHandler handles POST /api/auth/login, returning a bearer token.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch common.KindOf(err) {
		case common.FaultPermanentInput:
			WriteError(w, http.StatusUnauthorized, err.Error())
		case common.FaultPermanentSystem:
			h.logger.Error().Err(err).Msg("Login rejected by configuration")
			WriteError(w, http.StatusInternalServerError, "authentication is not configured")
		default:
			h.logger.Error().Err(err).Msg("Login failed")
			WriteError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
