package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/model"
	httperrors "github.com/trivialabs/trivia-platform/pkg/http/errors"
)

// HTTPHandler exposes REST endpoints for authentication and accounts.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs an auth HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "auth_http").Logger(),
	}
}

type registerBody struct {
	Username string `json:"username"`
}

type adminLoginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// HandleRegister signs a player in by username, creating the account on first
// use. Route: POST /v1/auth/register
func (h *HTTPHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	user, token, err := h.svc.RegisterPlayer(r.Context(), body.Username)
	if errors.Is(err, ErrInvalidUsername) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Username is required", "username")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("player registration failed")
		httperrors.RespondInternalError(w, "Failed to register")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// HandleAdminLogin authenticates an admin account.
// Route: POST /v1/auth/admin/login
func (h *HTTPHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body adminLoginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	user, token, err := h.svc.LoginAdmin(r.Context(), body.Username, body.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidCredentials, "Invalid username or password")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("admin login failed")
		httperrors.RespondInternalError(w, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// HandleAdminSetup creates the first admin account; closed once one exists.
// Route: POST /v1/auth/admin/setup
func (h *HTTPHandler) HandleAdminSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body adminLoginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	user, err := h.svc.CreateAdmin(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, ErrAdminExists):
		httperrors.RespondForbidden(w, httperrors.ErrCodeAdminExists, "Admin account already exists")
		return
	case errors.Is(err, ErrPasswordTooShort):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "password")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("admin setup failed")
		httperrors.RespondInternalError(w, "Failed to create admin")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// HandleMe returns the authenticated user's account.
// Route: GET /v1/users/me
func (h *HTTPHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	user, err := h.svc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("fetch current user failed")
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type preferencesBody struct {
	AvatarURL   string            `json:"avatarUrl"`
	Preferences model.Preferences `json:"preferences"`
}

// HandlePreferences replaces the authenticated user's preferences.
// Route: PUT /v1/users/me/preferences
func (h *HTTPHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var body preferencesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	user, err := h.svc.UpdatePreferences(r.Context(), claims.UserID, body.AvatarURL, body.Preferences)
	if err != nil {
		h.logger.Error().Err(err).Msg("preferences update failed")
		httperrors.RespondInternalError(w, "Failed to update preferences")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleSearch finds accounts by username fragment.
// Route: GET /v1/users/search?q=&limit=
func (h *HTTPHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "Query parameter q is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	users, err := h.svc.SearchUsers(r.Context(), query, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("user search failed")
		httperrors.RespondInternalError(w, "Failed to search users")
		return
	}
	if users == nil {
		users = []model.User{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
