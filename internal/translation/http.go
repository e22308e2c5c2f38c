package translation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/model"
	httperrors "github.com/trivialabs/trivia-platform/pkg/http/errors"
)

// HTTPHandler exposes REST endpoints for UI translations.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a translation HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "translation_http").Logger(),
	}
}

// HandleTranslations serves the collection.
// Routes: GET /v1/translations?category=, POST /v1/translations
func (h *HTTPHandler) HandleTranslations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		translations, err := h.svc.List(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			h.logger.Error().Err(err).Msg("translation list failed")
			httperrors.RespondInternalError(w, "Failed to list translations")
			return
		}
		if translations == nil {
			translations = []model.UITranslation{}
		}
		writeJSON(w, http.StatusOK, translations)

	case http.MethodPost:
		var t model.UITranslation
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
			return
		}
		saved, err := h.svc.Save(r.Context(), t)
		if errors.Is(err, ErrInvalidTranslation) {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "key")
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("translation save failed")
			httperrors.RespondInternalError(w, "Failed to save translation")
			return
		}
		writeJSON(w, http.StatusCreated, saved)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTranslationByID serves one translation.
// Routes: PUT/DELETE /v1/translations/{id}
func (h *HTTPHandler) HandleTranslationByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "Invalid translation id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var t model.UITranslation
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
			return
		}
		t.ID = id
		updated, err := h.svc.Update(r.Context(), t)
		switch {
		case errors.Is(err, ErrInvalidTranslation):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "key")
			return
		case errors.Is(err, repository.ErrNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Translation not found")
			return
		case err != nil:
			h.logger.Error().Err(err).Str("translation_id", id.String()).Msg("translation update failed")
			httperrors.RespondInternalError(w, "Failed to update translation")
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		err := h.svc.Delete(r.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Translation not found")
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Str("translation_id", id.String()).Msg("translation delete failed")
			httperrors.RespondInternalError(w, "Failed to delete translation")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
