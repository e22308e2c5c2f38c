package subject

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

// HTTPHandler exposes REST endpoints for subjects.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a subject HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "subject_http").Logger(),
	}
}

// HandleSubjects serves the collection.
// Routes: GET /v1/subjects, POST /v1/subjects
func (h *HTTPHandler) HandleSubjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		subjects, err := h.svc.List(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("subject list failed")
			httperrors.RespondInternalError(w, "Failed to list subjects")
			return
		}
		if subjects == nil {
			subjects = []model.Subject{}
		}
		writeJSON(w, http.StatusOK, subjects)

	case http.MethodPost:
		var subj model.Subject
		if err := json.NewDecoder(r.Body).Decode(&subj); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
			return
		}
		created, err := h.svc.Create(r.Context(), subj)
		if errors.Is(err, ErrInvalidSubject) {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "name")
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("subject create failed")
			httperrors.RespondInternalError(w, "Failed to create subject")
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSubjectByID serves one subject.
// Routes: GET/PUT/DELETE /v1/subjects/{id}
func (h *HTTPHandler) HandleSubjectByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "Invalid subject id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		subj, err := h.svc.Get(r.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Subject not found")
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Str("subject_id", id.String()).Msg("subject fetch failed")
			httperrors.RespondInternalError(w, "Failed to fetch subject")
			return
		}
		writeJSON(w, http.StatusOK, subj)

	case http.MethodPut:
		var subj model.Subject
		if err := json.NewDecoder(r.Body).Decode(&subj); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
			return
		}
		subj.ID = id
		updated, err := h.svc.Update(r.Context(), subj)
		switch {
		case errors.Is(err, ErrInvalidSubject):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "name")
			return
		case errors.Is(err, repository.ErrNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Subject not found")
			return
		case err != nil:
			h.logger.Error().Err(err).Str("subject_id", id.String()).Msg("subject update failed")
			httperrors.RespondInternalError(w, "Failed to update subject")
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		err := h.svc.Delete(r.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Subject not found")
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Str("subject_id", id.String()).Msg("subject delete failed")
			httperrors.RespondInternalError(w, "Failed to delete subject")
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
