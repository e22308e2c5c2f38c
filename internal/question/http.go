package question

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/metrics"
	"github.com/trivialabs/trivia-platform/internal/model"
	httperrors "github.com/trivialabs/trivia-platform/pkg/http/errors"
)

// HTTPHandler exposes question sampling and CRUD endpoints.
type HTTPHandler struct {
	svc          *Service
	defaultCount int
	logger       zerolog.Logger
}

func NewHTTPHandler(svc *Service, defaultCount int, logger zerolog.Logger) *HTTPHandler {
	if defaultCount <= 0 {
		defaultCount = 10
	}
	return &HTTPHandler{
		svc:          svc,
		defaultCount: defaultCount,
		logger:       logger.With().Str("component", "question_http").Logger(),
	}
}

// HandleQuestions serves GET /v1/questions and POST /v1/questions.
// GET with a limit runs the random sampler; GET without one lists questions
// for the admin backoffice.
func (h *HTTPHandler) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
	}
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	subjectParam := r.URL.Query().Get("subjectId")
	limitParam := r.URL.Query().Get("limit")

	if limitParam == "" {
		var subjectID *uuid.UUID
		if subjectParam != "" {
			id, err := uuid.Parse(subjectParam)
			if err != nil {
				httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "invalid subject id")
				return
			}
			subjectID = &id
		}
		questions, err := h.svc.List(r.Context(), subjectID)
		if err != nil {
			h.logger.Error().Err(err).Msg("list questions failed")
			httperrors.RespondInternalError(w, "failed to list questions")
			return
		}
		writeJSON(w, http.StatusOK, emptyAsSlice(questions))
		return
	}

	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		limit = h.defaultCount
	}

	questions, err := h.svc.SampleForGame(r.Context(), subjectParam, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("subject", subjectParam).Msg("sample failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeSampleFailed, "failed to sample questions")
		return
	}

	metrics.QuestionsSampled.Add(float64(len(questions)))
	metrics.SampleSize.Observe(float64(len(questions)))

	writeJSON(w, http.StatusOK, emptyAsSlice(questions))
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), q)
	if err != nil {
		if errors.Is(err, ErrInvalidQuestion) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("create question failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuestionCreate, "failed to create question")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleQuestionByID serves PUT /v1/questions/{id} and DELETE /v1/questions/{id}.
func (h *HTTPHandler) HandleQuestionByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "invalid question id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var q model.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
			return
		}
		q.ID = id
		updated, err := h.svc.Update(r.Context(), q)
		if err != nil {
			h.respondUpdateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := h.svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "question not found")
				return
			}
			h.logger.Error().Err(err).Msg("delete question failed")
			httperrors.RespondInternalError(w, "failed to delete question")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Question deleted"})

	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
	}
}

func (h *HTTPHandler) respondUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuestion):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "question not found")
	default:
		h.logger.Error().Err(err).Msg("update question failed")
		httperrors.RespondInternalError(w, "failed to update question")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func emptyAsSlice(qs []model.Question) []model.Question {
	if qs == nil {
		return []model.Question{}
	}
	return qs
}
