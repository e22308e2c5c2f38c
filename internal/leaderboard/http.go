package leaderboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/auth"
	"github.com/trivialabs/trivia-platform/internal/metrics"
	"github.com/trivialabs/trivia-platform/internal/model"
	httperrors "github.com/trivialabs/trivia-platform/pkg/http/errors"
)

// HTTPHandler exposes REST endpoints for leaderboard reads and score submission.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

type submitBody struct {
	Score     *float64 `json:"score"`
	GameID    string   `json:"gameId"`
	SubjectID string   `json:"subjectId"`
}

// submitResponse is the stored record with isNewRecord as a sibling field,
// not nested under a wrapper key.
type submitResponse struct {
	model.GameResult
	IsNewRecord bool `json:"isNewRecord"`
}

// Handle serves the leaderboard collection.
// Routes: GET  /v1/leaderboard?subjectId=&limit=10
//
//	POST /v1/leaderboard
func (h *HTTPHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleTop(w, r)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) handleTop(w http.ResponseWriter, r *http.Request) {
	var subjectID *uuid.UUID
	if raw := r.URL.Query().Get("subjectId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "Invalid subject id")
			return
		}
		subjectID = &parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.svc.Top(r.Context(), subjectID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("leaderboard fetch failed")
		httperrors.RespondInternalError(w, "Failed to fetch leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":     entries,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSubmit records a finished game's score. Retries with the same gameId
// return 200 with the stored result instead of 201.
func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidScore, "Score must be a number")
		return
	}

	if body.GameID == "" {
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingGameID, "Missing gameId")
		return
	}
	if body.Score == nil {
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidScore, "Score must be a number")
		return
	}

	req := SubmitRequest{
		UserID:   claims.UserID,
		Username: claims.Username,
		Score:    int(*body.Score),
		GameID:   body.GameID,
	}
	if body.SubjectID != "" {
		if parsed, err := uuid.Parse(body.SubjectID); err == nil {
			req.SubjectID = &parsed
		}
	}

	outcome, err := h.svc.Submit(r.Context(), req)
	switch {
	case errors.Is(err, ErrMissingGameID):
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingGameID, "Missing gameId")
		return
	case errors.Is(err, ErrInvalidScore):
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidScore, "Score must be a non-negative number")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("game_id", body.GameID).Msg("score submission failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "Failed to submit score")
		return
	}

	status := http.StatusCreated
	if outcome.Replayed {
		status = http.StatusOK
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeReplayed).Inc()
	} else {
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeCreated).Inc()
	}

	writeJSON(w, status, submitResponse{
		GameResult:  outcome.Result,
		IsNewRecord: outcome.IsNewRecord,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
