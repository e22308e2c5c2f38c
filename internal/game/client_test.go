package game

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/trivialabs/trivia-platform/internal/auth"
	"github.com/trivialabs/trivia-platform/internal/auth/jwt"
	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/game/scoring"
	"github.com/trivialabs/trivia-platform/internal/leaderboard"
	"github.com/trivialabs/trivia-platform/internal/model"
)

type fakeResultStore struct {
	byGameID map[string]model.GameResult
	failures int32
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{byGameID: map[string]model.GameResult{}}
}

func (f *fakeResultStore) FindByGameID(_ context.Context, gameID string) (model.GameResult, error) {
	if res, ok := f.byGameID[gameID]; ok {
		return res, nil
	}
	return model.GameResult{}, repository.ErrNotFound
}

func (f *fakeResultStore) Insert(_ context.Context, res model.GameResult) (model.GameResult, error) {
	if _, ok := f.byGameID[res.GameID]; ok {
		return model.GameResult{}, repository.ErrDuplicateGameID
	}
	res.ID = uuid.New()
	res.Date = time.Now()
	f.byGameID[res.GameID] = res
	return res, nil
}

func (f *fakeResultStore) BestScore(_ context.Context, userID uuid.UUID, excludeGameID string) (int, bool, error) {
	best, found := 0, false
	for _, res := range f.byGameID {
		if res.UserID != userID || res.GameID == excludeGameID {
			continue
		}
		if !found || res.Score > best {
			best = res.Score
			found = true
		}
	}
	return best, found, nil
}

func (f *fakeResultStore) Top(_ context.Context, _ *uuid.UUID, _ int) ([]model.LeaderboardEntry, error) {
	return nil, nil
}

// newGameAPIServer serves questions and the real score submission guard.
func newGameAPIServer(t *testing.T, questions []model.Question, store leaderboard.ResultStore, flaky *int32) (*httptest.Server, string) {
	t.Helper()
	logger := zerolog.New(io.Discard)

	tokenCfg := jwt.TokenConfig{Secret: []byte("test-secret"), Issuer: "test"}
	authSvc := auth.NewService(nil, tokenCfg, logger)

	token, err := jwt.NewManager(tokenCfg).Generate(jwt.User{
		ID:       uuid.New(),
		Username: "alice",
	}, time.Hour)
	assert.NoError(t, err)

	lbSvc := leaderboard.NewService(store, nil, logger, leaderboard.ServiceOptions{})
	lbHandler := leaderboard.NewHTTPHandler(lbSvc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/questions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := []byte(`[]`)
		if len(questions) > 0 {
			payload = mustEncode(t, questions)
		}
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("/v1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if flaky != nil && atomic.AddInt32(flaky, -1) >= 0 {
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		lbHandler.Handle(w, r)
	})

	server := httptest.NewServer(auth.Middleware(authSvc, logger)(mux))
	t.Cleanup(server.Close)
	return server, token
}

func mustEncode(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	assert.NoError(t, err)
	return data
}

func TestClientFullPlayThrough(t *testing.T) {
	questions := twoQuestions()
	store := newFakeResultStore()
	server, token := newGameAPIServer(t, questions, store, nil)

	client := NewClient(ClientOptions{BaseURL: server.URL, Token: token}, zerolog.New(io.Discard))
	ctx := context.Background()

	assert.NoError(t, client.Start(ctx, "", 2))
	session := client.Session()
	assert.Equal(t, StatusPlaying, session.Status())
	assert.Equal(t, 2, session.QuestionCount())

	// First question answered correctly with the timer expired: base only.
	playing := client.Answer(questions[0].CorrectAnswerIndex, 0, 30)
	assert.True(t, playing)
	assert.Equal(t, 10, session.Score())

	// Second question answered wrong: no score change, game over.
	wrong := (questions[1].CorrectAnswerIndex + 1) % len(questions[1].Options)
	playing = client.Answer(wrong, 20, 30)
	assert.False(t, playing)
	assert.Equal(t, StatusResult, session.Status())
	assert.Equal(t, 10, session.Score())

	result, isNewRecord, err := client.SubmitResult(ctx, "")
	assert.NoError(t, err)
	assert.True(t, isNewRecord)
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, session.GameID(), result.GameID)
	assert.True(t, session.ResultSubmitted())
	assert.Len(t, store.byGameID, 1)

	// Guarded against double submission.
	_, _, err = client.SubmitResult(ctx, "")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestClientRetriesTransientSubmitFailures(t *testing.T) {
	questions := twoQuestions()
	store := newFakeResultStore()

	// First two submission attempts hit a 502 before the handler.
	flaky := int32(2)
	server, token := newGameAPIServer(t, questions, store, &flaky)

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		Token:         token,
		SubmitBackoff: time.Millisecond,
	}, zerolog.New(io.Discard))
	ctx := context.Background()

	assert.NoError(t, client.Start(ctx, "", 2))
	client.Answer(questions[0].CorrectAnswerIndex, 25, 30)
	client.Answer(questions[1].CorrectAnswerIndex, 25, 30)

	result, _, err := client.SubmitResult(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, client.Session().Score(), result.Score)
	assert.Len(t, store.byGameID, 1, "retries collapse to one stored row")
}

// A bonus cap passed through ClientOptions.Scoring must reach the session's
// calculator. An 8s-left answer on a 10s timer pays a 240 bonus uncapped.
func TestClientScoringConfigApplied(t *testing.T) {
	cfg := scoring.DefaultConfig()
	cfg.MaxBonus = 50

	client := NewClient(ClientOptions{Scoring: cfg}, zerolog.New(io.Discard))
	session := client.Session()

	questions := twoQuestions()
	session.StartGame(questions)
	session.SubmitAnswer(questions[0].ID, questions[0].CorrectAnswerIndex, 8, 10)
	assert.Equal(t, 60, session.Score())
	assert.Equal(t, 50, session.LastBonusPoints())

	// The zero value keeps production defaults, bonus unbounded.
	client = NewClient(ClientOptions{}, zerolog.New(io.Discard))
	session = client.Session()
	session.StartGame(questions)
	session.SubmitAnswer(questions[0].ID, questions[0].CorrectAnswerIndex, 8, 10)
	assert.Equal(t, 250, session.Score())
}

func TestClientRefusesEmptyQuestionSet(t *testing.T) {
	server, token := newGameAPIServer(t, nil, newFakeResultStore(), nil)

	client := NewClient(ClientOptions{BaseURL: server.URL, Token: token}, zerolog.New(io.Discard))
	err := client.Start(context.Background(), "", 2)
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, StatusLobby, client.Session().Status())
}

func TestClientSubmitBeforeFinishFails(t *testing.T) {
	questions := twoQuestions()
	server, token := newGameAPIServer(t, questions, newFakeResultStore(), nil)

	client := NewClient(ClientOptions{BaseURL: server.URL, Token: token}, zerolog.New(io.Discard))
	ctx := context.Background()

	assert.NoError(t, client.Start(ctx, "", 2))
	_, _, err := client.SubmitResult(ctx, "")
	assert.ErrorIs(t, err, ErrNotFinished)
}
