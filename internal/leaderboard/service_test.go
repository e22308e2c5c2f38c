package leaderboard

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/model"
)

// memoryResultStore enforces the same game_id uniqueness the database does.
type memoryResultStore struct {
	byGameID map[string]model.GameResult
	topCalls int

	// insertHook runs before each insert; used to simulate a racing writer.
	insertHook func()
}

func newMemoryResultStore() *memoryResultStore {
	return &memoryResultStore{byGameID: map[string]model.GameResult{}}
}

func (m *memoryResultStore) FindByGameID(_ context.Context, gameID string) (model.GameResult, error) {
	if res, ok := m.byGameID[gameID]; ok {
		return res, nil
	}
	return model.GameResult{}, repository.ErrNotFound
}

func (m *memoryResultStore) Insert(_ context.Context, res model.GameResult) (model.GameResult, error) {
	if m.insertHook != nil {
		m.insertHook()
	}
	if _, ok := m.byGameID[res.GameID]; ok {
		return model.GameResult{}, repository.ErrDuplicateGameID
	}
	res.ID = uuid.New()
	res.Date = time.Now()
	m.byGameID[res.GameID] = res
	return res, nil
}

func (m *memoryResultStore) BestScore(_ context.Context, userID uuid.UUID, excludeGameID string) (int, bool, error) {
	best, found := 0, false
	for _, res := range m.byGameID {
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

func (m *memoryResultStore) Top(_ context.Context, subjectID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	m.topCalls++
	var entries []model.LeaderboardEntry
	for _, res := range m.byGameID {
		if subjectID != nil && (res.SubjectID == nil || *res.SubjectID != *subjectID) {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:    res.UserID,
			Username:  res.Username,
			Score:     res.Score,
			SubjectID: res.SubjectID,
			Date:      res.Date,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func newTestService(store ResultStore) *Service {
	return NewService(store, nil, zerolog.New(io.Discard), ServiceOptions{})
}

func submitReq(userID uuid.UUID, gameID string, score int) SubmitRequest {
	return SubmitRequest{
		UserID:   userID,
		Username: "alice",
		Score:    score,
		GameID:   gameID,
	}
}

func TestSubmitFreshScore(t *testing.T) {
	store := newMemoryResultStore()
	svc := newTestService(store)
	userID := uuid.New()

	outcome, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 120))
	assert.NoError(t, err)
	assert.False(t, outcome.Replayed)
	assert.True(t, outcome.IsNewRecord, "first score is always a record")
	assert.Equal(t, 120, outcome.Result.Score)
	assert.Len(t, store.byGameID, 1)
}

func TestSubmitReplayKeepsFirstScore(t *testing.T) {
	store := newMemoryResultStore()
	svc := newTestService(store)
	userID := uuid.New()

	first, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 120))
	assert.NoError(t, err)

	// A retry with a different score must not create a second row or
	// overwrite the first one.
	replay, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 999))
	assert.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Result.ID, replay.Result.ID)
	assert.Equal(t, 120, replay.Result.Score)
	assert.Len(t, store.byGameID, 1)
}

func TestSubmitReplayRecomputesIsNewRecord(t *testing.T) {
	store := newMemoryResultStore()
	svc := newTestService(store)
	userID := uuid.New()

	// 120 was a record when submitted.
	outcome, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 120))
	assert.NoError(t, err)
	assert.True(t, outcome.IsNewRecord)

	// Replaying it still reports a record: its own row is excluded from the
	// comparison.
	replay, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 120))
	assert.NoError(t, err)
	assert.True(t, replay.IsNewRecord)

	// A later higher score, then replaying the old game: no longer a record.
	_, err = svc.Submit(context.Background(), submitReq(userID, "game-2", 500))
	assert.NoError(t, err)

	replay, err = svc.Submit(context.Background(), submitReq(userID, "game-1", 120))
	assert.NoError(t, err)
	assert.False(t, replay.IsNewRecord)
}

func TestSubmitIsNewRecordAgainstPriorBest(t *testing.T) {
	store := newMemoryResultStore()
	svc := newTestService(store)
	userID := uuid.New()

	_, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 200))
	assert.NoError(t, err)

	lower, err := svc.Submit(context.Background(), submitReq(userID, "game-2", 150))
	assert.NoError(t, err)
	assert.False(t, lower.IsNewRecord)

	equal, err := svc.Submit(context.Background(), submitReq(userID, "game-3", 200))
	assert.NoError(t, err)
	assert.False(t, equal.IsNewRecord, "tie is not a new record")

	higher, err := svc.Submit(context.Background(), submitReq(userID, "game-4", 201))
	assert.NoError(t, err)
	assert.True(t, higher.IsNewRecord)
}

func TestSubmitRecoversFromInsertRace(t *testing.T) {
	store := newMemoryResultStore()
	svc := newTestService(store)
	userID := uuid.New()

	// A concurrent writer lands the row between our existence check and our
	// insert. The unique violation must resolve to the winner's row.
	raced := false
	store.insertHook = func() {
		if raced {
			return
		}
		raced = true
		res := model.GameResult{ID: uuid.New(), UserID: userID, Username: "alice", Score: 120, GameID: "game-1", Date: time.Now()}
		store.byGameID["game-1"] = res
	}

	outcome, err := svc.Submit(context.Background(), submitReq(userID, "game-1", 999))
	assert.NoError(t, err)
	assert.True(t, outcome.Replayed)
	assert.Equal(t, 120, outcome.Result.Score, "winner's score is returned")
	assert.Len(t, store.byGameID, 1)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(newMemoryResultStore())

	_, err := svc.Submit(context.Background(), submitReq(uuid.New(), "", 120))
	assert.ErrorIs(t, err, ErrMissingGameID)

	_, err = svc.Submit(context.Background(), submitReq(uuid.New(), "game-1", -5))
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestSubmitZeroScoreIsValid(t *testing.T) {
	svc := newTestService(newMemoryResultStore())

	outcome, err := svc.Submit(context.Background(), submitReq(uuid.New(), "game-1", 0))
	assert.NoError(t, err)
	assert.Equal(t, 0, outcome.Result.Score)
}

func TestSubmitLookupErrorPropagates(t *testing.T) {
	svc := newTestService(&failingStore{err: errors.New("db down")})

	_, err := svc.Submit(context.Background(), submitReq(uuid.New(), "game-1", 10))
	assert.Error(t, err)
}

func TestTopRespectsLimit(t *testing.T) {
	store := newMemoryResultStore()
	svc := newTestService(store)

	for i := 0; i < 15; i++ {
		_, err := svc.Submit(context.Background(), SubmitRequest{
			UserID:   uuid.New(),
			Username: "player",
			Score:    i * 10,
			GameID:   uuid.NewString(),
		})
		assert.NoError(t, err)
	}

	entries, err := svc.Top(context.Background(), nil, 5)
	assert.NoError(t, err)
	assert.Len(t, entries, 5)
	assert.Equal(t, 140, entries[0].Score, "sorted by score descending")
}

// Async update publishes run under the service's background context; once
// shutdown cancels it, a publish must do no store work.
func TestPublishUpdateStopsWithBackgroundContext(t *testing.T) {
	store := newMemoryResultStore()
	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = redisClient.Close() })

	svc := NewService(store, redisClient, zerolog.New(io.Discard), ServiceOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	svc.SetBackgroundContext(ctx)
	cancel()

	svc.publishUpdate(svc.bgCtx, model.GameResult{GameID: "game-1"})
	assert.Equal(t, 0, store.topCalls, "cancelled context skips the update")

	// A live context collects the top list; the publish itself fails against
	// the unreachable address and is only logged.
	svc.SetBackgroundContext(context.Background())
	svc.publishUpdate(svc.bgCtx, model.GameResult{GameID: "game-1"})
	assert.Equal(t, 1, store.topCalls)
}

type failingStore struct{ err error }

func (f *failingStore) FindByGameID(context.Context, string) (model.GameResult, error) {
	return model.GameResult{}, f.err
}
func (f *failingStore) Insert(context.Context, model.GameResult) (model.GameResult, error) {
	return model.GameResult{}, f.err
}
func (f *failingStore) BestScore(context.Context, uuid.UUID, string) (int, bool, error) {
	return 0, false, f.err
}
func (f *failingStore) Top(context.Context, *uuid.UUID, int) ([]model.LeaderboardEntry, error) {
	return nil, f.err
}
