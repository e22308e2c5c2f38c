package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/model"
	ws "github.com/trivialabs/trivia-platform/pkg/http/ws"
)

var (
	// ErrMissingGameID rejects a submission with no idempotency key.
	ErrMissingGameID = errors.New("missing game id")
	// ErrInvalidScore rejects a negative score.
	ErrInvalidScore = errors.New("invalid score")
)

// ResultStore is the persistence surface the guard needs. Implemented by
// repository.ResultRepository.
type ResultStore interface {
	FindByGameID(ctx context.Context, gameID string) (model.GameResult, error)
	Insert(ctx context.Context, res model.GameResult) (model.GameResult, error)
	BestScore(ctx context.Context, userID uuid.UUID, excludeGameID string) (int, bool, error)
	Top(ctx context.Context, subjectID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error)
}

// SubmitRequest carries one score submission.
type SubmitRequest struct {
	UserID    uuid.UUID
	Username  string
	Score     int
	SubjectID *uuid.UUID
	GameID    string
}

// SubmitOutcome is the result of a submission. Replayed is true when the
// game's score had already been recorded and no write happened.
type SubmitOutcome struct {
	Result      model.GameResult
	IsNewRecord bool
	Replayed    bool
}

// ServiceOptions configures leaderboard behavior.
type ServiceOptions struct {
	TopN          int
	CacheTTL      time.Duration
	PubSubChannel string
}

// Service guards score submission idempotency and serves ranked top lists.
type Service struct {
	store  ResultStore
	redis  *redis.Client
	logger zerolog.Logger

	topN     int
	cacheTTL time.Duration
	channel  string
	bgCtx    context.Context
}

// NewService constructs a leaderboard service. redis may be nil; caching and
// update broadcasts are then disabled.
func NewService(store ResultStore, redisClient *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "leaderboard:updates"
	}

	return &Service{
		store:    store,
		redis:    redisClient,
		logger:   logger.With().Str("component", "leaderboard").Logger(),
		topN:     topN,
		cacheTTL: ttl,
		channel:  channel,
		bgCtx:    context.Background(),
	}
}

// SetBackgroundContext ties asynchronous update publishes to the given
// context so they stop with the rest of the background workers on shutdown.
func (s *Service) SetBackgroundContext(ctx context.Context) {
	if ctx != nil {
		s.bgCtx = ctx
	}
}

// Submit records a game's final score at most once per game id.
//
// The duplicate-insert race is the expected concurrent outcome here, not an
// exception: two in-flight retries for the same gameId must both succeed,
// with exactly one row written. The unique index on game_id acts as the
// optimistic lock; losing it means re-reading the winner's row.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitOutcome, error) {
	if req.GameID == "" {
		return SubmitOutcome{}, ErrMissingGameID
	}
	if req.Score < 0 {
		return SubmitOutcome{}, ErrInvalidScore
	}

	existing, err := s.store.FindByGameID(ctx, req.GameID)
	if err == nil {
		return s.replay(ctx, existing)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return SubmitOutcome{}, fmt.Errorf("lookup game result: %w", err)
	}

	best, hasPrior, err := s.store.BestScore(ctx, req.UserID, "")
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("prior best score: %w", err)
	}
	isNewRecord := !hasPrior || req.Score > best

	inserted, err := s.store.Insert(ctx, model.GameResult{
		UserID:    req.UserID,
		Username:  req.Username,
		Score:     req.Score,
		SubjectID: req.SubjectID,
		GameID:    req.GameID,
	})
	if errors.Is(err, repository.ErrDuplicateGameID) {
		winner, ferr := s.store.FindByGameID(ctx, req.GameID)
		if ferr != nil {
			return SubmitOutcome{}, fmt.Errorf("refetch after duplicate insert: %w", ferr)
		}
		return s.replay(ctx, winner)
	}
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("insert game result: %w", err)
	}

	s.invalidateCache(ctx, req.SubjectID)
	go s.publishUpdate(s.bgCtx, inserted)

	return SubmitOutcome{Result: inserted, IsNewRecord: isNewRecord, Replayed: false}, nil
}

// replay returns the already-stored result. IsNewRecord is recomputed against
// the submitter's best excluding this game's own row, so retries observe the
// same flag the original submission did.
func (s *Service) replay(ctx context.Context, existing model.GameResult) (SubmitOutcome, error) {
	best, hasPrior, err := s.store.BestScore(ctx, existing.UserID, existing.GameID)
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("prior best score: %w", err)
	}
	isNewRecord := !hasPrior || existing.Score > best
	return SubmitOutcome{Result: existing, IsNewRecord: isNewRecord, Replayed: true}, nil
}

// Top returns the highest scores, optionally filtered to one subject, served
// from the Redis cache when fresh.
func (s *Service) Top(ctx context.Context, subjectID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	if cached, ok := s.cachedTop(ctx, subjectID); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	entries, err := s.store.Top(ctx, subjectID, s.topN)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	s.cacheTop(ctx, subjectID, entries)

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) cachedTop(ctx context.Context, subjectID *uuid.UUID) ([]model.LeaderboardEntry, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, s.cacheKey(subjectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("leaderboard cache read failed")
		}
		return nil, false
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache decode failed")
		return nil, false
	}
	return entries, true
}

func (s *Service) cacheTop(ctx context.Context, subjectID *uuid.UUID, entries []model.LeaderboardEntry) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.cacheKey(subjectID), data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache write failed")
	}
}

func (s *Service) invalidateCache(ctx context.Context, subjectID *uuid.UUID) {
	if s.redis == nil {
		return
	}
	keys := []string{s.cacheKey(nil)}
	if subjectID != nil {
		keys = append(keys, s.cacheKey(subjectID))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache invalidation failed")
	}
}

func (s *Service) cacheKey(subjectID *uuid.UUID) string {
	if subjectID == nil {
		return "leaderboard:top:all"
	}
	return fmt.Sprintf("leaderboard:top:%s", subjectID)
}

// publishUpdate pushes the refreshed top list to Pub/Sub for WebSocket fan-out.
func (s *Service) publishUpdate(ctx context.Context, result model.GameResult) {
	if s.redis == nil || ctx.Err() != nil {
		return
	}

	entries, err := s.store.Top(ctx, result.SubjectID, s.topN)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to collect leaderboard update")
		return
	}

	payload := ws.LeaderboardUpdatePayload{
		GameID: result.GameID,
		Top:    toWSEntries(entries),
	}
	if result.SubjectID != nil {
		payload.SubjectID = result.SubjectID.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}
