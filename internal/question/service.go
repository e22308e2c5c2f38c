package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// MaxSampleSize caps how many questions one game may request.
const MaxSampleSize = 50

var (
	ErrInvalidQuestion = errors.New("invalid question")
	ErrNotFound        = errors.New("question not found")
)

// Store is the persistence surface the service needs. Implemented by
// repository.QuestionRepository; tests supply in-memory pools.
type Store interface {
	SampleFromPivot(ctx context.Context, subjectID *uuid.UUID, pivot float64, limit int) ([]model.Question, error)
	SampleBelowPivot(ctx context.Context, subjectID *uuid.UUID, pivot float64, limit int) ([]model.Question, error)
	ListBySubject(ctx context.Context, subjectID *uuid.UUID) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Question, error)
	Insert(ctx context.Context, q model.Question) (model.Question, error)
	Update(ctx context.Context, q model.Question) (model.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service owns question CRUD and random sampling for games.
type Service struct {
	store  Store
	logger zerolog.Logger

	maxSample int
	pivot     func() float64
}

// ServiceOptions tunes sampling behavior.
type ServiceOptions struct {
	MaxSampleSize int
}

func NewService(store Store, logger zerolog.Logger, opts ServiceOptions) *Service {
	maxSample := opts.MaxSampleSize
	if maxSample <= 0 || maxSample > MaxSampleSize {
		maxSample = MaxSampleSize
	}
	return &Service{
		store:     store,
		logger:    logger.With().Str("component", "question").Logger(),
		maxSample: maxSample,
		pivot:     rand.Float64,
	}
}

// SampleForGame selects up to limit questions approximating a uniform random
// sample. subjectParam is empty (whole pool), a single subject id, or a
// comma-separated list (favorites mix). Malformed ids in a list are dropped;
// a list with no valid ids yields an empty sample. The result may be shorter
// than limit when the pools are small; that is not an error.
func (s *Service) SampleForGame(ctx context.Context, subjectParam string, limit int) ([]model.Question, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxSample {
		limit = s.maxSample
	}

	if subjectParam == "" {
		return s.sampleSubject(ctx, nil, limit)
	}

	ids := parseSubjectIDs(subjectParam)
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) == 1 {
		return s.sampleSubject(ctx, &ids[0], limit)
	}

	// Ceiling division so rounding never under-fills the mix.
	perSubject := (limit + len(ids) - 1) / len(ids)

	results := make([][]model.Question, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			qs, err := s.sampleSubject(gctx, &id, perSubject)
			if err != nil {
				return fmt.Errorf("sample subject %s: %w", id, err)
			}
			results[i] = qs
			return nil
		})
	}
	// One failed branch fails the whole sample; no silent partial mix.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mixed []model.Question
	for _, qs := range results {
		mixed = append(mixed, qs...)
	}

	// Shuffle destroys the per-subject grouping left by concatenation.
	shuffle(mixed)

	if len(mixed) > limit {
		mixed = mixed[:limit]
	}
	return mixed, nil
}

// sampleSubject draws a random pivot and scans the key space as a ring:
// first [pivot, 1), then [0, pivot) for any shortfall. The two windows are
// disjoint, so the result never contains duplicates.
func (s *Service) sampleSubject(ctx context.Context, subjectID *uuid.UUID, limit int) ([]model.Question, error) {
	pivot := s.pivot()

	questions, err := s.store.SampleFromPivot(ctx, subjectID, pivot, limit)
	if err != nil {
		return nil, fmt.Errorf("sample from pivot: %w", err)
	}

	if remaining := limit - len(questions); remaining > 0 {
		wrapped, err := s.store.SampleBelowPivot(ctx, subjectID, pivot, remaining)
		if err != nil {
			return nil, fmt.Errorf("sample below pivot: %w", err)
		}
		questions = append(questions, wrapped...)
	}
	return questions, nil
}

// List returns all questions, optionally for one subject.
func (s *Service) List(ctx context.Context, subjectID *uuid.UUID) ([]model.Question, error) {
	return s.store.ListBySubject(ctx, subjectID)
}

// Get fetches one question.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Question, error) {
	return s.store.GetByID(ctx, id)
}

// Create validates and stores a new question, assigning its immutable
// random key. There is no code path that stores a question without one.
func (s *Service) Create(ctx context.Context, q model.Question) (model.Question, error) {
	if err := validate(q); err != nil {
		return model.Question{}, err
	}
	q.RandomKey = rand.Float64()
	return s.store.Insert(ctx, q)
}

// Update rewrites a question's content. The random key is left untouched.
func (s *Service) Update(ctx context.Context, q model.Question) (model.Question, error) {
	if err := validate(q); err != nil {
		return model.Question{}, err
	}
	return s.store.Update(ctx, q)
}

// Delete removes a question.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func validate(q model.Question) error {
	if q.SubjectID == uuid.Nil {
		return fmt.Errorf("%w: subject id required", ErrInvalidQuestion)
	}
	if q.Text.IsZero() {
		return fmt.Errorf("%w: text required", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options required", ErrInvalidQuestion)
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct answer index out of range", ErrInvalidQuestion)
	}
	return nil
}

// parseSubjectIDs splits a comma-separated id list and drops anything that is
// not a well-formed UUID (the client sends pseudo-ids like "favorites-mix").
func parseSubjectIDs(param string) []uuid.UUID {
	parts := strings.Split(param, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(qs []model.Question) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
