package subject

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// ErrInvalidSubject rejects a subject without a name.
var ErrInvalidSubject = errors.New("invalid subject")

// Store is the persistence surface the subject service needs. Implemented by
// repository.SubjectRepository.
type Store interface {
	List(ctx context.Context) ([]model.Subject, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Subject, error)
	Insert(ctx context.Context, s model.Subject) (model.Subject, error)
	Update(ctx context.Context, s model.Subject) (model.Subject, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListCache caches the full subject list. Implemented by Cache.
type ListCache interface {
	Get(ctx context.Context) ([]model.Subject, error)
	Set(ctx context.Context, subjects []model.Subject) error
	Invalidate(ctx context.Context) error
}

// Service manages subjects. Reads go through the cache; any write drops it.
type Service struct {
	store  Store
	cache  ListCache
	logger zerolog.Logger
}

// NewService constructs a subject service. cache may be nil.
func NewService(store Store, cache ListCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "subject").Logger(),
	}
}

// List returns every subject with question counts.
func (s *Service) List(ctx context.Context) ([]model.Subject, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("subject cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	subjects, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(subjects) > 0 {
		if err := s.cache.Set(ctx, subjects); err != nil {
			s.logger.Warn().Err(err).Msg("subject cache write failed")
		}
	}
	return subjects, nil
}

// Get fetches one subject.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Subject, error) {
	return s.store.GetByID(ctx, id)
}

// Create stores a new subject.
func (s *Service) Create(ctx context.Context, subj model.Subject) (model.Subject, error) {
	if subj.Name.IsZero() {
		return model.Subject{}, fmt.Errorf("%w: name required", ErrInvalidSubject)
	}

	created, err := s.store.Insert(ctx, subj)
	if err != nil {
		return model.Subject{}, err
	}
	s.dropCache(ctx)
	return created, nil
}

// Update rewrites a subject.
func (s *Service) Update(ctx context.Context, subj model.Subject) (model.Subject, error) {
	if subj.Name.IsZero() {
		return model.Subject{}, fmt.Errorf("%w: name required", ErrInvalidSubject)
	}

	updated, err := s.store.Update(ctx, subj)
	if err != nil {
		return model.Subject{}, err
	}
	s.dropCache(ctx)
	return updated, nil
}

// Delete removes a subject and its questions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.dropCache(ctx)
	return nil
}

func (s *Service) dropCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("subject cache invalidation failed")
	}
}
