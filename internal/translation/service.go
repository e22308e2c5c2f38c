package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// ErrInvalidTranslation rejects a translation without a key or text.
var ErrInvalidTranslation = errors.New("invalid translation")

// Store is the persistence surface for UI strings. Implemented by
// repository.TranslationRepository.
type Store interface {
	List(ctx context.Context, category string) ([]model.UITranslation, error)
	Upsert(ctx context.Context, t model.UITranslation) (model.UITranslation, error)
	Update(ctx context.Context, t model.UITranslation) (model.UITranslation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages admin-editable interface strings.
type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "translation").Logger(),
	}
}

// List returns translations, optionally filtered by category.
func (s *Service) List(ctx context.Context, category string) ([]model.UITranslation, error) {
	return s.store.List(ctx, category)
}

// Save inserts or replaces the translation for a key.
func (s *Service) Save(ctx context.Context, t model.UITranslation) (model.UITranslation, error) {
	if err := validate(t); err != nil {
		return model.UITranslation{}, err
	}
	return s.store.Upsert(ctx, t)
}

// Update rewrites an existing translation by id.
func (s *Service) Update(ctx context.Context, t model.UITranslation) (model.UITranslation, error) {
	if err := validate(t); err != nil {
		return model.UITranslation{}, err
	}
	return s.store.Update(ctx, t)
}

// Delete removes a translation.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func validate(t model.UITranslation) error {
	if t.Key == "" {
		return fmt.Errorf("%w: key required", ErrInvalidTranslation)
	}
	if t.Text.IsZero() {
		return fmt.Errorf("%w: text required", ErrInvalidTranslation)
	}
	return nil
}
