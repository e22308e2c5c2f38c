package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// TranslationRepository persists admin-managed UI strings.
type TranslationRepository struct {
	db DB
}

func NewTranslationRepository(db DB) *TranslationRepository {
	return &TranslationRepository{db: db}
}

const translationColumns = `id, key, category, text, created_at, updated_at`

// List returns translations, optionally filtered by category.
func (r *TranslationRepository) List(ctx context.Context, category string) ([]model.UITranslation, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if category != "" {
		rows, err = r.db.Query(ctx,
			`SELECT `+translationColumns+` FROM ui_translations WHERE category = $1 ORDER BY key ASC`, category)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+translationColumns+` FROM ui_translations ORDER BY key ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	var translations []model.UITranslation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return translations, nil
}

// Upsert inserts or replaces the translation for a key.
func (r *TranslationRepository) Upsert(ctx context.Context, t model.UITranslation) (model.UITranslation, error) {
	textJSON, err := json.Marshal(t.Text)
	if err != nil {
		return model.UITranslation{}, fmt.Errorf("encode translation text: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO ui_translations (key, category, text)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET category = EXCLUDED.category, text = EXCLUDED.text, updated_at = now()
		RETURNING `+translationColumns,
		t.Key, t.Category, textJSON)

	saved, err := scanTranslation(row)
	if err != nil {
		return model.UITranslation{}, fmt.Errorf("upsert translation: %w", err)
	}
	return saved, nil
}

// Update rewrites an existing translation by id.
func (r *TranslationRepository) Update(ctx context.Context, t model.UITranslation) (model.UITranslation, error) {
	textJSON, err := json.Marshal(t.Text)
	if err != nil {
		return model.UITranslation{}, fmt.Errorf("encode translation text: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE ui_translations
		SET key = $2, category = $3, text = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+translationColumns,
		t.ID, t.Key, t.Category, textJSON)

	updated, err := scanTranslation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UITranslation{}, ErrNotFound
	}
	if err != nil {
		return model.UITranslation{}, fmt.Errorf("update translation: %w", err)
	}
	return updated, nil
}

// Delete removes a translation.
func (r *TranslationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ui_translations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTranslation(row pgx.Row) (model.UITranslation, error) {
	var (
		t        model.UITranslation
		textJSON []byte
	)
	err := row.Scan(&t.ID, &t.Key, &t.Category, &textJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.UITranslation{}, err
	}
	if err := json.Unmarshal(textJSON, &t.Text); err != nil {
		return model.UITranslation{}, fmt.Errorf("decode translation text: %w", err)
	}
	return t, nil
}
