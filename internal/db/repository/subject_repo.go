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

// SubjectRepository persists subjects. Question counts are derived per read.
type SubjectRepository struct {
	db DB
}

func NewSubjectRepository(db DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns every subject with its current question count.
func (r *SubjectRepository) List(ctx context.Context) ([]model.Subject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.name, s.description, s.cover_image, s.created_at, s.updated_at,
		       count(q.id) AS question_count
		FROM subjects s
		LEFT JOIN questions q ON q.subject_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		s, err := scanSubject(rows, true)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// GetByID fetches one subject with its question count.
func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Subject, error) {
	row := r.db.QueryRow(ctx, `
		SELECT s.id, s.name, s.description, s.cover_image, s.created_at, s.updated_at,
		       count(q.id) AS question_count
		FROM subjects s
		LEFT JOIN questions q ON q.subject_id = s.id
		WHERE s.id = $1
		GROUP BY s.id`, id)

	s, err := scanSubject(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Subject{}, ErrNotFound
	}
	if err != nil {
		return model.Subject{}, fmt.Errorf("get subject: %w", err)
	}
	return s, nil
}

// Insert stores a new subject.
func (r *SubjectRepository) Insert(ctx context.Context, s model.Subject) (model.Subject, error) {
	nameJSON, descJSON, err := encodeSubjectJSON(s)
	if err != nil {
		return model.Subject{}, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO subjects (name, description, cover_image)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, cover_image, created_at, updated_at`,
		nameJSON, descJSON, nullableString(s.CoverImage))

	inserted, err := scanSubject(row, false)
	if err != nil {
		return model.Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	return inserted, nil
}

// Update rewrites a subject.
func (r *SubjectRepository) Update(ctx context.Context, s model.Subject) (model.Subject, error) {
	nameJSON, descJSON, err := encodeSubjectJSON(s)
	if err != nil {
		return model.Subject{}, err
	}

	row := r.db.QueryRow(ctx, `
		UPDATE subjects
		SET name = $2, description = $3, cover_image = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, cover_image, created_at, updated_at`,
		s.ID, nameJSON, descJSON, nullableString(s.CoverImage))

	updated, err := scanSubject(row, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Subject{}, ErrNotFound
	}
	if err != nil {
		return model.Subject{}, fmt.Errorf("update subject: %w", err)
	}
	return updated, nil
}

// Delete removes a subject and, via FK cascade, its questions.
func (r *SubjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeSubjectJSON(s model.Subject) (nameJSON, descJSON []byte, err error) {
	nameJSON, err = json.Marshal(s.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("encode subject name: %w", err)
	}
	if s.Description != nil {
		descJSON, err = json.Marshal(s.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("encode subject description: %w", err)
		}
	}
	return nameJSON, descJSON, nil
}

func scanSubject(row pgx.Row, withCount bool) (model.Subject, error) {
	var (
		s          model.Subject
		nameJSON   []byte
		descJSON   []byte
		coverImage *string
	)

	dest := []any{&s.ID, &nameJSON, &descJSON, &coverImage, &s.CreatedAt, &s.UpdatedAt}
	if withCount {
		dest = append(dest, &s.QuestionCount)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Subject{}, err
	}

	if err := json.Unmarshal(nameJSON, &s.Name); err != nil {
		return model.Subject{}, fmt.Errorf("decode subject name: %w", err)
	}
	if len(descJSON) > 0 {
		s.Description = &model.MultilingualText{}
		if err := json.Unmarshal(descJSON, s.Description); err != nil {
			return model.Subject{}, fmt.Errorf("decode subject description: %w", err)
		}
	}
	if coverImage != nil {
		s.CoverImage = *coverImage
	}
	return s, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
