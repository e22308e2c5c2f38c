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

// QuestionRepository provides question persistence plus the two pivot-window
// reads the random sampler is built from.
type QuestionRepository struct {
	db DB
}

func NewQuestionRepository(db DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

const questionColumns = `id, subject_id, text, options, correct_answer_index, random_key, created_at, updated_at`

// SampleFromPivot returns up to limit questions with random_key >= pivot,
// ordered by random_key ascending. A nil subjectID samples the whole pool.
func (r *QuestionRepository) SampleFromPivot(ctx context.Context, subjectID *uuid.UUID, pivot float64, limit int) ([]model.Question, error) {
	return r.sampleWindow(ctx, subjectID, pivot, limit, false)
}

// SampleBelowPivot returns up to limit questions with random_key < pivot,
// ordered by random_key ascending. Together with SampleFromPivot it forms a
// wrap-around scan over the key space.
func (r *QuestionRepository) SampleBelowPivot(ctx context.Context, subjectID *uuid.UUID, pivot float64, limit int) ([]model.Question, error) {
	return r.sampleWindow(ctx, subjectID, pivot, limit, true)
}

func (r *QuestionRepository) sampleWindow(ctx context.Context, subjectID *uuid.UUID, pivot float64, limit int, below bool) ([]model.Question, error) {
	cmp := ">="
	if below {
		cmp = "<"
	}

	var (
		rows pgx.Rows
		err  error
	)
	if subjectID != nil {
		query := fmt.Sprintf(`SELECT %s FROM questions WHERE subject_id = $1 AND random_key %s $2 ORDER BY random_key ASC LIMIT $3`, questionColumns, cmp)
		rows, err = r.db.Query(ctx, query, *subjectID, pivot, limit)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM questions WHERE random_key %s $1 ORDER BY random_key ASC LIMIT $2`, questionColumns, cmp)
		rows, err = r.db.Query(ctx, query, pivot, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// ListBySubject returns all questions, optionally filtered by subject.
func (r *QuestionRepository) ListBySubject(ctx context.Context, subjectID *uuid.UUID) ([]model.Question, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if subjectID != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+questionColumns+` FROM questions WHERE subject_id = $1 ORDER BY created_at ASC`, *subjectID)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+questionColumns+` FROM questions ORDER BY created_at ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// GetByID fetches one question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Question, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Question{}, ErrNotFound
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// Insert stores a new question. The caller must have assigned RandomKey;
// the schema rejects rows without one.
func (r *QuestionRepository) Insert(ctx context.Context, q model.Question) (model.Question, error) {
	textJSON, optionsJSON, err := encodeQuestionJSON(q)
	if err != nil {
		return model.Question{}, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO questions (subject_id, text, options, correct_answer_index, random_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+questionColumns,
		q.SubjectID, textJSON, optionsJSON, q.CorrectAnswerIndex, q.RandomKey)

	inserted, err := scanQuestion(row)
	if err != nil {
		return model.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return inserted, nil
}

// Update rewrites a question's content. RandomKey is deliberately not
// updatable: it is immutable after creation.
func (r *QuestionRepository) Update(ctx context.Context, q model.Question) (model.Question, error) {
	textJSON, optionsJSON, err := encodeQuestionJSON(q)
	if err != nil {
		return model.Question{}, err
	}

	row := r.db.QueryRow(ctx, `
		UPDATE questions
		SET subject_id = $2, text = $3, options = $4, correct_answer_index = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+questionColumns,
		q.ID, q.SubjectID, textJSON, optionsJSON, q.CorrectAnswerIndex)

	updated, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Question{}, ErrNotFound
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("update question: %w", err)
	}
	return updated, nil
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountBySubject reports pool size for a subject.
func (r *QuestionRepository) CountBySubject(ctx context.Context, subjectID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM questions WHERE subject_id = $1`, subjectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func encodeQuestionJSON(q model.Question) (textJSON, optionsJSON []byte, err error) {
	textJSON, err = json.Marshal(q.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("encode question text: %w", err)
	}
	optionsJSON, err = json.Marshal(q.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("encode question options: %w", err)
	}
	return textJSON, optionsJSON, nil
}

func scanQuestion(row pgx.Row) (model.Question, error) {
	var (
		q           model.Question
		textJSON    []byte
		optionsJSON []byte
	)
	err := row.Scan(&q.ID, &q.SubjectID, &textJSON, &optionsJSON, &q.CorrectAnswerIndex, &q.RandomKey, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return model.Question{}, err
	}
	if err := json.Unmarshal(textJSON, &q.Text); err != nil {
		return model.Question{}, fmt.Errorf("decode question text: %w", err)
	}
	if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
		return model.Question{}, fmt.Errorf("decode question options: %w", err)
	}
	return q, nil
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}
