package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionOption is one selectable answer.
type QuestionOption struct {
	Text MultilingualText `json:"text"`
}

// Question is a stored trivia question. RandomKey is assigned exactly once at
// creation, uniformly in [0,1), and never changes; it is what makes random
// sampling an index scan instead of a full collection sort.
type Question struct {
	ID                 uuid.UUID        `json:"id"`
	SubjectID          uuid.UUID        `json:"subjectId"`
	Text               MultilingualText `json:"text"`
	Options            []QuestionOption `json:"options"`
	CorrectAnswerIndex int              `json:"correctAnswerIndex"`
	RandomKey          float64          `json:"-"`
	CreatedAt          time.Time        `json:"createdAt,omitzero"`
	UpdatedAt          time.Time        `json:"updatedAt,omitzero"`
}
