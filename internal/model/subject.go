package model

import (
	"time"

	"github.com/google/uuid"
)

// Subject is a topical category grouping questions.
// QuestionCount is derived at read time, never stored.
type Subject struct {
	ID            uuid.UUID         `json:"id"`
	Name          MultilingualText  `json:"name"`
	Description   *MultilingualText `json:"description,omitempty"`
	CoverImage    string            `json:"coverImage,omitempty"`
	QuestionCount int               `json:"questionCount"`
	CreatedAt     time.Time         `json:"createdAt,omitzero"`
	UpdatedAt     time.Time         `json:"updatedAt,omitzero"`
}
