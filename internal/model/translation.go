package model

import (
	"time"

	"github.com/google/uuid"
)

// UITranslation is one admin-managed interface string, e.g. key
// "login.welcome" in category "auth".
type UITranslation struct {
	ID        uuid.UUID        `json:"id"`
	Key       string           `json:"key"`
	Category  string           `json:"category"`
	Text      MultilingualText `json:"text"`
	CreatedAt time.Time        `json:"createdAt,omitzero"`
	UpdatedAt time.Time        `json:"updatedAt,omitzero"`
}
