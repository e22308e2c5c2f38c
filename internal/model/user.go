package model

import (
	"time"

	"github.com/google/uuid"
)

// Preferences holds per-player settings. FavoriteSubjects feeds the
// favorites-mix question sampler.
type Preferences struct {
	QuestionsPerTournament int      `json:"questionsPerTournament,omitempty"`
	GameTimer              int      `json:"gameTimer,omitempty"`
	IsTimerEnabled         *bool    `json:"isTimerEnabled,omitempty"`
	FavoriteSubjects       []string `json:"favoriteSubjects,omitempty"`
	Gender                 string   `json:"gender,omitempty"`
	Language               string   `json:"language,omitempty"`
	HasSeenBonusModal      bool     `json:"hasSeenBonusModal,omitempty"`
}

// User is a player or admin account. Players have no password; admins do.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	IsAdmin      bool        `json:"isAdmin"`
	AvatarURL    string      `json:"avatarUrl,omitempty"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt,omitzero"`
	UpdatedAt    time.Time   `json:"updatedAt,omitzero"`
}
