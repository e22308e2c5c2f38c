package model

import (
	"time"

	"github.com/google/uuid"
)

// GameResult is the persisted record of one completed session's final score.
// GameID is unique in storage; a result is written at most once per game and
// never mutated afterwards.
type GameResult struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Username  string     `json:"username"`
	Score     int        `json:"score"`
	SubjectID *uuid.UUID `json:"subjectId,omitempty"`
	GameID    string     `json:"gameId"`
	Date      time.Time  `json:"date"`
}

// LeaderboardEntry is a GameResult joined with display data for rankings.
type LeaderboardEntry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Username  string     `json:"username"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Score     int        `json:"score"`
	SubjectID *uuid.UUID `json:"subjectId,omitempty"`
	Date      time.Time  `json:"date"`
}
