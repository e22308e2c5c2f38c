package ws

import (
	"encoding/json"
	"time"
)

// Message types pushed to connected clients.
const (
	TypeLeaderboardUpdate = "leaderboard_update"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Message is the envelope for every WebSocket frame.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LeaderboardEntry is one row of a leaderboard pushed over WebSocket.
type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Score     int       `json:"score"`
	SubjectID string    `json:"subjectId,omitempty"`
	Date      time.Time `json:"date"`
}

// LeaderboardUpdatePayload announces a refreshed top list after a new score lands.
type LeaderboardUpdatePayload struct {
	SubjectID string             `json:"subjectId,omitempty"`
	GameID    string             `json:"gameId,omitempty"`
	Top       []LeaderboardEntry `json:"top"`
}
