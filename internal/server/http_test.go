package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trivialabs/trivia-platform/internal/config"
)

func TestWSUpgraderOriginCheck(t *testing.T) {
	upgrader := newWSUpgrader(config.CORS{
		AllowedOrigins: []string{"http://localhost:3000", "https://trivia.example.com"},
	})

	cases := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"configured origin", "http://localhost:3000", true},
		{"second configured origin", "https://trivia.example.com", true},
		{"unknown origin", "https://evil.example.com", false},
		{"scheme mismatch", "https://localhost:3000", false},
		{"no origin header", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws/leaderboard", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.allowed, upgrader.CheckOrigin(req))
		})
	}
}
