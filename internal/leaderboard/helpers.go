package leaderboard

import (
	"github.com/trivialabs/trivia-platform/internal/model"
	ws "github.com/trivialabs/trivia-platform/pkg/http/ws"
)

func toWSEntries(entries []model.LeaderboardEntry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:      i + 1,
			UserID:    e.UserID.String(),
			Username:  e.Username,
			AvatarURL: e.AvatarURL,
			Score:     e.Score,
			Date:      e.Date,
		}
		if e.SubjectID != nil {
			result[i].SubjectID = e.SubjectID.String()
		}
	}
	return result
}
