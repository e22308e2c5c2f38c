package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// ResultRepository persists game results. The unique index on game_id is the
// storage half of submission idempotency; Insert surfaces the race as
// ErrDuplicateGameID so the service can recover by re-fetching.
type ResultRepository struct {
	db DB
}

func NewResultRepository(db DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, user_id, username, score, subject_id, game_id, date`

// FindByGameID returns the result recorded for a game, or ErrNotFound.
func (r *ResultRepository) FindByGameID(ctx context.Context, gameID string) (model.GameResult, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM game_results WHERE game_id = $1`, gameID)
	res, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GameResult{}, ErrNotFound
	}
	if err != nil {
		return model.GameResult{}, fmt.Errorf("find result by game id: %w", err)
	}
	return res, nil
}

// Insert stores a new result. Returns ErrDuplicateGameID when another insert
// with the same game_id already won.
func (r *ResultRepository) Insert(ctx context.Context, res model.GameResult) (model.GameResult, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO game_results (user_id, username, score, subject_id, game_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+resultColumns,
		res.UserID, res.Username, res.Score, res.SubjectID, res.GameID)

	inserted, err := scanResult(row)
	if err != nil {
		if isUniqueViolation(err, "game_results_game_id_key") {
			return model.GameResult{}, ErrDuplicateGameID
		}
		return model.GameResult{}, fmt.Errorf("insert result: %w", err)
	}
	return inserted, nil
}

// BestScore returns the user's highest recorded score, excluding the given
// game when excludeGameID is non-empty. The second return is false when the
// user has no prior results.
func (r *ResultRepository) BestScore(ctx context.Context, userID uuid.UUID, excludeGameID string) (int, bool, error) {
	var best *int
	err := r.db.QueryRow(ctx, `
		SELECT max(score) FROM game_results
		WHERE user_id = $1 AND ($2 = '' OR game_id <> $2)`,
		userID, excludeGameID).Scan(&best)
	if err != nil {
		return 0, false, fmt.Errorf("best score: %w", err)
	}
	if best == nil {
		return 0, false, nil
	}
	return *best, true, nil
}

// Top returns the highest scores joined with user display data, best score
// first, earlier date winning ties. A nil subjectID ranks across all subjects.
func (r *ResultRepository) Top(ctx context.Context, subjectID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if subjectID != nil {
		rows, err = r.db.Query(ctx, `
			SELECT gr.id, gr.user_id, gr.username, COALESCE(u.avatar_url, ''), gr.score, gr.subject_id, gr.date
			FROM game_results gr
			JOIN users u ON u.id = gr.user_id
			WHERE gr.subject_id = $1
			ORDER BY gr.score DESC, gr.date ASC
			LIMIT $2`, *subjectID, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT gr.id, gr.user_id, gr.username, COALESCE(u.avatar_url, ''), gr.score, gr.subject_id, gr.date
			FROM game_results gr
			JOIN users u ON u.id = gr.user_id
			ORDER BY gr.score DESC, gr.date ASC
			LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("top results: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.AvatarURL, &e.Score, &e.SubjectID, &e.Date); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

func scanResult(row pgx.Row) (model.GameResult, error) {
	var res model.GameResult
	err := row.Scan(&res.ID, &res.UserID, &res.Username, &res.Score, &res.SubjectID, &res.GameID, &res.Date)
	if err != nil {
		return model.GameResult{}, err
	}
	return res, nil
}
