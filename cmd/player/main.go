// Command player runs a headless game session against a running API server:
// it registers a player, samples questions, answers them with a simulated
// think time, and submits the final score. Useful for smoke-testing a
// deployment end to end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trivialabs/trivia-platform/internal/config"
	"github.com/trivialabs/trivia-platform/internal/game"
	"github.com/trivialabs/trivia-platform/internal/game/scoring"
	"github.com/trivialabs/trivia-platform/internal/model"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "Base URL of the API server")
		username = flag.String("username", "smoke-player", "Player username to register")
		subject  = flag.String("subject", "", "Subject id, or a comma-separated list for a mixed game")
		count    = flag.Int("count", 0, "Questions per game (0 uses the configured default)")
		timer    = flag.Float64("timer", 30, "Per-question timer in seconds")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	var gameCfg config.Game
	if err := env.Parse(&gameCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse game config")
	}

	scoringCfg := scoring.DefaultConfig()
	scoringCfg.MaxBonus = gameCfg.MaxBonus

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	token, user, err := register(ctx, *server, *username)
	if err != nil {
		log.Fatal().Err(err).Str("server", *server).Msg("failed to register player")
	}
	log.Info().Str("username", user.Username).Str("user_id", user.ID.String()).Msg("registered")

	questionCount := *count
	if questionCount <= 0 {
		questionCount = gameCfg.DefaultQuestionCount
	}

	client := game.NewClient(game.ClientOptions{
		BaseURL: *server,
		Token:   token,
		Scoring: scoringCfg,
	}, log.Logger)

	if err := client.Start(ctx, *subject, questionCount); err != nil {
		log.Fatal().Err(err).Msg("failed to start game")
	}

	session := client.Session()
	for {
		current, ok := session.CurrentQuestion()
		if !ok {
			break
		}
		answer := rand.IntN(len(current.Options))
		timeLeft := *timer * rand.Float64()
		if !client.Answer(answer, timeLeft, *timer) {
			break
		}
	}

	result, isNewRecord, err := client.SubmitResult(ctx, firstSubject(*subject))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to submit result")
	}

	log.Info().
		Int("score", result.Score).
		Bool("new_record", isNewRecord).
		Str("game_id", result.GameID).
		Msg("game complete")
}

// register signs the player in by username, creating the account on first use.
func register(ctx context.Context, server, username string) (string, model.User, error) {
	payload, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return "", model.User{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		server+"/v1/auth/register", bytes.NewReader(payload))
	if err != nil {
		return "", model.User{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", model.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.User{}, fmt.Errorf("register: status %d", resp.StatusCode)
	}

	var out struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", model.User{}, err
	}
	return out.Token, out.User, nil
}

// firstSubject reduces a comma-separated subject list to the id the result is
// recorded under. Mixed games are recorded without a subject.
func firstSubject(param string) string {
	for _, r := range param {
		if r == ',' {
			return ""
		}
	}
	return param
}
