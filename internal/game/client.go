package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/trivialabs/trivia-platform/internal/game/scoring"
	"github.com/trivialabs/trivia-platform/internal/model"
)

var (
	// ErrNoQuestions refuses to start a game over an empty question set.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNotFinished refuses to submit before the session reaches its result.
	ErrNotFinished = errors.New("game not finished")
	// ErrAlreadySubmitted refuses a second submission for the same game.
	ErrAlreadySubmitted = errors.New("result already submitted")
)

// Client drives a full play-through against the platform API: it samples
// questions, owns the session state, and submits the final score. Transient
// submission failures are retried with backoff; the server's gameId guard
// makes those retries safe.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	session *Session
	logger  zerolog.Logger

	maxSubmitRetries uint64
	submitBackoff    time.Duration
}

// ClientOptions configures a game client.
type ClientOptions struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Session *Session

	// Scoring tunes the calculator for the client-owned session. The zero
	// value means production defaults. Ignored when Session is set.
	Scoring scoring.Config

	MaxSubmitRetries uint64        // default: 4
	SubmitBackoff    time.Duration // default: 500ms, fibonacci growth
}

// NewClient constructs a game client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	httpc := opts.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	session := opts.Session
	if session == nil {
		session = NewSession(scoring.NewCalculator(opts.Scoring))
	}
	maxRetries := opts.MaxSubmitRetries
	if maxRetries == 0 {
		maxRetries = 4
	}
	backoff := opts.SubmitBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Client{
		baseURL:          opts.BaseURL,
		token:            opts.Token,
		httpc:            httpc,
		session:          session,
		logger:           logger.With().Str("component", "game_client").Logger(),
		maxSubmitRetries: maxRetries,
		submitBackoff:    backoff,
	}
}

// Session exposes the underlying session for state inspection.
func (c *Client) Session() *Session { return c.session }

// Start samples questions for the given subjects and begins a game.
// subjectParam may be empty (whole pool) or a comma-separated id list.
func (c *Client) Start(ctx context.Context, subjectParam string, count int) error {
	questions, err := c.fetchQuestions(ctx, subjectParam, count)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	c.session.StartGame(questions)
	c.logger.Info().
		Str("game_id", c.session.GameID()).
		Int("questions", len(questions)).
		Msg("game started")
	return nil
}

// Answer submits an answer for the current question and advances to the next
// one. Returns false once the session has left Playing.
func (c *Client) Answer(answerIndex int, timeLeft, totalTime float64) bool {
	current, ok := c.session.CurrentQuestion()
	if !ok {
		return false
	}
	c.session.SubmitAnswer(current.ID, answerIndex, timeLeft, totalTime)
	c.session.NextQuestion()
	return c.session.Status() == StatusPlaying
}

// SubmitResult posts the final score, retrying transient failures. A replayed
// submission (HTTP 200) counts as success.
func (c *Client) SubmitResult(ctx context.Context, subjectID string) (model.GameResult, bool, error) {
	if c.session.Status() != StatusResult {
		return model.GameResult{}, false, ErrNotFinished
	}
	if c.session.ResultSubmitted() || c.session.Submitting() {
		return model.GameResult{}, false, ErrAlreadySubmitted
	}

	c.session.SetSubmitting(true)
	defer c.session.SetSubmitting(false)

	payload, err := json.Marshal(map[string]interface{}{
		"score":     c.session.Score(),
		"gameId":    c.session.GameID(),
		"subjectId": subjectID,
	})
	if err != nil {
		return model.GameResult{}, false, fmt.Errorf("encode submission: %w", err)
	}

	var out struct {
		model.GameResult
		IsNewRecord bool `json:"isNewRecord"`
	}

	backoff := retry.WithMaxRetries(c.maxSubmitRetries, retry.NewFibonacci(c.submitBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/leaderboard", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			return json.NewDecoder(resp.Body).Decode(&out)
		case resp.StatusCode >= 500:
			io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("submit score: status %d", resp.StatusCode))
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("submit score: status %d: %s", resp.StatusCode, body)
		}
	})
	if err != nil {
		return model.GameResult{}, false, err
	}

	c.session.SetResultSubmitted(true)
	c.logger.Info().
		Str("game_id", c.session.GameID()).
		Int("score", c.session.Score()).
		Bool("new_record", out.IsNewRecord).
		Msg("score submitted")
	return out.GameResult, out.IsNewRecord, nil
}

func (c *Client) fetchQuestions(ctx context.Context, subjectParam string, count int) ([]model.Question, error) {
	q := url.Values{}
	if subjectParam != "" {
		q.Set("subjectId", subjectParam)
	}
	if count > 0 {
		q.Set("limit", strconv.Itoa(count))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/questions?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch questions: status %d: %s", resp.StatusCode, body)
	}

	var questions []model.Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
