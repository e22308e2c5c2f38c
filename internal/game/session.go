package game

import (
	"github.com/google/uuid"

	"github.com/trivialabs/trivia-platform/internal/game/scoring"
	"github.com/trivialabs/trivia-platform/internal/model"
)

// Status is the session's position in the game flow.
type Status string

const (
	StatusLobby   Status = "lobby"
	StatusPlaying Status = "playing"
	StatusResult  Status = "result"
)

// Session is the ephemeral state of one play-through. It is a synchronous,
// single-owner container: every mutation happens through its methods, one at
// a time, so transitions never interleave. Nothing here touches storage;
// score submission is the caller's job once the session reaches Result.
type Session struct {
	status          Status
	gameID          string
	questions       []model.Question
	currentIndex    int
	answers         map[uuid.UUID]int
	score           int
	lastBonusPoints int
	resultSubmitted bool
	submitting      bool

	calc *scoring.Calculator
}

// NewSession creates an empty session in the lobby.
func NewSession(calc *scoring.Calculator) *Session {
	if calc == nil {
		calc = scoring.NewCalculator(scoring.DefaultConfig())
	}
	return &Session{
		status:  StatusLobby,
		answers: make(map[uuid.UUID]int),
		calc:    calc,
	}
}

// StartGame moves to Playing over the given questions, resetting every
// per-game field and minting a fresh game id. Starting from Result acts as
// an implicit reset-and-start. Callers must not start a game with an empty
// question set; the session tolerates it, but NextQuestion will then move
// straight to Result.
func (s *Session) StartGame(questions []model.Question) {
	s.status = StatusPlaying
	s.gameID = NewGameID()
	s.questions = questions
	s.currentIndex = 0
	s.score = 0
	s.lastBonusPoints = 0
	s.answers = make(map[uuid.UUID]int)
	s.resultSubmitted = false
	s.submitting = false
}

// SubmitAnswer records the player's answer for a question and applies the
// score increment. It is idempotent per question: a second call for the same
// questionID is a silent no-op, which protects against double-clicks. Timing
// parameters of zero mean "no timer"; the bonus then stays zero.
// Outside Playing the call does nothing.
func (s *Session) SubmitAnswer(questionID uuid.UUID, answerIndex int, timeLeft, totalTime float64) {
	if s.status != StatusPlaying {
		return
	}
	if _, answered := s.answers[questionID]; answered {
		return
	}
	if s.currentIndex >= len(s.questions) {
		return
	}

	current := s.questions[s.currentIndex]
	s.answers[questionID] = answerIndex

	isCorrect := current.CorrectAnswerIndex == answerIndex
	base, bonus := s.calc.Score(isCorrect, timeLeft, totalTime)
	s.score += base + bonus
	s.lastBonusPoints = bonus
}

// NextQuestion advances to the next question, or to Result after the last
// one. Only valid in Playing; elsewhere it is a no-op.
func (s *Session) NextQuestion() {
	if s.status != StatusPlaying {
		return
	}

	if s.currentIndex+1 < len(s.questions) {
		s.currentIndex++
		s.lastBonusPoints = 0
		return
	}
	s.status = StatusResult
}

// ResetGame returns to the lobby from any state with all fields cleared.
func (s *Session) ResetGame() {
	s.status = StatusLobby
	s.gameID = ""
	s.questions = nil
	s.currentIndex = 0
	s.score = 0
	s.lastBonusPoints = 0
	s.answers = make(map[uuid.UUID]int)
	s.resultSubmitted = false
	s.submitting = false
}

// SetSubmitting toggles the in-flight flag around a score submission call.
func (s *Session) SetSubmitting(v bool) { s.submitting = v }

// SetResultSubmitted marks the final score as recorded, guarding the UI
// against firing a second submission.
func (s *Session) SetResultSubmitted(v bool) { s.resultSubmitted = v }

// Read accessors: the only surface presentation code may depend on.

func (s *Session) Status() Status            { return s.status }
func (s *Session) GameID() string            { return s.gameID }
func (s *Session) Score() int                { return s.score }
func (s *Session) LastBonusPoints() int      { return s.lastBonusPoints }
func (s *Session) CurrentIndex() int         { return s.currentIndex }
func (s *Session) ResultSubmitted() bool     { return s.resultSubmitted }
func (s *Session) Submitting() bool          { return s.submitting }
func (s *Session) QuestionCount() int        { return len(s.questions) }
func (s *Session) Questions() []model.Question {
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// CurrentQuestion returns the question in play, or false when none is.
func (s *Session) CurrentQuestion() (model.Question, bool) {
	if s.status != StatusPlaying || s.currentIndex >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[s.currentIndex], true
}

// Answer returns the recorded answer index for a question, if any.
func (s *Session) Answer(questionID uuid.UUID) (int, bool) {
	idx, ok := s.answers[questionID]
	return idx, ok
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}
