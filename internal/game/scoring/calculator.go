package scoring

import "math"

// Config holds configurable scoring constants (defaults match production).
type Config struct {
	BaseScore     int     // default: 10, awarded for any correct answer
	BonusWeight   float64 // default: 50, scales the time bonus
	ReferenceTime float64 // default: 60s; shorter global timers inflate bonuses
	BonusStep     int     // default: 10, bonus rounds to this granularity
	// MaxBonus caps the bonus when > 0. Zero keeps the historical unbounded
	// behavior: a 5s timer answered instantly pays out very large bonuses.
	MaxBonus int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseScore:     10,
		BonusWeight:   50,
		ReferenceTime: 60,
		BonusStep:     10,
		MaxBonus:      0,
	}
}

// Calculator computes per-answer score increments.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator with the provided config.
func NewCalculator(config Config) *Calculator {
	if config.BaseScore == 0 && config.BonusWeight == 0 {
		config = DefaultConfig()
	}
	if config.BonusStep <= 0 {
		config.BonusStep = 1
	}
	return &Calculator{config: config}
}

// Score maps (correctness, time left, total time) to a base score and bonus.
// Rules:
//   - base is awarded iff the answer is correct
//   - bonus requires a correct answer and positive timeLeft and totalTime
//   - bonus = round(weight * (timeLeft/totalTime) * (reference/totalTime) / step) * step
//
// Both ratios reward speed: answering early relative to the question timer,
// and playing under a global timer shorter than the reference.
func (c *Calculator) Score(isCorrect bool, timeLeft, totalTime float64) (base, bonus int) {
	if !isCorrect {
		return 0, 0
	}

	base = c.config.BaseScore

	if timeLeft <= 0 || totalTime <= 0 {
		return base, 0
	}

	raw := c.config.BonusWeight * (timeLeft / totalTime) * (c.config.ReferenceTime / totalTime)
	step := float64(c.config.BonusStep)
	bonus = int(math.Round(raw/step)) * c.config.BonusStep

	if c.config.MaxBonus > 0 && bonus > c.config.MaxBonus {
		bonus = c.config.MaxBonus
	}
	return base, bonus
}

// Increment returns the total score delta for one answer.
func (c *Calculator) Increment(isCorrect bool, timeLeft, totalTime float64) int {
	base, bonus := c.Score(isCorrect, timeLeft, totalTime)
	return base + bonus
}
