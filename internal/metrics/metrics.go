package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcome labels.
const (
	OutcomeCreated  = "created"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
)

var (
	// QuestionsSampled counts questions returned by the sampler.
	QuestionsSampled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_questions_sampled_total",
		Help: "Total questions returned by the random sampler.",
	})

	// SampleSize observes the size of each returned sample.
	SampleSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trivia_sample_size",
		Help:    "Distribution of sample sizes returned to game clients.",
		Buckets: []float64{1, 5, 10, 20, 30, 50},
	})

	// ScoreSubmissions counts score submissions by outcome.
	ScoreSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_score_submissions_total",
		Help: "Score submissions by outcome (created, replayed, rejected).",
	}, []string{"outcome"})
)
