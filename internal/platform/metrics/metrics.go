package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bitscode"

var (
	// EvaluationsTotal counts finished evaluations by mode (submission, validation) and verdict.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Evaluations completed, by mode and verdict.",
	}, []string{"mode", "verdict"})

	// EvaluationDuration observes submit-to-verdict latency.
	EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent waiting on the execution service per evaluation.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30},
	}, []string{"mode"})

	// JudgeRequestsTotal counts calls to the execution service by operation and outcome.
	JudgeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "judge_requests_total",
		Help:      "HTTP requests sent to the execution service.",
	}, []string{"op", "outcome"})
)
