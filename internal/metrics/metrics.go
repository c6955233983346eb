package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-intel/internal/models"
)

const (
	// OutcomeSuccess labels operations that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels operations that failed (validation, handler or storage issues).
	OutcomeError = "error"
)

// Suggestion candidate outcomes.
const (
	SuggestionSurfaced  = "surfaced"
	SuggestionGuardrail = "guardrail"
	SuggestionThreshold = "threshold"
	SuggestionSnoozed   = "snoozed"
	SuggestionMuted     = "muted"
	SuggestionCapped    = "capped"
)

const namespace = "mirador_intel"

var (
	insightsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_total",
			Help:      "Visible insights emitted, partitioned by severity.",
		},
		[]string{"severity"},
	)

	suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_candidates_total",
			Help:      "Suggestion candidates, partitioned by the stage that decided them.",
		},
		[]string{"outcome"},
	)

	actionExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_executions_total",
			Help:      "Executed actions by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	learningEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learning_events_total",
			Help:      "Learning events recorded, partitioned by type.",
		},
		[]string{"type"},
	)

	profileWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_writes_total",
			Help:      "Profile persistence attempts by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_seconds",
			Help:      "Pipeline evaluation latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)
)

// Register attaches mirador-intel collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		insightsTotal,
		suggestionsTotal,
		actionExecutionsTotal,
		learningEventsTotal,
		profileWritesTotal,
		evaluationDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveInsights counts the visible insights of one evaluation.
func ObserveInsights(insights []models.Insight) {
	for _, ins := range insights {
		insightsTotal.WithLabelValues(string(ins.Severity)).Inc()
	}
}

// ObserveSuggestion records the fate of one suggestion candidate.
func ObserveSuggestion(outcome string) {
	suggestionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveActionExecution records one executor dispatch.
func ObserveActionExecution(actionType models.ActionType, ok bool) {
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	actionExecutionsTotal.WithLabelValues(string(actionType), outcome).Inc()
}

// ObserveLearningEvent counts a recorded learning event.
func ObserveLearningEvent(eventType models.LearningEventType) {
	learningEventsTotal.WithLabelValues(string(eventType)).Inc()
}

// ObserveProfileWrite records a profile save attempt.
func ObserveProfileWrite(err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	profileWritesTotal.WithLabelValues(outcome).Inc()
}

// ObserveEvaluation records a pipeline evaluation duration.
func ObserveEvaluation(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.Observe(duration.Seconds())
}
