// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Invocation metrics track the resilient provider chain.
var (
	// ProviderAttemptsTotal counts completed provider calls by outcome
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_agent_provider_attempts_total",
			Help: "Total number of provider calls by outcome",
		},
		[]string{"provider", "outcome"}, // outcome: success, failure
	)

	// RetriesTotal counts retry attempts scheduled by the executor
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_agent_retries_total",
			Help: "Total number of retries by provider and error kind",
		},
		[]string{"provider", "error_kind"},
	)

	// ProviderFailuresTotal counts providers given up on within an invocation
	ProviderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_agent_provider_failures_total",
			Help: "Total number of terminal provider failures by error kind",
		},
		[]string{"provider", "error_kind"},
	)

	// FallbacksTotal counts transitions from one provider to the next
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_agent_fallbacks_total",
			Help: "Total number of fallbacks between providers",
		},
		[]string{"from", "to"},
	)

	// ProvidersExhaustedTotal counts invocations where no provider answered
	ProvidersExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_agent_providers_exhausted_total",
			Help: "Total number of invocations where every provider failed",
		},
	)

	// AdmissionWaitDuration measures time spent waiting on the rate limiter
	AdmissionWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_agent_admission_wait_seconds",
			Help:    "Time spent waiting for rate limiter admission",
			Buckets: []float64{0, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
)

// Recovery metrics track how provider output was turned into content items.
var (
	// RecoveryStageTotal counts results by the stage that produced them
	RecoveryStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_agent_recovery_stage_total",
			Help: "Total number of recovery results by source stage",
		},
		[]string{"stage"}, // stage: strict_parse, partial_extraction, synthesized
	)

	// DegradedResultsTotal counts results not produced by a strict parse
	DegradedResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_agent_degraded_results_total",
			Help: "Total number of degraded recovery results",
		},
	)

	// ItemsRecovered measures how many content items a result carried
	ItemsRecovered = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_agent_items_recovered",
			Help:    "Number of content items per recovery result",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"stage"},
	)
)

// Plan metrics track the top level GenerateContentPlan entry point.
var (
	// PlanDuration measures end-to-end plan generation time
	PlanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_agent_plan_duration_seconds",
			Help:    "Time taken to generate a content plan",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"status"}, // status: success, failure
	)
)
