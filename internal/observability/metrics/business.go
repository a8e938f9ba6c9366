package metrics

import (
	"time"
)

// RecordProviderAttempt records the outcome of one provider call.
func RecordProviderAttempt(provider string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ProviderAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordRetry records a retry scheduled for provider after a failure of errorKind.
func RecordRetry(provider, errorKind string) {
	RetriesTotal.WithLabelValues(provider, errorKind).Inc()
}

// RecordProviderFailure records that the chain gave up on provider.
func RecordProviderFailure(provider, errorKind string) {
	ProviderFailuresTotal.WithLabelValues(provider, errorKind).Inc()
}

// RecordFallback records a move from one provider to the next.
func RecordFallback(from, to string) {
	FallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordProvidersExhausted records an invocation that no provider could serve.
func RecordProvidersExhausted() {
	ProvidersExhaustedTotal.Inc()
}

// RecordAdmissionWait records the rate limiter wait for provider.
func RecordAdmissionWait(provider string, wait time.Duration) {
	AdmissionWaitDuration.WithLabelValues(provider).Observe(wait.Seconds())
}

// RecordRecovery records which stage produced a result and how many items it held.
//
// Example:
//
//	result := pipeline.Recover(ctx, raw, niche)
//	RecordRecovery(result.Stage.String(), result.Degraded, len(result.Items))
func RecordRecovery(stage string, degraded bool, items int) {
	RecoveryStageTotal.WithLabelValues(stage).Inc()
	ItemsRecovered.WithLabelValues(stage).Observe(float64(items))
	if degraded {
		DegradedResultsTotal.Inc()
	}
}

// RecordPlanDuration records the time taken by one GenerateContentPlan call.
func RecordPlanDuration(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	PlanDuration.WithLabelValues(status).Observe(duration.Seconds())
}
