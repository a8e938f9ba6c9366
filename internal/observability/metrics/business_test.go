package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProviderAttempt(t *testing.T) {
	before := testutil.ToFloat64(ProviderAttemptsTotal.WithLabelValues("metrics-test", "failure"))

	RecordProviderAttempt("metrics-test", false)
	RecordProviderAttempt("metrics-test", true)

	assert.Equal(t, before+1, testutil.ToFloat64(ProviderAttemptsTotal.WithLabelValues("metrics-test", "failure")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(ProviderAttemptsTotal.WithLabelValues("metrics-test", "success")), float64(1))
}

func TestRecordRecovery(t *testing.T) {
	tests := []struct {
		name     string
		stage    string
		degraded bool
		items    int
	}{
		{name: "strict parse", stage: "strict_parse", degraded: false, items: 5},
		{name: "partial extraction", stage: "partial_extraction", degraded: true, items: 1},
		{name: "synthesized", stage: "synthesized", degraded: true, items: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stageBefore := testutil.ToFloat64(RecoveryStageTotal.WithLabelValues(tt.stage))
			degradedBefore := testutil.ToFloat64(DegradedResultsTotal)

			RecordRecovery(tt.stage, tt.degraded, tt.items)

			assert.Equal(t, stageBefore+1, testutil.ToFloat64(RecoveryStageTotal.WithLabelValues(tt.stage)))
			wantDegraded := degradedBefore
			if tt.degraded {
				wantDegraded++
			}
			assert.Equal(t, wantDegraded, testutil.ToFloat64(DegradedResultsTotal))
		})
	}
}

func TestRecordFallbackAndExhaustion(t *testing.T) {
	fallbackBefore := testutil.ToFloat64(FallbacksTotal.WithLabelValues("claude", "openai"))
	exhaustedBefore := testutil.ToFloat64(ProvidersExhaustedTotal)

	RecordFallback("claude", "openai")
	RecordProvidersExhausted()

	assert.Equal(t, fallbackBefore+1, testutil.ToFloat64(FallbacksTotal.WithLabelValues("claude", "openai")))
	assert.Equal(t, exhaustedBefore+1, testutil.ToFloat64(ProvidersExhaustedTotal))
}

func TestRecordDurations(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAdmissionWait("claude", 1500*time.Millisecond)
		RecordPlanDuration(3*time.Second, true)
		RecordPlanDuration(time.Second, false)
		RecordRetry("claude", "rate_limit")
		RecordProviderFailure("claude", "quota")
	})
}
