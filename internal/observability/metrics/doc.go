// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the content agent metrics including:
//   - Provider chain metrics (attempts, retries, failures, fallbacks)
//   - Rate limiter admission waits
//   - Recovery pipeline stages and degraded results
//   - End-to-end plan generation duration
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "content-agent/internal/observability/metrics"
//
//	func generate(ctx context.Context) {
//	    start := time.Now()
//	    result, err := service.GenerateContentPlan(ctx, "", niche)
//	    metrics.RecordPlanDuration(time.Since(start), err == nil)
//	}
package metrics
