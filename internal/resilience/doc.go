// Package resilience provides reliability and fault tolerance patterns for provider calls.
//
// The package supports:
//   - Circuit breakers for LLM provider APIs (Claude, OpenAI compatible backends)
//   - A retry executor with exponential backoff, jitter and error kind classification
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ProviderConfig("claude"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callProvider()
//	})
//
//	exec := retry.NewExecutor()
//	err := exec.Execute(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
//	    return performOperation(ctx)
//	})
package resilience
