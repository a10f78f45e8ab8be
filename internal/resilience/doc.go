// Package resilience groups the fault tolerance helpers used around calls to
// language-model providers.
//
//   - circuitbreaker wraps github.com/sony/gobreaker so a failing provider is
//     short-circuited instead of holding request goroutines.
//   - retry retries transient failures (timeouts, 429, 5xx) with exponential
//     backoff and jitter, honoring a provider's Retry-After hint.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.GeneratorConfig("claude"))
//	text, err := retry.Do(ctx, retry.GeneratorConfig(), func() (string, error) {
//	    v, err := cb.Execute(func() (interface{}, error) { return call(ctx) })
//	    if err != nil {
//	        return "", err
//	    }
//	    return v.(string), nil
//	})
package resilience
