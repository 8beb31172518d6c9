// File: internal/llmclient/ratelimit.go
package llmclient

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sightline-ai/sightline/api/schemas"
)

// rateLimitedClient caps the call rate of an inner client. Planner calls are
// the only LLM traffic, so a single limiter per process is enough.
type rateLimitedClient struct {
	inner   schemas.LLMClient
	limiter *rate.Limiter
}

var _ schemas.LLMClient = (*rateLimitedClient)(nil)

// withRateLimit wraps the client with a requests-per-minute cap. A cap of
// zero or less returns the client unchanged.
func withRateLimit(inner schemas.LLMClient, requestsPerMinute int) schemas.LLMClient {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &rateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait aborted: %w", err)
	}
	return c.inner.Complete(ctx, systemPrompt, userPrompt)
}
