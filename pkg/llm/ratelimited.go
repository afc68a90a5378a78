package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to the wrapped provider with a token bucket so a wide
// generation fan-out does not trip backend quotas.
type RateLimitedProvider struct {
	next    LLMProvider
	limiter *rate.Limiter
}

var _ LLMProvider = &RateLimitedProvider{}

func NewRateLimitedProvider(next LLMProvider, requestsPerSecond float64, burst int) *RateLimitedProvider {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (p *RateLimitedProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}
	return p.next.Chat(ctx, history, options...)
}

func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return p.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options...)
}
