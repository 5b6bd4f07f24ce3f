package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited holds calls to the wrapped provider to a per-minute budget.
type RateLimited struct {
	inner   LLMProvider
	limiter *rate.Limiter
}

// NewRateLimited wraps p. A non-positive rpm disables limiting.
func NewRateLimited(p LLMProvider, rpm, burst int) LLMProvider {
	if rpm <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

func (r *RateLimited) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return GenerateResponse{}, ProviderInfo{}, fmt.Errorf("provider rate limit wait: %w: %w", ErrTransport, err)
	}
	return r.inner.Generate(ctx, req)
}

func (r *RateLimited) Configured() bool {
	if c, ok := r.inner.(configurable); ok {
		return c.Configured()
	}
	return true
}
