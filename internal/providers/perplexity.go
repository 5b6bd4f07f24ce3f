package providers

import (
	"context"
	"strings"
	"time"
)

const (
	PerplexityEndpoint     = "https://api.perplexity.ai/chat/completions"
	defaultPerplexityModel = "sonar"
)

// PerplexityProvider performs web-grounded research through Perplexity's
// chat completions API.
type PerplexityProvider struct {
	chatClient
}

func NewPerplexityProvider(keyName, model string, timeout time.Duration) *PerplexityProvider {
	if strings.TrimSpace(model) == "" {
		model = defaultPerplexityModel
	}
	return &PerplexityProvider{
		chatClient: newChatClient("perplexity", keyName, resolveKey("perplexity", keyName, "PERPLEXITY_API_KEY"), model, PerplexityEndpoint, timeout),
	}
}

// WithEndpoint points the provider at another base URL and key. Used for
// proxies and tests.
func (p *PerplexityProvider) WithEndpoint(endpoint, apiKey string) *PerplexityProvider {
	p.endpoint = endpoint
	p.apiKey = apiKey
	return p
}

func (p *PerplexityProvider) Configured() bool {
	return p.apiKey != ""
}

func (p *PerplexityProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	extra := map[string]any{}
	if req.SearchRecency != "" {
		extra["search_recency_filter"] = req.SearchRecency
	}
	return p.complete(ctx, req, extra)
}
