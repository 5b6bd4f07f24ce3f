package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation     string   `json:"operation"`
	System        string   `json:"system,omitempty"`
	Prompt        string   `json:"prompt"`
	Context       []string `json:"context"`
	// Temperature is sent only when set; nil leaves the provider default.
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	SearchRecency string   `json:"search_recency,omitempty"`
}

type GenerateResponse struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations,omitempty"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

// configurable is implemented by providers that need credentials.
type configurable interface {
	Configured() bool
}
