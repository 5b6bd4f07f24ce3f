package providers

import (
	"context"
	"time"
)

const OpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider uses standard OpenAI REST APIs when keys are configured. It
// has no live search, so answers rely on the model's own knowledge.
type OpenAIProvider struct {
	chatClient
}

func NewOpenAIProvider(keyName string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		chatClient: newChatClient("openai", keyName, resolveKey("openai", keyName, "OPENAI_API_KEY"), "gpt-4o-mini", OpenAIEndpoint, timeout),
	}
}

func (o *OpenAIProvider) Configured() bool {
	return o.apiKey != ""
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return o.complete(ctx, req, nil)
}
