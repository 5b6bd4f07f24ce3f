package providers

import (
	"context"
	"os"
	"strings"
	"time"
)

const GroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	chatClient
}

func NewGroqProvider(keyName string, timeout time.Duration) *GroqProvider {
	model := os.Getenv("INVESTORBASE_GROQ_MODEL")
	if strings.TrimSpace(model) == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqProvider{
		chatClient: newChatClient("groq", keyName, resolveKey("groq", keyName, "GROQ_API_KEY"), model, GroqEndpoint, timeout),
	}
}

func (g *GroqProvider) Configured() bool {
	return g.apiKey != ""
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return g.complete(ctx, req, nil)
}
