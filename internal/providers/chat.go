package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const maxErrorBody = 512

// chatClient speaks the OpenAI-compatible chat completions protocol shared by
// Perplexity, OpenAI and Groq.
type chatClient struct {
	name     string
	keyName  string
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func newChatClient(name, keyName, apiKey, model, endpoint string, timeout time.Duration) chatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return chatClient{
		name:     name,
		keyName:  keyName,
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *chatClient) info() ProviderInfo {
	return ProviderInfo{Name: c.name, Model: c.model, Key: c.keyName}
}

func (c *chatClient) complete(ctx context.Context, req GenerateRequest, extra map[string]any) (GenerateResponse, ProviderInfo, error) {
	info := c.info()
	if c.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("%s key missing for alias %q: %w", c.name, c.keyName, ErrMissingKey)
	}
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	body := map[string]any{"model": c.model, "messages": messages}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("encode %s request: %w", c.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("build %s request: %w: %w", c.name, ErrTransport, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("%s generate request failed: %w: %w", c.name, ErrTransport, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("read %s response: %w: %w", c.name, ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return GenerateResponse{}, info, fmt.Errorf("%s generate error %d: %s: %w", c.name, resp.StatusCode, snippet(raw), ErrTransport)
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Citations     []string `json:"citations"`
		SearchResults []struct {
			URL string `json:"url"`
		} `json:"search_results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode %s response: %w: %w", c.name, ErrShape, err)
	}
	if parsed.Model != "" {
		info.Model = parsed.Model
	}
	if len(parsed.Choices) == 0 {
		return GenerateResponse{}, info, fmt.Errorf("%s returned empty choices: %w", c.name, ErrShape)
	}
	content := parsed.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return GenerateResponse{}, info, fmt.Errorf("%s returned empty content: %w", c.name, ErrShape)
	}

	citations := append([]string{}, parsed.Citations...)
	for _, r := range parsed.SearchResults {
		if r.URL != "" {
			citations = append(citations, r.URL)
		}
	}
	return GenerateResponse{Text: *content, Citations: citations}, info, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

// resolveKey looks up INVESTORBASE_<PROVIDER>_KEY_<ALIAS> first and falls back
// to the provider's conventional variable.
func resolveKey(provider, alias, fallbackEnv string) string {
	if alias != "" {
		k := os.Getenv("INVESTORBASE_" + strings.ToUpper(provider) + "_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv(fallbackEnv)
}
