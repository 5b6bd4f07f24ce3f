package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPerplexity(t *testing.T, h http.HandlerFunc) *PerplexityProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPerplexityProvider("test", "sonar", 5*time.Second).WithEndpoint(srv.URL, "secret")
}

func researchRequest() GenerateRequest {
	temperature := 0.2
	return GenerateRequest{
		Operation:     "research",
		System:        "You are an analyst.",
		Prompt:        "Company: Acme",
		Temperature:   &temperature,
		MaxTokens:     2000,
		SearchRecency: "month",
	}
}

func TestPerplexityGenerateSuccess(t *testing.T) {
	p := newTestPerplexity(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "sonar", body["model"])
		require.Equal(t, "month", body["search_recency_filter"])
		require.Equal(t, 0.2, body["temperature"])
		require.Equal(t, float64(2000), body["max_tokens"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		require.Equal(t, "system", msgs[0].(map[string]any)["role"])

		_, _ = w.Write([]byte(`{
			"model": "sonar-pro",
			"choices": [{"message": {"content": "## Latest News\n- item"}}],
			"citations": ["https://a.com/x"],
			"search_results": [{"url": "https://b.com/y"}]
		}`))
	})

	resp, info, err := p.Generate(context.Background(), researchRequest())
	require.NoError(t, err)
	require.Equal(t, "## Latest News\n- item", resp.Text)
	require.Equal(t, []string{"https://a.com/x", "https://b.com/y"}, resp.Citations)
	require.Equal(t, "perplexity", info.Name)
	require.Equal(t, "sonar-pro", info.Model)
}

func TestPerplexityNon2xxIsTransport(t *testing.T) {
	p := newTestPerplexity(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	})
	_, _, err := p.Generate(context.Background(), researchRequest())
	require.ErrorIs(t, err, ErrTransport)
	require.Equal(t, ErrorTransient, ClassifyError(err))
}

func TestPerplexityShapeErrors(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"choices": []}`,
		`{"choices": [{"message": {}}]}`,
		`{"choices": [{"message": {"content": "   "}}]}`,
	}
	for _, b := range bodies {
		body := b
		p := newTestPerplexity(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, _, err := p.Generate(context.Background(), researchRequest())
		require.ErrorIs(t, err, ErrShape, "body %q", body)
	}
}

func TestPerplexityTimeout(t *testing.T) {
	p := newTestPerplexity(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := p.Generate(ctx, researchRequest())
	require.ErrorIs(t, err, ErrTransport)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMissingKeySendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := NewPerplexityProvider("nokey", "", time.Second).WithEndpoint(srv.URL, "")
	require.False(t, p.Configured())
	_, _, err := p.Generate(context.Background(), researchRequest())
	require.ErrorIs(t, err, ErrMissingKey)
	require.Zero(t, calls.Load())
}

func TestZeroTemperatureIsSent(t *testing.T) {
	bodies := make(chan map[string]any, 2)
	p := newTestPerplexity(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	req := researchRequest()
	zero := 0.0
	req.Temperature = &zero
	_, _, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	temperature, ok := (<-bodies)["temperature"]
	require.True(t, ok)
	require.Equal(t, 0.0, temperature)

	req.Temperature = nil
	_, _, err = p.Generate(context.Background(), req)
	require.NoError(t, err)
	_, ok = (<-bodies)["temperature"]
	require.False(t, ok)
}

func TestOpenAICompatibleOmitsRecency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, ok := body["search_recency_filter"]
		require.False(t, ok)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	g := NewGroqProvider("", time.Second)
	g.endpoint = srv.URL
	g.apiKey = "k"
	resp, info, err := g.Generate(context.Background(), researchRequest())
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
	require.Equal(t, "groq", info.Name)
}
