package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"investorbase/internal/config"
)

func TestManagerPrefersConfiguredRealProvider(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "")
	t.Setenv("INVESTORBASE_PERPLEXITY_KEY_TEAM", "")
	t.Setenv("GROQ_API_KEY", "gk")
	cfg := config.Config{LLMProviders: "perplexity:team|mock|groq", ProviderTimeout: time.Second, ProviderRPM: 60, ProviderBurst: 1}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.Equal(t, 3, m.LLMCount())
	require.Equal(t, []int{2, 1, 0}, m.PreferredLLMOrder())

	_, ref := m.Preferred()
	require.Equal(t, "groq", ref.Name)
}

func TestManagerFallsBackToMockWithoutKeys(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "")
	m, err := NewManager(config.Config{LLMProviders: "perplexity|mock"})
	require.NoError(t, err)
	p, ref := m.Preferred()
	require.Equal(t, "mock", ref.Name)
	_, ok := p.(*MockProvider)
	require.True(t, ok)
}

func TestManagerRejectsUnknownProvider(t *testing.T) {
	_, err := NewManager(config.Config{LLMProviders: "ollama"})
	require.Error(t, err)
}

func TestFindLLMProviderByName(t *testing.T) {
	m := NewStaticManager(
		NamedLLMProvider{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()},
		NamedLLMProvider{Ref: ProviderRef{Raw: "perplexity:team", Name: "perplexity", KeyAlias: "team"}, Provider: NewMockProvider()},
	)
	_, ref, ok := m.FindLLMProviderByName(" Perplexity:Team ")
	require.True(t, ok)
	require.Equal(t, "team", ref.KeyAlias)

	_, _, ok = m.FindLLMProviderByName("groq")
	require.False(t, ok)
	_, _, ok = m.FindLLMProviderByName("")
	require.False(t, ok)
}

func TestMockResearchOutputIsDeterministic(t *testing.T) {
	m := NewMockProvider()
	req := GenerateRequest{Operation: "research", Prompt: "Company: Acme Robotics\nAssessment points:\n- market"}
	a, info, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	b, _, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, "mock", info.Name)
	require.Contains(t, a.Text, "## Latest News")
	require.Contains(t, a.Text, "### Acme Robotics announces new partnership")
	require.NotEmpty(t, a.Citations)
}

func TestMockHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewMockProvider().Generate(ctx, GenerateRequest{Operation: "research"})
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitedWaitRespectsContext(t *testing.T) {
	p := NewRateLimited(NewMockProvider(), 1, 1)
	_, _, err := p.Generate(context.Background(), GenerateRequest{Operation: "research"})
	require.NoError(t, err)

	// The single token is spent; the next one is a minute away.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = p.Generate(ctx, GenerateRequest{Operation: "research"})
	require.ErrorIs(t, err, ErrTransport)
	require.Equal(t, ErrorRate, ClassifyError(err))
}

func TestRateLimitedDisabled(t *testing.T) {
	inner := NewMockProvider()
	require.Same(t, inner, NewRateLimited(inner, 0, 0))
}
