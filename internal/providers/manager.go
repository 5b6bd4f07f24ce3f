package providers

import (
	"fmt"
	"strings"

	"investorbase/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type Manager struct {
	llmProviders []NamedLLMProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		if !isMock(ref) {
			p = NewRateLimited(p, cfg.ProviderRPM, cfg.ProviderBurst)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: p})
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	return m, nil
}

// NewStaticManager wraps already built providers. Used by tests and tools
// that wire providers by hand.
func NewStaticManager(named ...NamedLLMProvider) *Manager {
	return &Manager{llmProviders: named}
}

func (m *Manager) LLMProviderByIndex(i int) (LLMProvider, ProviderRef) {
	if len(m.llmProviders) == 0 {
		return NewMockProvider(), ProviderRef{Raw: "mock", Name: "mock"}
	}
	if i < 0 || i >= len(m.llmProviders) {
		i = 0
	}
	return m.llmProviders[i].Provider, m.llmProviders[i].Ref
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func (m *Manager) Refs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.llmProviders))
	for i := range m.llmProviders {
		out = append(out, m.llmProviders[i].Ref)
	}
	return out
}

// PreferredLLMOrder lists configured real providers first, then mocks, then
// real providers that have no key.
func (m *Manager) PreferredLLMOrder() []int {
	n := len(m.llmProviders)
	if n == 0 {
		return nil
	}
	rank := func(i int) int {
		p := m.llmProviders[i]
		if isMock(p.Ref) {
			return 1
		}
		if c, ok := p.Provider.(configurable); ok && !c.Configured() {
			return 2
		}
		return 0
	}
	out := make([]int, 0, n)
	for r := 0; r <= 2; r++ {
		for i := 0; i < n; i++ {
			if rank(i) == r {
				out = append(out, i)
			}
		}
	}
	return out
}

// Preferred returns the provider a research request uses by default.
func (m *Manager) Preferred() (LLMProvider, ProviderRef) {
	order := m.PreferredLLMOrder()
	if len(order) == 0 {
		return m.LLMProviderByIndex(0)
	}
	return m.LLMProviderByIndex(order[0])
}

func (m *Manager) FindLLMProviderByName(name string) (LLMProvider, ProviderRef, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return nil, ProviderRef{}, false
	}
	for i := range m.llmProviders {
		ref := m.llmProviders[i].Ref
		if strings.ToLower(ref.Name) == target || strings.ToLower(ref.Raw) == target {
			return m.llmProviders[i].Provider, ref, true
		}
	}
	return nil, ProviderRef{}, false
}

func isMock(ref ProviderRef) bool {
	return strings.EqualFold(ref.Name, "mock")
}

func buildProvider(ref ProviderRef, cfg config.Config) (LLMProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "perplexity":
		return NewPerplexityProvider(ref.KeyAlias, cfg.ResearchModel, cfg.ProviderTimeout), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias, cfg.ProviderTimeout), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias, cfg.ProviderTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
