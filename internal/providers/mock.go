package providers

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider returns deterministic research markdown in the same layout a
// live provider is asked for. Used for local runs and tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: "mock-research-v1", Key: "mock"}
	if err := ctx.Err(); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("mock generate: %w: %w", ErrTransport, err)
	}
	if !strings.Contains(strings.ToLower(req.Operation), "research") {
		return GenerateResponse{Text: "Mock response."}, info, nil
	}

	company := promptSubject(req.Prompt)
	var b strings.Builder
	fmt.Fprintf(&b, "## Research Summary\n%s shows steady early traction in a growing market. Deterministic mock output.\n\n", company)
	b.WriteString("## Market Opportunity\n- Addressable market estimated at $4B, growing 12% a year.\n- Adjacent segments open after year two.\n\n")
	b.WriteString("## Competitive Landscape\n- Two funded incumbents compete on price.\n- No competitor offers the same integration depth.\n\n")
	b.WriteString("## Financial & Traction\n- ARR of $1.2M with 8% monthly growth.\n- Gross margin near 70%.\n\n")
	b.WriteString("## Key Investor Concerns\n- Customer concentration in the top three accounts.\n- Sales cycle length in enterprise deals.\n\n")
	b.WriteString("## Market Insights\n")
	b.WriteString("1. **Buyers consolidate vendors** - Source: Mock Research Weekly\nProcurement teams prefer platforms over point tools. https://example.com/insights/consolidation\n")
	b.WriteString("2. **Budgets shift to automation**\nSurveyed operators plan higher automation spend next year.\n\n")
	b.WriteString("## Latest News\n")
	fmt.Fprintf(&b, "### %s announces new partnership\n**Source:** Mock Wire\n**Summary:** %s signed a distribution agreement covering two regions.\n**URL:** https://example.com/news/partnership\n\n", company, company)
	fmt.Fprintf(&b, "### %s expands team\n**Source:** Mock Daily\n**Summary:** Hiring focused on sales and customer success.\n**URL:** https://example.com/news/team\n\n", company)
	b.WriteString("## Sources\n- [Mock Wire](https://example.com/news/partnership)\n- [Mock Daily](https://example.com/news/team)\n")

	return GenerateResponse{
		Text:      b.String(),
		Citations: []string{"https://example.com/news/partnership", "https://example.com/insights/consolidation"},
	}, info, nil
}

// promptSubject pulls the company name from a "Company: <name>" prompt line.
func promptSubject(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Company:"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return "The company"
}
