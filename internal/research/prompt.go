package research

import (
	"fmt"
	"strings"

	"investorbase/internal/extract"
	"investorbase/internal/util"
)

const systemPrompt = `You are a financial and market research analyst supporting venture investors.
Use recent, verifiable sources and cite them. Be specific with numbers and dates.
Answer in markdown using exactly the section headings you are given, in order.`

const promptTemplate = `Company: %s

Research this company for an investment assessment. Focus on these assessment points:
%s
%s
Structure the answer with these level-2 headings:
## %s
## %s
## %s
## %s
## %s
## %s
Write each insight as a numbered item: 1. **Insight title** followed by the explanation and a source URL.
## %s
Write each news item as:
### Headline
**Source:** publication, date
**Summary:** two or three sentences
**URL:** link to the article
## %s
List every source as a markdown link.
`

// BuildPrompt renders the user prompt for a research request. The pitch deck
// excerpt is included when the company has one.
func BuildPrompt(companyName string, points []string, deckExcerpt string) string {
	var pts strings.Builder
	for _, p := range points {
		fmt.Fprintf(&pts, "- %s\n", strings.TrimSpace(p))
	}
	deck := ""
	if ex := strings.TrimSpace(deckExcerpt); ex != "" {
		deck = "\nPitch deck excerpt (company provided, verify independently):\n\"\"\"\n" + ex + "\n\"\"\"\n"
	}
	return fmt.Sprintf(promptTemplate,
		util.NormalizeWhitespace(companyName),
		pts.String(),
		deck,
		extract.SectionSummary,
		extract.SectionOpportunity,
		extract.SectionCompetition,
		extract.SectionFinancials,
		extract.SectionConcerns,
		extract.SectionInsights,
		extract.SectionNews,
		extract.SectionSources,
	)
}
