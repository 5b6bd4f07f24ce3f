package extract

import (
	"regexp"
	"strings"
)

// Section names requested from the provider. Locate is not limited to these.
const (
	SectionSummary     = "Research Summary"
	SectionOpportunity = "Market Opportunity"
	SectionCompetition = "Competitive Landscape"
	SectionFinancials  = "Financial & Traction"
	SectionConcerns    = "Key Investor Concerns"
	SectionInsights    = "Market Insights"
	SectionNews        = "Latest News"
	SectionSources     = "Sources"
)

// KnownSections lists the sections in the order a memo presents them.
var KnownSections = []string{
	SectionSummary,
	SectionOpportunity,
	SectionCompetition,
	SectionFinancials,
	SectionConcerns,
	SectionInsights,
	SectionNews,
	SectionSources,
}

// looseSectionLevel is the deepest heading that still ends a section found by
// containment rather than by its own heading.
const looseSectionLevel = 2

type locator func(text, name string) string

// LocateSection returns the part of rawText that belongs to sectionName, or ""
// when the section cannot be found. An empty result means "no data".
func LocateSection(rawText, sectionName string) string {
	name := strings.ToLower(strings.TrimSpace(sectionName))
	text := Clean(rawText)
	if name == "" || strings.TrimSpace(text) == "" {
		return ""
	}
	for _, locate := range []locator{locateByHeading, locateByContainment} {
		if span := locate(text, name); span != "" {
			return span
		}
	}
	return ""
}

// locateByHeading finds the first heading whose title starts with name. The
// section runs until the next heading of the same or a shallower level.
func locateByHeading(text, name string) string {
	lines := splitLines(text)
	for i, line := range lines {
		level, title, ok := parseHeading(line)
		if !ok || !strings.HasPrefix(normalizeTitle(title), name) {
			continue
		}
		end := i + 1
		for end < len(lines) {
			if l, _, ok := parseHeading(lines[end]); ok && l <= level {
				break
			}
			end++
		}
		return strings.TrimSpace(strings.Join(lines[i:end], "\n"))
	}
	return ""
}

// locateByContainment finds name anywhere in the text and captures from the
// start of that line up to the next top-level heading.
func locateByContainment(text, name string) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(name))
	if err != nil {
		return ""
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	start := strings.LastIndex(text[:loc[0]], "\n") + 1
	lines := splitLines(text[start:])
	end := 1
	for end < len(lines) {
		if l, _, ok := parseHeading(lines[end]); ok && l <= looseSectionLevel {
			break
		}
		end++
	}
	return strings.TrimSpace(strings.Join(lines[:end], "\n"))
}
