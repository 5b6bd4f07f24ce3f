package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"investorbase/internal/models"
	"investorbase/internal/util"
)

const (
	minParagraphRunes = 20
	maxHeadlineRunes  = 60
)

var (
	numberedBoldRe     = regexp.MustCompile(`^[ \t]*\d+[.)][ \t]+\*\*(.+?)\*\*[ \t]*:?[ \t]*(.*)$`)
	numberedBoldLineRe = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+\*\*`)
	inlineSourceRe     = regexp.MustCompile(`(?i)\*{0,2}\bsources?\*{0,2}[ \t]*:[ \t]*\*{0,2}[ \t]*([^\n]*)`)
	inlineURLLabel     = regexp.MustCompile(`(?i)\*{0,2}\b(?:url|link)\*{0,2}[ \t]*:[ \t]*\*{0,2}[ \t]*(\S+)`)
	markupCharsRepl    = strings.NewReplacer("**", "", "__", "", "`", "")
)

// Strategy is one way of reading structured items out of a section. It
// returns no items when the text is not in its format.
type Strategy struct {
	Name    string
	Extract func(text string) []models.StructuredItem
}

// Strategies are tried strict to loose; the first that yields an item wins.
var Strategies = []Strategy{
	{Name: "labeled-heading", Extract: extractLabeledHeadings},
	{Name: "numbered-bold", Extract: extractNumberedBold},
	{Name: "paragraph", Extract: extractParagraphs},
}

// ExtractFields reads structured items out of a located section. It never
// fails; unparseable input yields an empty slice.
func ExtractFields(sectionText string) []models.StructuredItem {
	items, _ := ExtractFieldsWithStrategy(sectionText)
	return items
}

// ExtractFieldsWithStrategy is ExtractFields that also reports which strategy
// produced the items ("" when none did).
func ExtractFieldsWithStrategy(sectionText string) ([]models.StructuredItem, string) {
	text := strings.TrimSpace(Clean(sectionText))
	if text == "" {
		return []models.StructuredItem{}, ""
	}
	for _, s := range Strategies {
		if items := s.Extract(text); len(items) > 0 {
			return items, s.Name
		}
	}
	return []models.StructuredItem{}, ""
}

// extractLabeledHeadings treats every sub-heading as an item. Sub-headings are
// deeper than the section's own heading and never shallower than ###.
func extractLabeledHeadings(text string) []models.StructuredItem {
	lines := splitLines(text)
	threshold := itemThreshold(lines)

	var items []models.StructuredItem
	headline := ""
	var body []string
	inItem := false
	flush := func() {
		if !inItem {
			return
		}
		if it, ok := buildItem(headline, strings.Join(body, "\n")); ok {
			items = append(items, it)
		}
	}
	for _, line := range lines {
		level, title, ok := parseHeading(line)
		if ok && level > threshold {
			flush()
			headline, body, inItem = title, nil, true
			continue
		}
		if ok && inItem {
			// A heading at or above the section level ends the last item.
			flush()
			inItem = false
			continue
		}
		if inItem {
			body = append(body, line)
		}
	}
	flush()
	return items
}

// itemThreshold returns the heading level items must be deeper than. A
// leading ### (or deeper) heading is the section's own heading when deeper
// headings follow it; it is the first item when a sibling at its level
// follows, or when its body is labeled and not a numbered list.
func itemThreshold(lines []string) int {
	level, _, ok := parseHeading(lines[0])
	if !ok || level <= 2 {
		return 2
	}
	sibling := false
	for _, line := range lines[1:] {
		l, _, isHeading := parseHeading(line)
		switch {
		case !isHeading:
		case l > level:
			return level
		case l == level:
			sibling = true
		}
	}
	if sibling {
		return level - 1
	}
	body := strings.Join(lines[1:], "\n")
	if labelRe.MatchString(body) && !numberedBoldLineRe.MatchString(body) {
		return level - 1
	}
	return level
}

// extractNumberedBold reads "1. **Title** rest" blocks. The rest of the marker
// line and the lines below it form the item body.
func extractNumberedBold(text string) []models.StructuredItem {
	var items []models.StructuredItem
	headline := ""
	var body []string
	inItem := false
	flush := func() {
		if !inItem {
			return
		}
		if it, ok := buildItem(headline, strings.Join(body, "\n")); ok {
			items = append(items, it)
		}
	}
	for _, line := range splitLines(text) {
		if m := numberedBoldRe.FindStringSubmatch(line); m != nil {
			flush()
			headline, body, inItem = m[1], nil, true
			if rest := strings.TrimSpace(m[2]); rest != "" {
				body = append(body, strings.TrimLeft(rest, "-–— \t"))
			}
			continue
		}
		if _, _, ok := parseHeading(line); ok {
			flush()
			inItem = false
			continue
		}
		if inItem {
			body = append(body, line)
		}
	}
	flush()
	return items
}

// extractParagraphs is the last resort: every non-trivial paragraph becomes an
// item whose headline is its leading sentence.
func extractParagraphs(text string) []models.StructuredItem {
	kept := make([]string, 0)
	for _, line := range splitLines(text) {
		if _, _, ok := parseHeading(line); ok {
			continue
		}
		kept = append(kept, line)
	}

	var items []models.StructuredItem
	for _, para := range blankLineRe.Split(strings.Join(kept, "\n"), -1) {
		para = strings.TrimSpace(para)
		if utf8.RuneCountInString(para) < minParagraphRunes {
			continue
		}
		if it, ok := paragraphItem(para); ok {
			items = append(items, it)
		}
	}
	return items
}

func paragraphItem(para string) (models.StructuredItem, bool) {
	var item models.StructuredItem
	rest := para
	sourceURL := ""
	if m := inlineSourceRe.FindStringSubmatchIndex(rest); m != nil {
		item.Source, sourceURL = sourceValue(rest[m[2]:m[3]])
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := inlineURLLabel.FindStringSubmatchIndex(rest); m != nil {
		item.URL = firstURL(rest[m[2]:m[3]])
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if item.URL == "" && sourceURL != "" {
		item.URL = sourceURL
	}
	if item.URL == "" {
		item.URL, rest = takeURL(rest)
	}

	// Leftover labels (Summary:, Content:) are not part of the prose.
	rest = labelRe.ReplaceAllString(rest, "")
	body := tidy(markupCharsRepl.Replace(rest))
	lead := strings.TrimLeft(util.LeadingSentence(body), "-*+> \t")
	item.Headline = util.TruncateRunes(stripInline(lead), maxHeadlineRunes)
	item.Content = body
	return item, item.Headline != ""
}
