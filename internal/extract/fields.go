package extract

import (
	"regexp"
	"strings"

	"investorbase/internal/models"
)

var (
	labelRe        = regexp.MustCompile(`(?im)^[ \t]*(?:[-*+][ \t]+)?\*{0,2}[ \t]*(source|summary|content|description|details|url|link|headline|title)[ \t]*\*{0,2}[ \t]*:[ \t]*\*{0,2}[ \t]*`)
	urlRe          = regexp.MustCompile(`https?://[^\s<>"'\[\]()]+`)
	markdownLinkRe = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)
	blankLineRe    = regexp.MustCompile(`\n[ \t]*\n`)
	extraBlankRe   = regexp.MustCompile(`\n{3,}`)
)

type labeledField struct {
	name  string
	value string
}

// splitLabels separates body into the text before the first label and the
// labeled fields. A label's value runs until the next label.
func splitLabels(body string) (string, []labeledField) {
	locs := labelRe.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return body, nil
	}
	prefix := body[:locs[0][0]]
	fields := make([]labeledField, 0, len(locs))
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		fields = append(fields, labeledField{
			name:  strings.ToLower(body[loc[2]:loc[3]]),
			value: strings.TrimSpace(body[loc[1]:end]),
		})
	}
	return prefix, fields
}

// buildItem assembles an item from a headline and the block text that follows
// it. Source, URL and headline text are excised; what remains is content.
func buildItem(headline, body string) (models.StructuredItem, bool) {
	item := models.StructuredItem{Headline: stripInline(headline)}
	prefix, fields := splitLabels(body)

	content := make([]string, 0, len(fields)+1)
	if p := strings.TrimSpace(prefix); p != "" {
		content = append(content, p)
	}
	labeledURL, sourceURL := "", ""
	for _, f := range fields {
		switch f.name {
		case "source":
			if item.Source != "" {
				continue
			}
			first, rest := firstLine(f.value)
			item.Source, sourceURL = sourceValue(first)
			if rest != "" {
				content = append(content, rest)
			}
		case "url", "link":
			if labeledURL == "" {
				labeledURL = firstURL(f.value)
			}
		case "headline", "title":
			if item.Headline == "" {
				first, rest := firstLine(f.value)
				item.Headline = stripInline(first)
				if rest != "" {
					content = append(content, rest)
				}
			}
		default:
			if f.value != "" {
				content = append(content, f.value)
			}
		}
	}

	text := strings.Join(content, "\n")
	switch {
	case labeledURL != "":
		item.URL = labeledURL
	case sourceURL != "":
		item.URL = sourceURL
	default:
		item.URL, text = takeURL(text)
	}
	item.Content = tidy(text)
	return item, item.Headline != ""
}

// sourceValue interprets a Source: label value. A markdown link yields its
// label as the source name and its target as a URL candidate.
func sourceValue(v string) (string, string) {
	v = strings.TrimSpace(v)
	if m := markdownLinkRe.FindStringSubmatchIndex(v); m != nil {
		label := v[m[2]:m[3]]
		link := v[m[4]:m[5]]
		rest := strings.TrimSpace(v[:m[0]] + label + v[m[1]:])
		return stripInline(rest), trimURL(link)
	}
	if loc := urlRe.FindStringIndex(v); loc != nil {
		link := trimURL(v[loc[0]:loc[1]])
		rest := strings.TrimSpace(v[:loc[0]] + v[loc[1]:])
		rest = strings.Trim(rest, "-–—,;:() \t")
		if rest == "" {
			rest = hostOf(link)
		}
		return stripInline(rest), link
	}
	return stripInline(v), ""
}

// takeURL pulls the first URL out of text. A URL inside a markdown link is
// replaced by the link label so the prose stays readable.
func takeURL(text string) (string, string) {
	link := markdownLinkRe.FindStringSubmatchIndex(text)
	bare := urlRe.FindStringIndex(text)
	if link != nil && (bare == nil || link[0] <= bare[0]) {
		return trimURL(text[link[4]:link[5]]), text[:link[0]] + text[link[2]:link[3]] + text[link[1]:]
	}
	if bare != nil {
		u := trimURL(text[bare[0]:bare[1]])
		return u, text[:bare[0]] + text[bare[0]+len(u):]
	}
	return "", text
}

func firstURL(s string) string {
	if m := markdownLinkRe.FindStringSubmatch(s); m != nil {
		return trimURL(m[2])
	}
	if loc := urlRe.FindStringIndex(s); loc != nil {
		return trimURL(s[loc[0]:loc[1]])
	}
	return ""
}

// trimURL drops sentence punctuation that the URL pattern swallowed.
func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?*_'\"")
}

func firstLine(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// tidy trims every line and collapses runs of blank lines.
func tidy(s string) string {
	lines := splitLines(s)
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = extraBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
