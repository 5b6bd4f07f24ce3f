package extract

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
	referenceRe  = regexp.MustCompile(`\[\d+\]`)
	headingRe    = regexp.MustCompile(`^[ \t]{0,3}(#{1,6})[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)
	enumeratorRe = regexp.MustCompile(`^\(?\d+[.)]\s*`)
)

// Clean removes <think>...</think> blocks and [n] citation markers. It runs to
// a fixed point, so Clean(Clean(s)) == Clean(s) even for nested or
// interleaved markers.
func Clean(s string) string {
	for {
		next := thinkBlockRe.ReplaceAllString(s, "")
		next = referenceRe.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}

// parseHeading reports the level and title of a markdown heading line.
func parseHeading(line string) (int, string, bool) {
	m := headingRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

// normalizeTitle lowercases a heading title and drops emphasis markers,
// a leading enumerator and a trailing colon.
func normalizeTitle(title string) string {
	t := strings.NewReplacer("**", "", "__", "", "*", "", "`", "").Replace(title)
	t = strings.TrimSpace(t)
	t = enumeratorRe.ReplaceAllString(t, "")
	t = strings.TrimSuffix(strings.TrimSpace(t), ":")
	return strings.ToLower(strings.TrimSpace(t))
}

// stripInline removes markdown emphasis and heading markers from a short
// single-line value such as a headline.
func stripInline(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "# ")
	s = strings.NewReplacer("**", "", "__", "").Replace(s)
	s = strings.Trim(s, "*_ \t")
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
