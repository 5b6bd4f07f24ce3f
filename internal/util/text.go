package util

import (
	"strings"
	"unicode"
)

// StripNUL drops NUL bytes, the only byte a Postgres text column rejects.
// Everything else, whitespace included, is kept as is.
func StripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// SanitizeText removes bytes and control characters that Postgres text columns
// reject. Provider output occasionally carries NUL bytes from scraped pages.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}

func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes cuts s to at most maxRunes runes and appends "..." when it had
// to cut anything.
func TruncateRunes(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace) + "..."
}

// LeadingSentence returns the first sentence of s with whitespace collapsed.
// A sentence ends at '.', '!' or '?' followed by whitespace or end of input.
func LeadingSentence(s string) string {
	s = NormalizeWhitespace(s)
	runes := []rune(s)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return s
}

// DisplaySnippet is the short single-line form used in list views.
func DisplaySnippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 240
	}
	return TruncateRunes(NormalizeWhitespace(SanitizeText(s)), maxRunes)
}
