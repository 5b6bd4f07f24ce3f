package extract

import (
	"net/url"
	"strings"

	"investorbase/internal/models"
)

var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"msclkid": true,
	"ref":     true,
	"source":  true,
}

// NormalizeURL returns the comparison key for a link: lowercase scheme and
// host, no "www.", no fragment, no tracking parameters, no trailing slash.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			lk := strings.ToLower(k)
			if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
				q.Del(k)
			}
		}
		u.RawQuery = q.Encode()
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	} else {
		u.Path = ""
	}
	return u.String(), nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// HarvestSources collects the distinct sources behind a research answer:
// item links first, then markdown links in the raw text, then provider
// citations, then any remaining bare URLs. Duplicates are merged on their
// normalized URL; the first spelling of the URL is kept.
func HarvestSources(rawText string, items []models.StructuredItem, citations []string) []models.Source {
	out := make([]models.Source, 0)
	index := make(map[string]int)
	fromHost := make(map[string]bool)

	add := func(name, link string) {
		link = trimURL(strings.TrimSpace(link))
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			return
		}
		key, err := NormalizeURL(link)
		if err != nil {
			return
		}
		name = stripInline(name)
		if i, ok := index[key]; ok {
			if fromHost[key] && name != "" {
				out[i].Name = name
				fromHost[key] = false
			}
			return
		}
		if name == "" {
			name = hostOf(link)
			fromHost[key] = true
		}
		index[key] = len(out)
		out = append(out, models.Source{Name: name, URL: link})
	}

	for _, it := range items {
		if it.URL != "" {
			add(it.Source, it.URL)
		}
	}
	text := Clean(rawText)
	for _, m := range markdownLinkRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	for _, c := range citations {
		add("", c)
	}
	for _, u := range urlRe.FindAllString(text, -1) {
		add("", u)
	}
	return out
}
