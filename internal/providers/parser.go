package providers

import "strings"

// ProviderRef names one configured provider. "perplexity:team" is the
// perplexity provider using the key stored under the "team" alias.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

func (r ProviderRef) String() string {
	if r.KeyAlias == "" {
		return r.Name
	}
	return r.Name + ":" + r.KeyAlias
}

// ParseProviderList parses "name[:alias]" entries separated by '|' or ','.
// Names are lowercased; an empty list means the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p}
		if name, alias, ok := strings.Cut(p, ":"); ok {
			ref.Name = strings.ToLower(strings.TrimSpace(name))
			ref.KeyAlias = strings.TrimSpace(alias)
		} else {
			ref.Name = strings.ToLower(p)
		}
		if ref.Name == "" {
			continue
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
