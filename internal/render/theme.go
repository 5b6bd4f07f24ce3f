package render

import "strings"

const DefaultTheme = "default"

// Theme is the visual treatment of a section: an accent tone for headings
// and a surface tone for the section body.
type Theme struct {
	Name    string `json:"name"`
	Accent  string `json:"accent"`
	Surface string `json:"surface"`
}

// Palette maps theme names to themes and section names to theme names. It is
// handed to a Renderer as configuration.
type Palette struct {
	Default  string
	Themes   map[string]Theme
	Sections map[string]string
}

func DefaultPalette() Palette {
	return Palette{
		Default: DefaultTheme,
		Themes: map[string]Theme{
			DefaultTheme:  {Name: DefaultTheme, Accent: "slate", Surface: "plain"},
			"summary":     {Name: "summary", Accent: "indigo", Surface: "tinted"},
			"market":      {Name: "market", Accent: "blue", Surface: "tinted"},
			"competition": {Name: "competition", Accent: "purple", Surface: "tinted"},
			"financial":   {Name: "financial", Accent: "green", Surface: "tinted"},
			"risk":        {Name: "risk", Accent: "red", Surface: "outlined"},
			"insight":     {Name: "insight", Accent: "teal", Surface: "tinted"},
			"news":        {Name: "news", Accent: "amber", Surface: "plain"},
		},
		Sections: map[string]string{
			"research summary":      "summary",
			"market opportunity":    "market",
			"competitive landscape": "competition",
			"financial & traction":  "financial",
			"key investor concerns": "risk",
			"market insights":       "insight",
			"latest news":           "news",
			"sources":               DefaultTheme,
		},
	}
}

// Theme returns the named theme, falling back to the default theme.
func (p Palette) Theme(name string) Theme {
	if t, ok := p.Themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	if t, ok := p.Themes[p.Default]; ok {
		return t
	}
	return Theme{Name: DefaultTheme, Accent: "slate", Surface: "plain"}
}

// ForSection picks the theme by section identity.
func (p Palette) ForSection(section string) Theme {
	name, ok := p.Sections[strings.ToLower(strings.TrimSpace(section))]
	if !ok {
		name = p.Default
	}
	return p.Theme(name)
}
