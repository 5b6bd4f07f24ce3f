package render

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	headingRe     = regexp.MustCompile(`^[ \t]{0,3}(#{1,6})[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)
	bulletRe      = regexp.MustCompile(`^[ \t]*[-*+][ \t]+(.*)$`)
	orderedItemRe = regexp.MustCompile(`^[ \t]*\d+[.)][ \t]+(.*)$`)
	ruleRe        = regexp.MustCompile(`^[ \t]*([-*_])(?:[ \t]*([-*_])){2,}[ \t]*$`)
	inlineRe      = regexp.MustCompile(`\*\*(.+?)\*\*|\[([^\]\n]+)\]\(([^)\s]+)\)|\*([^*\s](?:[^*\n]*?[^*\s])?)\*`)
)

const maxHeadingLevel = 5

// Renderer turns markdown-ish provider text into a safe node tree.
type Renderer struct {
	palette Palette
}

func NewRenderer(p Palette) *Renderer {
	return &Renderer{palette: p}
}

func (r *Renderer) Palette() Palette {
	return r.palette
}

// Render converts text into a section node using the named theme. Unknown
// theme names use the palette default. Empty text yields the no-data notice.
func (r *Renderer) Render(text, theme string) *Node {
	return render(text, r.palette.Theme(theme))
}

// RenderSection renders a located section span. Its first line is the
// section's own heading and is dropped; the theme follows the section name.
func (r *Renderer) RenderSection(name, span string) *Node {
	return r.RenderSectionAs(name, span, "")
}

// RenderSectionAs is RenderSection with an explicit theme. An empty theme
// picks the section's own.
func (r *Renderer) RenderSectionAs(name, span, theme string) *Node {
	body := ""
	if i := strings.IndexByte(span, '\n'); i >= 0 {
		body = span[i+1:]
	}
	if strings.TrimSpace(theme) == "" {
		return render(body, r.palette.ForSection(name))
	}
	return render(body, r.palette.Theme(theme))
}

func render(text string, theme Theme) *Node {
	root := &Node{Kind: KindSection, Theme: theme.Name, Tone: theme.Surface}
	if strings.TrimSpace(text) == "" {
		root.append(noticeNode(NoDataNotice))
		return root
	}

	var para []string
	var list *Node
	flushPara := func() {
		if len(para) > 0 {
			root.append(&Node{Kind: KindParagraph, Children: inline(strings.Join(para, " "))})
			para = nil
		}
	}
	flushList := func() {
		if list != nil {
			root.append(list)
			list = nil
		}
	}
	addItem := func(ordered bool, content string) {
		flushPara()
		if list != nil && list.Ordered != ordered {
			flushList()
		}
		if list == nil {
			list = &Node{Kind: KindList, Ordered: ordered}
		}
		list.append(&Node{Kind: KindListItem, Children: inline(content)})
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			flushList()
		case headingRe.MatchString(line):
			flushPara()
			flushList()
			m := headingRe.FindStringSubmatch(line)
			level := len(m[1])
			if level > maxHeadingLevel {
				level = maxHeadingLevel
			}
			root.append(&Node{Kind: KindHeading, Level: level, Tone: theme.Accent, Children: inline(m[2])})
		case ruleRe.MatchString(line):
			flushPara()
			flushList()
		case bulletRe.MatchString(line):
			addItem(false, bulletRe.FindStringSubmatch(line)[1])
		case orderedItemRe.MatchString(line):
			addItem(true, orderedItemRe.FindStringSubmatch(line)[1])
		default:
			flushList()
			para = append(para, trimmed)
		}
	}
	flushPara()
	flushList()
	if len(root.Children) == 0 {
		root.append(noticeNode(NoDataNotice))
	}
	return root
}

// inline parses bold, italic and link spans.
func inline(s string) []*Node {
	var out []*Node
	pos := 0
	for _, m := range inlineRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > pos {
			out = append(out, textNode(s[pos:m[0]]))
		}
		switch {
		case m[2] >= 0:
			out = append(out, &Node{Kind: KindStrong, Children: inline(s[m[2]:m[3]])})
		case m[4] >= 0:
			out = append(out, linkNode(s[m[4]:m[5]], s[m[6]:m[7]]))
		default:
			out = append(out, &Node{Kind: KindEm, Children: inline(s[m[8]:m[9]])})
		}
		pos = m[1]
	}
	if pos < len(s) {
		out = append(out, textNode(s[pos:]))
	}
	return out
}

// linkNode keeps only absolute http(s) targets; anything else becomes text.
func linkNode(label, href string) *Node {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return textNode(label)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return textNode(label)
	}
	return &Node{
		Kind:     KindLink,
		Href:     u.String(),
		Target:   LinkTarget,
		Rel:      LinkRel,
		Children: []*Node{textNode(label)},
	}
}
