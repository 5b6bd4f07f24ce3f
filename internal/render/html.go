package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("section", "article")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-z0-9 _-]+$`)).Globally()
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// HTML serializes a node tree. Text is escaped while writing and the result
// is passed through a UGC sanitizing policy before it leaves the package.
func HTML(n *Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return policy.Sanitize(b.String())
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
	case KindNotice:
		fmt.Fprintf(b, `<p class="ib-notice">%s</p>`, html.EscapeString(n.Text))
	case KindSection:
		fmt.Fprintf(b, `<section class="%s">`, classes("ib-section", "theme-"+n.Theme, "surface-"+n.Tone))
		writeChildren(b, n)
		b.WriteString("</section>")
	case KindHeading:
		level := n.Level
		if level < 1 || level > maxHeadingLevel {
			level = maxHeadingLevel
		}
		fmt.Fprintf(b, `<h%d class="%s">`, level, classes("tone-"+n.Tone))
		writeChildren(b, n)
		fmt.Fprintf(b, "</h%d>", level)
	case KindParagraph:
		wrap(b, "p", n)
	case KindList:
		if n.Ordered {
			wrap(b, "ol", n)
		} else {
			wrap(b, "ul", n)
		}
	case KindListItem:
		wrap(b, "li", n)
	case KindStrong:
		wrap(b, "strong", n)
	case KindEm:
		wrap(b, "em", n)
	case KindLink:
		fmt.Fprintf(b, `<a href="%s" target="%s" rel="%s">`,
			html.EscapeString(n.Href), LinkTarget, LinkRel)
		writeChildren(b, n)
		b.WriteString("</a>")
	default:
		writeChildren(b, n)
	}
}

func wrap(b *strings.Builder, tag string, n *Node) {
	fmt.Fprintf(b, "<%s>", tag)
	writeChildren(b, n)
	fmt.Fprintf(b, "</%s>", tag)
}

func writeChildren(b *strings.Builder, n *Node) {
	for _, c := range n.Children {
		writeNode(b, c)
	}
}

func classes(names ...string) string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, "-") {
			continue
		}
		kept = append(kept, strings.ToLower(name))
	}
	return strings.Join(kept, " ")
}
