package render

import (
	"fmt"
	"strings"

	"investorbase/internal/extract"
	"investorbase/internal/models"
)

// Memo renders a whole research record as one document: a title, every known
// section found in the raw text, and the harvested source list.
func (r *Renderer) Memo(rec models.ResearchRecord, companyName string) *Node {
	title := "Investment memo"
	if name := strings.TrimSpace(companyName); name != "" {
		title += ": " + name
	}
	doc := &Node{Kind: KindSection, Theme: r.palette.Theme(r.palette.Default).Name, Tone: "document"}
	doc.append(&Node{Kind: KindHeading, Level: 1, Children: []*Node{textNode(title)}})

	switch rec.Status {
	case models.StatusPending:
		doc.append(noticeNode("Research is still in progress"))
		return doc
	case models.StatusFailed:
		doc.append(noticeNode(fmt.Sprintf("Research failed: %s", rec.ErrorMessage)))
		return doc
	}

	if len(rec.AssessmentPoints) > 0 {
		points := &Node{Kind: KindList}
		for _, p := range rec.AssessmentPoints {
			points.append(&Node{Kind: KindListItem, Children: inline(p)})
		}
		doc.append(&Node{Kind: KindHeading, Level: 2, Children: []*Node{textNode("Assessment points")}}, points)
	}

	found := 0
	for _, name := range extract.KnownSections {
		if name == extract.SectionSources {
			continue
		}
		span := extract.LocateSection(rec.RawText, name)
		if span == "" {
			continue
		}
		found++
		theme := r.palette.ForSection(name)
		doc.append(&Node{Kind: KindHeading, Level: 2, Tone: theme.Accent, Children: []*Node{textNode(name)}})
		doc.append(r.RenderSection(name, span))
	}
	if found == 0 {
		doc.append(r.Render(extract.Clean(rec.RawText), r.palette.Default))
	}

	if len(rec.Sources) > 0 {
		list := &Node{Kind: KindList}
		for _, s := range rec.Sources {
			list.append(&Node{Kind: KindListItem, Children: []*Node{linkNode(s.Name, s.URL)}})
		}
		doc.append(&Node{Kind: KindHeading, Level: 2, Children: []*Node{textNode(extract.SectionSources)}}, list)
	}
	return doc
}
