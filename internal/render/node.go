package render

// Kind identifies a node in a rendered markup tree.
type Kind string

const (
	KindSection   Kind = "section"
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindListItem  Kind = "list_item"
	KindText      Kind = "text"
	KindStrong    Kind = "strong"
	KindEm        Kind = "em"
	KindLink      Kind = "link"
	KindNotice    Kind = "notice"
)

const (
	LinkTarget = "_blank"
	LinkRel    = "noopener noreferrer"

	NoDataNotice = "No data available"
)

// Node is one element of a rendered section. The tree only ever holds plain
// text in Text; markup is expressed by Kind, never by embedded HTML.
type Node struct {
	Kind     Kind    `json:"kind"`
	Level    int     `json:"level,omitempty"`
	Ordered  bool    `json:"ordered,omitempty"`
	Text     string  `json:"text,omitempty"`
	Href     string  `json:"href,omitempty"`
	Target   string  `json:"target,omitempty"`
	Rel      string  `json:"rel,omitempty"`
	Theme    string  `json:"theme,omitempty"`
	Tone     string  `json:"tone,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

func (n *Node) append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// PlainText concatenates the text of n and its descendants.
func (n *Node) PlainText() string {
	if n == nil {
		return ""
	}
	out := n.Text
	for _, c := range n.Children {
		out += c.PlainText()
	}
	return out
}

func textNode(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

func noticeNode(msg string) *Node {
	return &Node{Kind: KindNotice, Text: msg}
}
