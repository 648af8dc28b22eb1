// Package markup reduces listing-page HTML to a small structured document.
// Only an allow-listed set of tags and attributes survives cleaning, which
// keeps the downstream parser away from the noise of a full storefront page.
package markup

import (
	"strconv"
	"strings"
)

// NodeKind discriminates the two node variants of a parsed document.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
)

// Node is one node of the structured document: either an element with a tag,
// attributes and children, or a plain text node.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attr     map[string]string
	Children []*Node
	Text     string
}

// Document is the root of a parsed listing page. Its children are the
// surviving top-level elements in document order.
type Document struct {
	Children []*Node
}

// AttrString returns the named attribute, or "" when absent.
func (n *Node) AttrString(name string) string {
	if n.Attr == nil {
		return ""
	}
	return n.Attr[name]
}

// AttrWords returns the named attribute split into fields, or nil when the
// attribute is absent or blank.
func (n *Node) AttrWords(name string) []string {
	v := n.AttrString(name)
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

// AttrFloat parses the named attribute as a float.
func (n *Node) AttrFloat(name string) (float64, bool) {
	v := strings.TrimSpace(n.AttrString(name))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FindChild returns the first direct child element with the given tag.
func (n *Node) FindChild(tag string) *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode && c.Tag == tag {
			return c
		}
	}
	return nil
}

// InnerText concatenates all descendant text nodes.
func (n *Node) InnerText() string {
	var b strings.Builder
	n.collectText(&b)
	return b.String()
}

func (n *Node) collectText(b *strings.Builder) {
	if n.Kind == TextNode {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.collectText(b)
	}
}

// Elements returns the document's element children with the given tag.
func (d *Document) Elements(tag string) []*Node {
	var out []*Node
	for _, c := range d.Children {
		if c.Kind == ElementNode && c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}
