package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// allowedAttrs is the tag/attribute allow-list applied during cleaning.
// Listing entries are article elements carrying data attributes; the only
// other element the parser consumes is the detail-link anchor.
var allowedAttrs = map[string][]string{
	"article": {"data-price", "data-name", "data-id"},
	"a":       {"href"},
}

// Sanitize strips page HTML down to the allow-listed tags and attributes,
// returning a minimal markup string. Everything else, including scripts and
// wrapper markup, is dropped; text content inside allowed elements survives.
func Sanitize(pageHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsableMarkup, err)
	}

	var b strings.Builder
	doc.Find("article").Each(func(_ int, s *goquery.Selection) {
		writeClean(&b, s, "article")
	})
	return b.String(), nil
}

func writeClean(b *strings.Builder, s *goquery.Selection, tag string) {
	b.WriteString("<" + tag)
	for _, attr := range allowedAttrs[tag] {
		if v, ok := s.Attr(attr); ok {
			b.WriteString(fmt.Sprintf(" %s=%q", attr, v))
		}
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(strings.TrimSpace(ownText(s))))
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		writeClean(b, a, "a")
	})
	b.WriteString("</" + tag + ">")
}

// ownText returns the selection's text excluding nested anchors, so sentinel
// phrases stay attached to the element that carries them.
func ownText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("a").Remove()
	return clone.Text()
}

// Parse converts cleaned markup into the structured document tree. Tags
// outside the allow-list are ignored even if present in the input.
func Parse(clean string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableMarkup, err)
	}

	root := &Document{}
	doc.Find("article").Each(func(_ int, s *goquery.Selection) {
		if n := buildNode(s.Get(0)); n != nil {
			root.Children = append(root.Children, n)
		}
	})
	return root, nil
}

func buildNode(hn *html.Node) *Node {
	if hn.Type == html.TextNode {
		if strings.TrimSpace(hn.Data) == "" {
			return nil
		}
		return &Node{Kind: TextNode, Text: hn.Data}
	}
	if hn.Type != html.ElementNode {
		return nil
	}
	allowed, ok := allowedAttrs[hn.Data]
	if !ok {
		return nil
	}

	n := &Node{Kind: ElementNode, Tag: hn.Data, Attr: map[string]string{}}
	for _, a := range hn.Attr {
		for _, name := range allowed {
			if a.Key == name {
				n.Attr[name] = a.Val
			}
		}
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if child := buildNode(c); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}
