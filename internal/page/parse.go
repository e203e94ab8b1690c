package page

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML builds a Document from captured HTML. Layout geometry is not part
// of HTML; capture tooling that records it embeds a "data-rect" attribute
// ("x,y,w,h") which is lifted into Element.Rect. Elements without one have a
// zero rect and are scored but never shielded.
func ParseHTML(pageURL string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{URL: pageURL}
	walk(root, doc)
	return doc, nil
}

func walk(n *html.Node, doc *Document) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		case "title":
			doc.Title = strings.TrimSpace(nodeText(n))
		default:
			doc.Elements = append(doc.Elements, fromNode(n))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, doc)
	}
}

func fromNode(n *html.Node) *Element {
	e := &Element{Tag: strings.ToLower(n.Data)}
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			e.ID = a.Val
		case "class":
			e.Classes = strings.Fields(a.Val)
		case "data-rect":
			e.Rect = parseRect(a.Val)
		case "hidden":
			e.Hidden = true
		default:
			if e.Attrs == nil {
				e.Attrs = make(map[string]string)
			}
			e.Attrs[a.Key] = a.Val
		}
	}
	if strings.Contains(e.Attr("style"), "display:none") ||
		strings.Contains(e.Attr("style"), "display: none") {
		e.Hidden = true
	}
	e.Text = strings.Join(strings.Fields(nodeText(n)), " ")
	return e
}

// nodeText collects the immediate and nested text of a node. Nested element
// text is included so that <button><span>Buy Now</span></button> labels the
// button, which is how purchase buttons are marked up in practice.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func parseRect(s string) Rect {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
}
