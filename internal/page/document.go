package page

import (
	"net/url"
	"strings"
)

// Document is a flattened snapshot of a page at one point in time.
type Document struct {
	URL      string
	Title    string
	Elements []*Element
}

// Hostname returns the lowercased host of the document URL, or "" if the
// URL does not parse.
func (d *Document) Hostname() string {
	u, err := url.Parse(d.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Path returns the lowercased path+query of the document URL. Scoring
// patterns match against this, never against the host.
func (d *Document) Path() string {
	u, err := url.Parse(d.URL)
	if err != nil {
		return strings.ToLower(d.URL)
	}
	p := u.Path
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return strings.ToLower(p)
}

// Find returns all elements satisfying the predicate.
func (d *Document) Find(pred func(*Element) bool) []*Element {
	var out []*Element
	for _, e := range d.Elements {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first element satisfying the predicate, or nil.
func (d *Document) First(pred func(*Element) bool) *Element {
	for _, e := range d.Elements {
		if pred(e) {
			return e
		}
	}
	return nil
}

// Select returns elements matching a compact selector. The supported grammar
// covers what the extractor registries need: "tag", "#id", ".class",
// "[attr]", "[attr=value]", and combinations such as "span.price" or
// "div[itemprop=name]". Class matching is exact here, unlike HasClass.
func (d *Document) Select(selector string) []*Element {
	sel, ok := parseSelector(selector)
	if !ok {
		return nil
	}
	return d.Find(sel.matches)
}

// SelectFirst returns the first match for the selector, or nil.
func (d *Document) SelectFirst(selector string) *Element {
	sel, ok := parseSelector(selector)
	if !ok {
		return nil
	}
	return d.First(sel.matches)
}

type selector struct {
	tag       string
	id        string
	class     string
	attrKey   string
	attrValue string
	hasAttr   bool
}

func parseSelector(s string) (selector, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return selector{}, false
	}

	var sel selector
	rest := s

	// Attribute clause comes last: tag.class[attr=value]
	if i := strings.Index(rest, "["); i >= 0 {
		attr := rest[i:]
		rest = rest[:i]
		if !strings.HasSuffix(attr, "]") {
			return selector{}, false
		}
		attr = attr[1 : len(attr)-1]
		sel.hasAttr = true
		if j := strings.Index(attr, "="); j >= 0 {
			sel.attrKey = attr[:j]
			sel.attrValue = strings.Trim(attr[j+1:], `"'`)
		} else {
			sel.attrKey = attr
		}
	}

	if i := strings.Index(rest, "."); i >= 0 {
		sel.class = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.Index(rest, "#"); i >= 0 {
		sel.id = rest[i+1:]
		rest = rest[:i]
	}
	sel.tag = strings.ToLower(rest)

	return sel, true
}

func (s selector) matches(e *Element) bool {
	if s.tag != "" && e.Tag != s.tag {
		return false
	}
	if s.id != "" && e.ID != s.id {
		return false
	}
	if s.class != "" {
		found := false
		for _, c := range e.Classes {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.hasAttr {
		v, ok := e.Attrs[s.attrKey]
		if !ok {
			return false
		}
		if s.attrValue != "" && v != s.attrValue {
			return false
		}
	}
	return true
}
