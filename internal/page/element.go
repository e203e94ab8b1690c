// Package page models a captured DOM snapshot: the URL, title, and flattened
// element list the detection pipeline scans. Snapshots come from the live
// mutation feed or from parsed HTML captures; both produce the same shape.
package page

import (
	"strings"
)

// Rect is a viewport-relative, scroll-adjusted bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Zero reports whether the box has no area. Zero-area elements are treated
// as not interactable yet.
func (r Rect) Zero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Element is a single node in a snapshot.
type Element struct {
	Attrs   map[string]string `json:"attrs,omitempty"`
	Tag     string            `json:"tag"`
	ID      string            `json:"id,omitempty"`
	Text    string            `json:"text,omitempty"`
	Classes []string          `json:"classes,omitempty"`
	Rect    Rect              `json:"rect"`
	Hidden  bool              `json:"hidden,omitempty"`
}

// Attr returns the named attribute, or "".
func (e *Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// HasClass reports whether any class contains the given substring,
// case-insensitively. Checkout pages rarely use exact class names twice.
func (e *Element) HasClass(substr string) bool {
	substr = strings.ToLower(substr)
	for _, c := range e.Classes {
		if strings.Contains(strings.ToLower(c), substr) {
			return true
		}
	}
	return false
}

// Label returns the text a user would read on the element: visible text,
// then aria-label, then the value attribute, then alt.
func (e *Element) Label() string {
	if t := strings.TrimSpace(e.Text); t != "" {
		return t
	}
	for _, attr := range []string{"aria-label", "value", "alt", "title"} {
		if v := strings.TrimSpace(e.Attr(attr)); v != "" {
			return v
		}
	}
	return ""
}

// Clickable reports whether the element is a purchase-button candidate:
// a button, a submit/button input, or anything carrying an ARIA button role.
func (e *Element) Clickable() bool {
	switch e.Tag {
	case "button":
		return true
	case "input":
		t := strings.ToLower(e.Attr("type"))
		return t == "submit" || t == "button" || t == "image"
	}
	return strings.EqualFold(e.Attr("role"), "button")
}

// Visible reports whether the element can currently be interacted with.
func (e *Element) Visible() bool {
	return !e.Hidden && !e.Rect.Zero()
}
