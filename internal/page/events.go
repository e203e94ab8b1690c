package page

import "time"

// EventType identifies what happened on the page.
type EventType string

// Page event types. These mirror the triggers the detection controller
// funnels into its debounced entry point.
const (
	EventLoad       EventType = "load"
	EventMutation   EventType = "mutation"
	EventNavigation EventType = "navigation"
	EventClick      EventType = "click"
	EventResize     EventType = "resize"
)

// Event is a single page-side occurrence delivered to the controller.
type Event struct {
	Timestamp  time.Time
	Target     *Element
	Type       EventType
	URL        string
	AddedNodes int
	AttrChange bool
}

// Relevant reports whether a mutation event should re-trigger analysis.
// Mutations that neither add nodes nor change attributes cannot move or
// introduce purchase buttons.
func (ev Event) Relevant() bool {
	if ev.Type != EventMutation {
		return true
	}
	return ev.AddedNodes > 0 || ev.AttrChange
}
