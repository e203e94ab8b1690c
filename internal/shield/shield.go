// Package shield maintains transparent overlays over purchase buttons so
// clicks are intercepted before the host page's own handlers run.
//
// The manager is deliberately mechanism-agnostic: everything that touches
// the real page (synthetic click dispatch) goes through the Host capability,
// and button matching is an injected predicate, so the same manager runs
// against live pages and test fixtures alike.
package shield

import (
	"context"
	"log/slog"

	"github.com/pausewise/pausewise/internal/detect"
	"github.com/pausewise/pausewise/internal/page"
)

// Host is the capability surface the manager needs from its embedding
// environment. DispatchClick must deliver a real click to the underlying
// button, bypassing the shield that was just removed.
type Host interface {
	DispatchClick(button *page.Element)
}

// ClickResult reports what the manager did with an intercepted click.
type ClickResult string

// Click results.
const (
	ClickPassedThrough ClickResult = "passed_through"
	ClickHeld          ClickResult = "held"
	ClickUnshielded    ClickResult = "unshielded"
)

// Overlay is a transparent top-z-index element positioned congruently with
// its button's current bounding box.
type Overlay struct {
	Rect   page.Rect
	Hidden bool
}

// Manager owns the button → overlay mapping for one tab. It is confined to
// the tab's event goroutine and holds no locks.
type Manager struct {
	host        Host
	match       func(*page.Element) bool
	suppressed  func() bool
	onIntercept func(ctx context.Context, button *page.Element)
	shields     map[*page.Element]*Overlay
	pending     *page.Element
	logger      *slog.Logger
}

// Config wires the manager's capabilities.
type Config struct {
	Host Host
	// Match decides which elements get shielded. Defaults to the scoring
	// engine's purchase-button predicate.
	Match func(*page.Element) bool
	// Suppressed is consulted on every shield click; when true the click
	// passes straight through.
	Suppressed func() bool
	// OnIntercept starts the blocking handshake for a held click.
	OnIntercept func(ctx context.Context, button *page.Element)
	Logger      *slog.Logger
}

// NewManager creates a shield manager for a single tab.
func NewManager(cfg Config) *Manager {
	if cfg.Match == nil {
		cfg.Match = detect.IsPurchaseButton
	}
	if cfg.Suppressed == nil {
		cfg.Suppressed = func() bool { return false }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		host:        cfg.Host,
		match:       cfg.Match,
		suppressed:  cfg.Suppressed,
		onIntercept: cfg.OnIntercept,
		shields:     make(map[*page.Element]*Overlay),
		logger:      cfg.Logger,
	}
}

// FindPurchaseButtons scans the snapshot for shieldable elements.
func (m *Manager) FindPurchaseButtons(doc *page.Document) []*page.Element {
	return doc.Find(m.match)
}

// ShieldAll shields every matched, visible button that is not already
// shielded. Re-shielding an existing button only repositions its overlay.
// Returns the number of live shields.
func (m *Manager) ShieldAll(doc *page.Document) int {
	for _, button := range m.FindPurchaseButtons(doc) {
		if _, ok := m.shields[button]; ok {
			m.UpdatePosition(button)
			continue
		}
		if !button.Visible() {
			// Zero-area buttons are not interactable yet.
			continue
		}
		m.shields[button] = &Overlay{Rect: button.Rect}
		m.logger.Debug("shielded button", "label", button.Label())
	}
	return len(m.shields)
}

// Click handles a click landing on a button's shield. The shield consumed
// the event, so the host page never saw it; this decides what happens next.
func (m *Manager) Click(ctx context.Context, button *page.Element) ClickResult {
	if _, ok := m.shields[button]; !ok {
		return ClickUnshielded
	}

	if m.suppressed() {
		// The user already said "I still want it". Tear everything down and
		// replay the click on the real button.
		m.RemoveAll()
		if m.host != nil {
			m.host.DispatchClick(button)
		}
		return ClickPassedThrough
	}

	m.pending = button
	if m.onIntercept != nil {
		m.onIntercept(ctx, button)
	}
	return ClickHeld
}

// Pending returns the button whose click is currently held, if any.
func (m *Manager) Pending() *page.Element {
	return m.pending
}

// Release replays the held click on the pending button and removes all
// shields. Invoked when the user chooses to proceed.
func (m *Manager) Release() {
	button := m.pending
	m.pending = nil
	m.RemoveAll()
	if button != nil && m.host != nil {
		m.host.DispatchClick(button)
	}
}

// Dismiss drops the held click without replaying it.
func (m *Manager) Dismiss() {
	m.pending = nil
}

// UpdatePosition re-measures one shield against its button's current box.
// A button that became invisible hides its shield rather than removing it;
// buttons in single-page apps reappear in place.
func (m *Manager) UpdatePosition(button *page.Element) {
	overlay, ok := m.shields[button]
	if !ok {
		return
	}
	if !button.Visible() {
		overlay.Hidden = true
		return
	}
	overlay.Rect = button.Rect
	overlay.Hidden = false
}

// UpdateAll repositions every live shield. Invoked on DOM mutation and
// window resize.
func (m *Manager) UpdateAll() {
	for button := range m.shields {
		m.UpdatePosition(button)
	}
}

// RemoveAll tears down every shield. Invoked on navigation, on proceed, and
// on dismiss/reset.
func (m *Manager) RemoveAll() {
	m.shields = make(map[*page.Element]*Overlay)
}

// Overlay returns the overlay for a button, or nil if it is not shielded.
func (m *Manager) Overlay(button *page.Element) *Overlay {
	return m.shields[button]
}

// Count returns the number of live shields.
func (m *Manager) Count() int {
	return len(m.shields)
}
