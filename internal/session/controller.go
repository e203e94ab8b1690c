// Package session implements the per-tab detection controller: the state
// machine that decides when a page warrants interception, talks to the
// session coordinator, and drives the shield manager.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/pausewise/pausewise/internal/detect"
	"github.com/pausewise/pausewise/internal/extract"
	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/page"
	"github.com/pausewise/pausewise/internal/service"
	"github.com/pausewise/pausewise/internal/shield"
)

// State is the controller's position in the detection cycle.
type State string

// Controller states. SAVED, PURCHASED, and dismissal all return to IDLE.
const (
	StateIdle             State = "IDLE"
	StateAnalyzing        State = "ANALYZING"
	StateNoMatch          State = "NO_MATCH"
	StateLowConfidence    State = "LOW_CONFIDENCE"
	StateHighConfidence   State = "HIGH_CONFIDENCE"
	StateExtracting       State = "EXTRACTING"
	StateTriggered        State = "TRIGGERED"
	StateOverlayDisplayed State = "OVERLAY_DISPLAYED"
	StateSaved            State = "SAVED"
	StatePurchased        State = "PURCHASED"
)

// Timing constants for the detection cycle.
const (
	// DebounceInterval rate-limits automatic detection. Shield clicks are
	// never debounced; each click is a distinct user intent.
	DebounceInterval = 2 * time.Second
	// SuppressionWindow is how long matched purchases pass straight through
	// after the user overrides, covering the post-override redirect chain.
	SuppressionWindow = 30 * time.Second
	// URLPollInterval is how often Run checks for SPA URL swaps that never
	// produce a navigation event.
	URLPollInterval = time.Second
)

// Config wires a controller. All state is held by the controller itself;
// nothing is package-global, so controllers are independently testable.
type Config struct {
	Coordinator service.Coordinator
	Host        shield.Host
	// OnShowOverlay instructs the page to render the reflection prompt.
	// Fire-and-forget.
	OnShowOverlay func(model.Decision)
	// Now is the clock, injectable for tests.
	Now    func() time.Time
	Logger *slog.Logger
}

// Controller drives detection for a single tab.
type Controller struct {
	coordinator service.Coordinator
	shield      *shield.Manager
	onShow      func(model.Decision)
	now         func() time.Time
	logger      *slog.Logger

	doc            *page.Document
	state          State
	currentURL     string
	handledURLs    map[string]bool
	lastDetection  time.Time
	suppressUntil  time.Time
	activeEventID  string
	overlayShownAt time.Time
	inFlight       bool
}

// NewController creates a controller for one tab.
func NewController(cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Controller{
		coordinator: cfg.Coordinator,
		onShow:      cfg.OnShowOverlay,
		now:         cfg.Now,
		logger:      cfg.Logger,
		state:       StateIdle,
		handledURLs: make(map[string]bool),
	}
	c.shield = shield.NewManager(shield.Config{
		Host:        cfg.Host,
		Suppressed:  c.Suppressed,
		OnIntercept: c.handleShieldClick,
		Logger:      cfg.Logger,
	})
	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Shield exposes the tab's shield manager.
func (c *Controller) Shield() *shield.Manager {
	return c.shield
}

// Suppressed reports whether the post-override suppression window is active.
func (c *Controller) Suppressed() bool {
	return c.now().Before(c.suppressUntil)
}

// SetDocument installs the current snapshot without running detection.
func (c *Controller) SetDocument(doc *page.Document) {
	c.doc = doc
	c.currentURL = doc.URL
}

// HandleEvent funnels a page event into the detection cycle.
func (c *Controller) HandleEvent(ctx context.Context, ev page.Event) {
	switch ev.Type {
	case page.EventLoad:
		c.handleNavigation(ctx)

	case page.EventNavigation:
		// Real navigations invalidate every shield position.
		c.shield.RemoveAll()
		c.handleNavigation(ctx)

	case page.EventMutation:
		if !ev.Relevant() {
			return
		}
		if c.doc != nil && ev.URL != "" && ev.URL != c.currentURL {
			// SPA route change surfaced through the mutation feed.
			c.currentURL = ev.URL
			c.doc.URL = ev.URL
			c.handleNavigation(ctx)
			return
		}
		c.shield.UpdateAll()
		c.runAutoDetection(ctx)

	case page.EventResize:
		c.shield.UpdateAll()

	case page.EventClick:
		// Capture-phase safety net: a purchase-phrase click anywhere in the
		// document, shielded or not, is a manual trigger.
		if ev.Target == nil {
			return
		}
		if c.shield.Overlay(ev.Target) != nil {
			c.shield.Click(ctx, ev.Target)
			return
		}
		if detect.IsPurchaseButton(ev.Target) {
			c.runManualDetection(ctx, ev.Target)
		}
	}
}

// Run processes the tab's event stream and polls for URL swaps until the
// context is canceled.
func (c *Controller) Run(ctx context.Context, events <-chan page.Event) {
	ticker := time.NewTicker(URLPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(ctx, ev)
		case <-ticker.C:
			if c.doc != nil && c.doc.URL != c.currentURL {
				c.currentURL = c.doc.URL
				c.handleNavigation(ctx)
			}
		}
	}
}

func (c *Controller) handleNavigation(ctx context.Context) {
	if c.doc != nil {
		c.currentURL = c.doc.URL
	}
	c.state = StateIdle
	c.runAutoDetection(ctx)
}

// runAutoDetection is the single debounced entry point shared by every
// automatic trigger. One timestamp serializes them all; per-trigger
// timestamps would let the mutation observer and URL poller race.
func (c *Controller) runAutoDetection(ctx context.Context) {
	if c.doc == nil || c.inFlight {
		return
	}
	if c.Suppressed() {
		return
	}
	if c.handledURLs[c.currentURL] {
		// Already interrupted (or passed through) on this exact URL; don't
		// nag someone lingering on a static page.
		return
	}
	now := c.now()
	if now.Sub(c.lastDetection) < DebounceInterval {
		return
	}
	c.lastDetection = now

	c.state = StateAnalyzing
	breakdown := detect.ScoreBreakdown(c.doc)
	score := breakdown.Total()

	// Shields go up for any page with purchase buttons so that a click can
	// be confirmed even when the heuristic stays below threshold.
	c.shield.ShieldAll(c.doc)

	switch {
	case score == 0:
		c.state = StateNoMatch
		return
	case score < detect.AutoTriggerThreshold:
		c.state = StateLowConfidence
		c.logger.Debug("below auto-trigger threshold",
			"url", c.currentURL, "score", score,
			"url_score", breakdown.URL, "button_score", breakdown.Button, "dom_score", breakdown.DOM)
		return
	}

	c.state = StateHighConfidence
	c.trigger(ctx, score)
}

// runManualDetection handles a purchase-phrase click that bypassed the
// shields, e.g. a button that appeared inside the debounce window.
func (c *Controller) runManualDetection(ctx context.Context, _ *page.Element) {
	if c.doc == nil || c.inFlight {
		return
	}
	if c.Suppressed() || c.handledURLs[c.currentURL] {
		return
	}
	c.trigger(ctx, detect.DirectClickConfidence)
}

// handleShieldClick is the blocking handshake for a click held by a shield.
func (c *Controller) handleShieldClick(ctx context.Context, _ *page.Element) {
	if c.inFlight {
		return
	}
	// A direct click is explicit intent; the heuristic does not apply.
	c.trigger(ctx, detect.DirectClickConfidence)
}

func (c *Controller) trigger(ctx context.Context, confidence int) {
	c.state = StateExtracting
	product := extract.Extract(c.doc)

	c.state = StateTriggered
	event := model.DetectionEvent{
		Product:         product,
		Site:            c.doc.Hostname(),
		ConfidenceScore: confidence,
		Timestamp:       c.now(),
	}

	c.inFlight = true
	decision, err := c.coordinator.HandleDetection(ctx, event)
	c.inFlight = false
	if err != nil {
		// Nothing in this path may surface a hard failure to the shopper.
		c.logger.Error("detection handshake failed, passing click through", "error", err)
		c.passThrough()
		return
	}

	if !decision.Blocked {
		c.logger.Debug("coordinator declined to block", "reason", decision.Reason)
		c.passThrough()
		return
	}

	c.handledURLs[c.currentURL] = true
	c.activeEventID = decision.EventID
	c.overlayShownAt = c.now()
	c.state = StateOverlayDisplayed
	if c.onShow != nil {
		c.onShow(decision)
	}
}

func (c *Controller) passThrough() {
	c.handledURLs[c.currentURL] = true
	if c.shield.Pending() != nil {
		c.shield.Release()
	}
	c.state = StateIdle
}

// Resolve records the user's decision on the displayed overlay and returns
// the controller to IDLE (via the terminal-per-cycle state).
func (c *Controller) Resolve(ctx context.Context, outcome model.Outcome) {
	if c.state != StateOverlayDisplayed {
		return
	}
	reflectionSeconds := int(c.now().Sub(c.overlayShownAt).Seconds())
	eventID := c.activeEventID
	c.activeEventID = ""

	switch outcome {
	case model.OutcomeBought:
		// "I still want it": open the suppression window so the redirect
		// chain through payment doesn't re-trigger, then let the click go.
		c.suppressUntil = c.now().Add(SuppressionWindow)
		c.state = StatePurchased
		c.shield.Release()
	case model.OutcomeSaved, model.OutcomeCooledOff:
		c.state = StateSaved
		c.shield.Dismiss()
		c.shield.RemoveAll()
	default:
		c.Dismiss()
		return
	}

	if eventID != "" {
		if _, err := c.coordinator.ResolveOutcome(ctx, eventID, outcome, reflectionSeconds); err != nil {
			c.logger.Error("failed to record outcome", "event_id", eventID, "error", err)
		}
	}
	c.state = StateIdle
}

// Dismiss closes the overlay without a decision.
func (c *Controller) Dismiss() {
	c.shield.Dismiss()
	c.shield.RemoveAll()
	c.activeEventID = ""
	c.state = StateIdle
}

// Reset clears all per-tab detection state. Driven by the reset_detection
// instruction.
func (c *Controller) Reset() {
	c.shield.Dismiss()
	c.shield.RemoveAll()
	c.handledURLs = make(map[string]bool)
	c.activeEventID = ""
	c.suppressUntil = time.Time{}
	c.lastDetection = time.Time{}
	c.state = StateIdle
}
