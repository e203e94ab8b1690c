// Package coordinator implements the background half of the detection
// handshake: policy evaluation, reflection retrieval, pending-event
// persistence, and outcome resolution.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/detect"
	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

// recentWindow is how far back same-category purchases count toward the
// risk model.
const recentWindow = 7 * 24 * time.Hour

// coolingOffPeriod is how long a deferred product waits before review.
const coolingOffPeriod = 72 * time.Hour

// Coordinator applies policy to detection events and records outcomes.
// It is safe for concurrent use; storage read-modify-write sequences are
// serialized here so simultaneous tabs cannot lose updates.
type Coordinator struct {
	storage   service.Storage
	reflector service.Reflector
	logger    *slog.Logger
	now       func() time.Time

	// writeMu serializes every read-modify-write against storage. The
	// debounce upstream keeps contention negligible.
	writeMu sync.Mutex
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// New creates a Coordinator.
func New(storage service.Storage, reflector service.Reflector, opts ...Option) *Coordinator {
	c := &Coordinator{
		storage:   storage,
		reflector: reflector,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleDetection decides whether to block a detected purchase. Policy is
// evaluated in order; the first failing check short-circuits with its reason
// code. Storage failures never block the user flow: the coordinator proceeds
// on in-memory defaults.
func (c *Coordinator) HandleDetection(ctx context.Context, event model.DetectionEvent) (model.Decision, error) {
	now := c.now()

	enabled, err := c.storage.GetEnabled(ctx)
	if err != nil {
		c.logger.Error("failed to read enabled flag, assuming enabled", "error", err)
		enabled = true
	}
	if !enabled {
		return model.Decision{Blocked: false, Reason: model.ReasonDisabled}, nil
	}

	settings, err := c.storage.GetSettings(ctx)
	if err != nil {
		c.logger.Error("failed to read settings, using defaults", "error", err)
		settings = model.DefaultSettings()
	}

	if settings.QuietHours.Contains(now) {
		return model.Decision{Blocked: false, Reason: model.ReasonQuietHours}, nil
	}

	if !settings.SiteEnabled(event.Site) {
		return model.Decision{Blocked: false, Reason: model.ReasonSiteDisabled}, nil
	}

	if event.ConfidenceScore < detect.PolicyThreshold {
		return model.Decision{Blocked: false, Reason: model.ReasonLowConfidence}, nil
	}

	recentCount, err := c.storage.CountRecentByCategory(ctx, event.Product.Category, now.Add(-recentWindow))
	if err != nil {
		c.logger.Error("failed to count recent purchases", "error", err)
		recentCount = 0
	}

	goals, err := c.storage.GetGoals(ctx)
	if err != nil {
		c.logger.Error("failed to load goals", "error", err)
	}
	goalName := ""
	if len(goals) > 0 {
		goalName = goals[0].Name
	}

	rc := service.ReflectionContext{
		LocalTime:           now,
		GoalName:            goalName,
		RecentPurchaseCount: recentCount,
		FrictionLevel:       settings.FrictionLevel,
	}
	reflection := c.reflector.GetReflection(ctx, event.Product, rc)
	if reflection.GoalImpact == nil {
		reflection.GoalImpact = GoalImpact(goals, event.Product.Price)
	}

	pending := &model.PendingPurchaseEvent{
		ID:              uuid.NewString(),
		Product:         event.Product,
		Site:            event.Site,
		ConfidenceScore: event.ConfidenceScore,
		Timestamp:       now,
		RiskLevel:       reflection.RiskLevel,
		Source:          reflection.Source,
		QuestionsAsked:  reflection.Questions,
		Outcome:         model.OutcomePending,
	}

	c.writeMu.Lock()
	err = c.storage.SavePurchaseEvent(ctx, pending)
	c.writeMu.Unlock()
	if err != nil {
		// The overlay still shows; resolution will create an orphan record.
		c.logger.Error("failed to persist pending event", "event_id", pending.ID, "error", err)
	}

	return model.Decision{
		Blocked:    true,
		EventID:    pending.ID,
		Questions:  reflection.Questions,
		GoalImpact: reflection.GoalImpact,
		RiskLevel:  reflection.RiskLevel,
	}, nil
}

// ResolveOutcome writes a user decision onto its pending event exactly once.
// An unknown event id produces an orphan record rather than a lost outcome
// (messages can be dropped between page and background). Resolving an
// already-resolved event is a no-op and never double-credits savings.
func (c *Coordinator) ResolveOutcome(ctx context.Context, eventID string, outcome model.Outcome, reflectionSeconds int) (model.OutcomeResult, error) {
	if !outcome.Valid() || outcome == model.OutcomePending {
		return model.OutcomeResult{}, common.NewUserError("invalid outcome", nil)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	now := c.now()

	event, err := c.storage.GetPurchaseEvent(ctx, eventID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		event = &model.PendingPurchaseEvent{
			ID:        eventID,
			Product:   model.ProductInfo{Name: model.UnknownProductName, Category: model.DefaultCategory},
			Timestamp: now,
			Outcome:   model.OutcomePending,
			RiskLevel: model.RiskLow,
			Source:    model.SourceFallback,
		}
		if saveErr := c.storage.SavePurchaseEvent(ctx, event); saveErr != nil {
			return model.OutcomeResult{}, saveErr
		}
		c.logger.Warn("resolving unknown event, created orphan record", "event_id", eventID)
	case err != nil:
		return model.OutcomeResult{}, err
	}

	if event.Resolved() {
		c.logger.Debug("event already resolved, ignoring", "event_id", eventID, "outcome", event.Outcome)
		return model.OutcomeResult{Success: true}, nil
	}

	if err := c.storage.ResolvePurchaseEvent(ctx, eventID, outcome, reflectionSeconds); err != nil {
		return model.OutcomeResult{}, err
	}

	var saved float64
	if outcome == model.OutcomeSaved || outcome == model.OutcomeCooledOff {
		saved = event.Product.Price
		if saved > 0 {
			if _, err := c.storage.CreditSavings(ctx, saved, now.Format("2006-01-02")); err != nil {
				c.logger.Error("failed to credit savings", "event_id", eventID, "error", err)
			}
			if goals, err := c.storage.GetGoals(ctx); err == nil && len(goals) > 0 {
				if err := c.storage.CreditGoal(ctx, goals[0].ID, saved); err != nil {
					c.logger.Error("failed to credit goal", "goal_id", goals[0].ID, "error", err)
				}
			}
		}
	}

	if outcome == model.OutcomeCooledOff {
		item := &model.CoolingOffItem{
			ID:          uuid.NewString(),
			EventID:     eventID,
			Product:     event.Product,
			AddedAt:     now,
			ReviewAfter: now.Add(coolingOffPeriod),
		}
		if err := c.storage.AddCoolingOffItem(ctx, item); err != nil {
			c.logger.Error("failed to add cooling-off item", "event_id", eventID, "error", err)
		}
	}

	return model.OutcomeResult{Success: true, SavedAmount: saved}, nil
}
