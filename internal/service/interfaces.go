// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/pausewise/pausewise/internal/model"
)

// EventFilter defines filtering options for purchase event queries.
type EventFilter struct {
	Since   *time.Time
	Site    string
	Outcome model.Outcome
	Limit   int
	Offset  int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Purchase event operations
	SavePurchaseEvent(ctx context.Context, event *model.PendingPurchaseEvent) error
	GetPurchaseEvent(ctx context.Context, id string) (*model.PendingPurchaseEvent, error)
	ResolvePurchaseEvent(ctx context.Context, id string, outcome model.Outcome, reflectionSeconds int) error
	GetPurchaseEvents(ctx context.Context, filter EventFilter) ([]model.PendingPurchaseEvent, error)
	CountRecentByCategory(ctx context.Context, category string, since time.Time) (int, error)

	// Settings operations
	GetEnabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error

	// Goal operations
	GetGoals(ctx context.Context) ([]model.FinancialGoal, error)
	SaveGoal(ctx context.Context, goal *model.FinancialGoal) error
	CreditGoal(ctx context.Context, id string, amount float64) error

	// Cooling-off operations
	AddCoolingOffItem(ctx context.Context, item *model.CoolingOffItem) error
	GetCoolingOffItems(ctx context.Context) ([]model.CoolingOffItem, error)
	RemoveCoolingOffItem(ctx context.Context, id string) error

	// Stats operations
	GetStats(ctx context.Context) (model.Stats, error)
	CreditSavings(ctx context.Context, amount float64, day string) (model.Stats, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Reflector produces reflection content for a detected purchase.
type Reflector interface {
	GetReflection(ctx context.Context, product model.ProductInfo, rc ReflectionContext) model.Reflection
}

// ReflectionContext carries the anonymized context sent alongside a product.
type ReflectionContext struct {
	LocalTime           time.Time
	GoalName            string
	RecentPurchaseCount int
	FrictionLevel       int
}

// Coordinator is the background boundary the detection controller talks to.
type Coordinator interface {
	HandleDetection(ctx context.Context, event model.DetectionEvent) (model.Decision, error)
	ResolveOutcome(ctx context.Context, eventID string, outcome model.Outcome, reflectionSeconds int) (model.OutcomeResult, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
