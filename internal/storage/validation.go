package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pausewise/pausewise/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidEvent = errors.New("invalid purchase event")
	ErrInvalidGoal  = errors.New("invalid goal")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePurchaseEvent validates an event before persistence.
func validatePurchaseEvent(event *model.PendingPurchaseEvent) error {
	if event == nil {
		return fmt.Errorf("%w: event", ErrNilParameter)
	}
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if event.ConfidenceScore < 0 || event.ConfidenceScore > 100 {
		return fmt.Errorf("%w: confidence %d out of range", ErrInvalidEvent, event.ConfidenceScore)
	}
	if event.Product.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidEvent)
	}
	if event.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}

// validateGoal validates a goal before persistence.
func validateGoal(goal *model.FinancialGoal) error {
	if goal == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if strings.TrimSpace(goal.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidGoal)
	}
	if strings.TrimSpace(goal.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidGoal)
	}
	if goal.TargetAmount <= 0 {
		return fmt.Errorf("%w: target amount must be positive", ErrInvalidGoal)
	}
	return nil
}
