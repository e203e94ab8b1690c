package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

// SavePurchaseEvent persists a new pending event.
func (s *SQLiteStorage) SavePurchaseEvent(ctx context.Context, event *model.PendingPurchaseEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePurchaseEvent(event); err != nil {
		return err
	}

	questions, err := json.Marshal(event.QuestionsAsked)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchase_events (
			id, site, product_name, product_price, product_category,
			product_url, product_image, confidence, risk_level, source,
			questions, outcome, reflection_seconds, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Site, event.Product.Name, event.Product.Price,
		event.Product.Category, event.Product.URL, event.Product.ImageURL,
		event.ConfidenceScore, string(event.RiskLevel), string(event.Source),
		string(questions), string(event.Outcome), event.ReflectionTimeSeconds,
		event.Timestamp, event.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to save purchase event: %w", err)
	}
	return nil
}

// GetPurchaseEvent fetches one event by id.
func (s *SQLiteStorage) GetPurchaseEvent(ctx context.Context, id string) (*model.PendingPurchaseEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, site, product_name, product_price, product_category,
			product_url, product_image, confidence, risk_level, source,
			questions, outcome, reflection_seconds, created_at, resolved_at
		FROM purchase_events WHERE id = ?`, id)

	event, err := scanPurchaseEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("purchase event %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase event: %w", err)
	}
	return event, nil
}

// ResolvePurchaseEvent writes the outcome onto a pending event. The WHERE
// clause guards against double resolution at the SQL level.
func (s *SQLiteStorage) ResolvePurchaseEvent(ctx context.Context, id string, outcome model.Outcome, reflectionSeconds int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: outcome %q", ErrInvalidEvent, outcome)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE purchase_events
		SET outcome = ?, reflection_seconds = ?, resolved_at = ?
		WHERE id = ? AND outcome = 'pending'`,
		string(outcome), reflectionSeconds, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve purchase event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolution: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("purchase event %s not pending: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetPurchaseEvents lists events matching the filter, newest first.
func (s *SQLiteStorage) GetPurchaseEvents(ctx context.Context, filter service.EventFilter) ([]model.PendingPurchaseEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, site, product_name, product_price, product_category,
			product_url, product_image, confidence, risk_level, source,
			questions, outcome, reflection_seconds, created_at, resolved_at
		FROM purchase_events WHERE 1=1`
	var args []any

	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}
	if filter.Site != "" {
		query += ` AND site = ?`
		args = append(args, filter.Site)
	}
	if filter.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(filter.Outcome))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.PendingPurchaseEvent
	for rows.Next() {
		event, err := scanPurchaseEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// CountRecentByCategory counts resolved-as-bought and pending purchases in a
// category since the given time. Feeds the risk model's repetition factor.
func (s *SQLiteStorage) CountRecentByCategory(ctx context.Context, category string, since time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM purchase_events
		WHERE product_category = ? AND created_at >= ? AND outcome IN ('pending', 'bought')`,
		category, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent purchases: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchaseEvent(row rowScanner) (*model.PendingPurchaseEvent, error) {
	var (
		event       model.PendingPurchaseEvent
		risk        string
		source      string
		outcome     string
		questions   sql.NullString
		productURL  sql.NullString
		productImg  sql.NullString
		resolvedAt  sql.NullTime
	)

	err := row.Scan(&event.ID, &event.Site, &event.Product.Name,
		&event.Product.Price, &event.Product.Category, &productURL,
		&productImg, &event.ConfidenceScore, &risk, &source, &questions,
		&outcome, &event.ReflectionTimeSeconds, &event.Timestamp, &resolvedAt)
	if err != nil {
		return nil, err
	}

	event.Product.URL = productURL.String
	event.Product.ImageURL = productImg.String
	event.RiskLevel = model.RiskLevel(risk)
	event.Source = model.QuestionSource(source)
	event.Outcome = model.Outcome(outcome)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		event.ResolvedAt = &t
	}
	if questions.Valid && questions.String != "" {
		if err := json.Unmarshal([]byte(questions.String), &event.QuestionsAsked); err != nil {
			return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
		}
	}
	return &event, nil
}
