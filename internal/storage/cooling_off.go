package storage

import (
	"context"
	"fmt"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/model"
)

// AddCoolingOffItem records a deferred product.
func (s *SQLiteStorage) AddCoolingOffItem(ctx context.Context, item *model.CoolingOffItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: item", ErrNilParameter)
	}
	if err := validateString(item.ID, "item.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cooling_off (id, event_id, product_name, product_price, product_url, added_at, review_after)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.EventID, item.Product.Name, item.Product.Price,
		item.Product.URL, item.AddedAt, item.ReviewAfter)
	if err != nil {
		return fmt.Errorf("failed to add cooling-off item: %w", err)
	}
	return nil
}

// GetCoolingOffItems lists deferred products, soonest review first.
func (s *SQLiteStorage) GetCoolingOffItems(ctx context.Context) ([]model.CoolingOffItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, product_name, product_price, product_url, added_at, review_after
		FROM cooling_off ORDER BY review_after ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cooling-off items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.CoolingOffItem
	for rows.Next() {
		var item model.CoolingOffItem
		if err := rows.Scan(&item.ID, &item.EventID, &item.Product.Name,
			&item.Product.Price, &item.Product.URL, &item.AddedAt, &item.ReviewAfter); err != nil {
			return nil, fmt.Errorf("failed to scan cooling-off item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RemoveCoolingOffItem deletes a deferred product.
func (s *SQLiteStorage) RemoveCoolingOffItem(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM cooling_off WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove cooling-off item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cooling-off item %s: %w", id, common.ErrNotFound)
	}
	return nil
}
