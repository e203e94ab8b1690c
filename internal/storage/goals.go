package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/model"
)

// GetGoals returns all goals, oldest first. The first goal is the "active"
// one for impact figures.
func (s *SQLiteStorage) GetGoals(ctx context.Context) ([]model.FinancialGoal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, target_amount, saved_amount, deadline, created_at
		FROM goals ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []model.FinancialGoal
	for rows.Next() {
		var goal model.FinancialGoal
		var deadline sql.NullTime
		if err := rows.Scan(&goal.ID, &goal.Name, &goal.TargetAmount,
			&goal.SavedAmount, &deadline, &goal.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		if deadline.Valid {
			t := deadline.Time
			goal.Deadline = &t
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// SaveGoal inserts or updates a goal.
func (s *SQLiteStorage) SaveGoal(ctx context.Context, goal *model.FinancialGoal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, name, target_amount, saved_amount, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			target_amount = excluded.target_amount,
			saved_amount = excluded.saved_amount,
			deadline = excluded.deadline`,
		goal.ID, goal.Name, goal.TargetAmount, goal.SavedAmount, goal.Deadline, goal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	return nil
}

// CreditGoal adds a saved amount to a goal's progress.
func (s *SQLiteStorage) CreditGoal(ctx context.Context, id string, amount float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %f", amount)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE goals SET saved_amount = saved_amount + ? WHERE id = ?`, amount, id)
	if err != nil {
		return fmt.Errorf("failed to credit goal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check goal credit: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("goal %s: %w", id, common.ErrNotFound)
	}
	return nil
}
