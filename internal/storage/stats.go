package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pausewise/pausewise/internal/model"
)

// GetStats reads the savings counters.
func (s *SQLiteStorage) GetStats(ctx context.Context) (model.Stats, error) {
	if err := validateContext(ctx); err != nil {
		return model.Stats{}, err
	}

	var stats model.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT day, saved_today, saved_total, streak FROM stats WHERE id = 1`).
		Scan(&stats.Day, &stats.SavedToday, &stats.SavedTotal, &stats.Streak)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return stats, nil
}

// CreditSavings adds a saved amount for the given day ("2006-01-02") and
// returns the updated counters. Day rollover resets the daily figure and
// advances the streak when the previous savings day was yesterday. The whole
// sequence runs in one transaction so concurrent resolutions cannot lose
// updates.
func (s *SQLiteStorage) CreditSavings(ctx context.Context, amount float64, day string) (model.Stats, error) {
	if err := validateContext(ctx); err != nil {
		return model.Stats{}, err
	}
	if amount <= 0 {
		return model.Stats{}, fmt.Errorf("credit amount must be positive, got %f", amount)
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return model.Stats{}, fmt.Errorf("invalid day %q: %w", day, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to begin stats transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stats model.Stats
	err = tx.QueryRowContext(ctx, `
		SELECT day, saved_today, saved_total, streak FROM stats WHERE id = 1`).
		Scan(&stats.Day, &stats.SavedToday, &stats.SavedTotal, &stats.Streak)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}

	switch stats.Day {
	case day:
		stats.SavedToday += amount
	default:
		if isYesterday(stats.Day, day) {
			stats.Streak++
		} else {
			stats.Streak = 1
		}
		stats.Day = day
		stats.SavedToday = amount
	}
	stats.SavedTotal += amount

	_, err = tx.ExecContext(ctx, `
		UPDATE stats SET day = ?, saved_today = ?, saved_total = ?, streak = ? WHERE id = 1`,
		stats.Day, stats.SavedToday, stats.SavedTotal, stats.Streak)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to update stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Stats{}, fmt.Errorf("failed to commit stats: %w", err)
	}
	return stats, nil
}

func isYesterday(prev, day string) bool {
	if prev == "" {
		return false
	}
	prevT, err := time.Parse("2006-01-02", prev)
	if err != nil {
		return false
	}
	dayT, err := time.Parse("2006-01-02", day)
	if err != nil {
		return false
	}
	return dayT.Sub(prevT) == 24*time.Hour
}
