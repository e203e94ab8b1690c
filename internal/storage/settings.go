package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/model"
)

// Settings keys in the key-value table.
const (
	keyEnabled  = "enabled"
	keySettings = "settings"
)

// GetEnabled reads the global enabled flag. Defaults to true when unset.
func (s *SQLiteStorage) GetEnabled(ctx context.Context) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	value, err := s.getValue(ctx, keyEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read enabled flag: %w", err)
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("corrupt enabled flag %q: %w", value, err)
	}
	return enabled, nil
}

// SetEnabled writes the global enabled flag.
func (s *SQLiteStorage) SetEnabled(ctx context.Context, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.setValue(ctx, keyEnabled, strconv.FormatBool(enabled))
}

// GetSettings reads user settings, defaulting when unset.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (model.Settings, error) {
	if err := validateContext(ctx); err != nil {
		return model.Settings{}, err
	}

	value, err := s.getValue(ctx, keySettings)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings model.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return model.Settings{}, fmt.Errorf("corrupt settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes user settings.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings model.Settings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if settings.FrictionLevel < 1 || settings.FrictionLevel > 5 {
		return common.NewUserError(fmt.Sprintf("friction level %d out of range (1-5)", settings.FrictionLevel), nil)
	}

	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.setValue(ctx, keySettings, string(value))
}

func (s *SQLiteStorage) getValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (s *SQLiteStorage) setValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
