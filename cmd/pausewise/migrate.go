package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pausewise/pausewise/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			path, err := defaultDatabasePath()
			if err != nil {
				return err
			}
			store, err := storage.NewSQLiteStorage(path)
			if err != nil {
				return fmt.Errorf("failed to open storage at %s: %w", path, err)
			}
			defer func() { _ = store.Close() }()

			before, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			after, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			if after > before {
				slog.Info("applied migrations", "from", before, "to", after)
			} else {
				slog.Info("database is up to date", "version", after)
			}
			return nil
		},
	}
}
