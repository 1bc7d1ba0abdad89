package database

import (
	"context"
	"fmt"
	"log/slog"
)

func NewDatabase(ctx context.Context, databaseType, connectionString string) (database RecordStore, err error) {
	switch databaseType {
	case "sqlite":
		database, err = NewSQLiteDatabase(connectionString)
	case "redis":
		database, err = NewRedisDatabase(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	// Ensure schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing database schema", "type", databaseType)
	if err = database.Init(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return database, nil
}
