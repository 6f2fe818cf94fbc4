package storage

import (
	"context"
	"fmt"

	"github.com/saker-ai/akbar-server/internal/config"
)

// Open builds the KV backend selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileKV(cfg.Dir)
	case config.BackendMemory:
		return NewMemoryKV(), nil
	case config.BackendSQLite:
		return NewSQLiteKV(cfg.SQLitePath)
	case config.BackendFirestore:
		return NewFirestoreKV(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
