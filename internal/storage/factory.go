// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/storage/memory"
	"github.com/sniperleonid/Calc-sub001/internal/storage/postgres"
	sqlitestorage "github.com/sniperleonid/Calc-sub001/internal/storage/sqlite"
)

// NewBackend creates a journal backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{Config: cfg.DB, Logger: log}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{Path: cfg.SQLite.Path}, log), nil
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
