// Package sqlitestorage keeps the journal in SQLite, in memory or in a
// file, with an optional snapshot to disk on Close.
package sqlitestorage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sniperleonid/Calc-sub001/internal/database"
	gormstorage "github.com/sniperleonid/Calc-sub001/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path     string // empty keeps the database in memory
	DumpPath string // written with VACUUM INTO on Close when set
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg Config
	db  *database.Manager
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, db: database.NewManager(log), log: log}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	if err := b.db.OpenSqlite(b.cfg.Path); err != nil {
		return fmt.Errorf("failed to open SQLite journal: %w", err)
	}
	if err := b.db.Setup("firecalc"); err != nil {
		return err
	}
	b.Backend = gormstorage.New(b.db.DB)
	return nil
}

// Close dumps to DumpPath when configured and closes the database.
func (b *Backend) Close() error {
	if b.cfg.DumpPath != "" && b.db.DB != nil {
		if err := b.db.DumpToDisk(b.cfg.DumpPath); err != nil {
			b.log.Error().Err(err).Msg("Error dumping journal to disk")
		}
	}
	return b.db.Close()
}
