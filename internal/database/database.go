package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/model"
)

// SchemaVersion is written to the info table on first setup.
const SchemaVersion = 1

// MemoryDSN is a private in-memory SQLite database.
const MemoryDSN = "file::memory:"

// Manager handles database connections and operations.
type Manager struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Logger zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// PostgresDSN formats a libpq connection string.
func PostgresDSN(c config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// OpenPostgres connects to PostgreSQL and verifies the connection.
func (m *Manager) OpenPostgres(c config.DBConfig) error {
	m.Logger.Debug().Str("host", c.Host).Str("database", c.Database).Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(c),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := m.attach(db); err != nil {
		return err
	}
	m.SqlDB.SetMaxOpenConns(10)
	m.Logger.Info().Msg("Connected to database")
	return nil
}

// OpenSqlite opens a SQLite database at path, or in memory for an empty
// path. An in-memory database is limited to one connection so that every
// query sees the same data.
func (m *Manager) OpenSqlite(path string) error {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := m.attach(db); err != nil {
		return err
	}
	if path == "" {
		m.SqlDB.SetMaxOpenConns(1)
		m.Logger.Info().Msg("Using SQLite journal in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using SQLite journal")
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return nil
}

func (m *Manager) attach(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	m.DB = db
	m.SqlDB = sqlDB
	return nil
}

// Setup migrates the schema and creates the info row if missing.
func (m *Manager) Setup(batteryName string) error {
	if m.DB == nil {
		return fmt.Errorf("database not open")
	}
	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var count int64
	if err := m.DB.Model(&model.Info{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to read info table: %w", err)
	}
	if count == 0 {
		info := model.Info{BatteryName: batteryName, SchemaVersion: SchemaVersion}
		if err := m.DB.Create(&info).Error; err != nil {
			return fmt.Errorf("failed to create info entry: %w", err)
		}
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	err := m.SqlDB.Close()
	m.SqlDB = nil
	m.DB = nil
	return err
}

// DumpToDisk writes a SQLite database to path with VACUUM INTO, replacing
// any existing file.
func (m *Manager) DumpToDisk(path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if m.DB == nil || m.DB.Dialector.Name() != "sqlite" {
		return fmt.Errorf("dump requires an open sqlite database")
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	start := time.Now()
	if err := m.DB.Exec("VACUUM INTO '" + strings.ReplaceAll(path, "'", "''") + "'").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped DB to disk")
	return nil
}
