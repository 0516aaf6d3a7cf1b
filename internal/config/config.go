package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "firecalc.cfg.json"

// SolverConfig holds solver defaults applied to every request.
type SolverConfig struct {
	Step        float64 `json:"step" mapstructure:"step"`
	Horizon     float64 `json:"horizon" mapstructure:"horizon"`
	Tolerance   float64 `json:"tolerance" mapstructure:"tolerance"`
	Arc         string  `json:"arc" mapstructure:"arc"`
	Mode        string  `json:"mode" mapstructure:"mode"`
	Parallelism int     `json:"parallelism" mapstructure:"parallelism"`
}

// SQLiteConfig holds SQLite journal settings. An empty path keeps the
// journal in memory.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the journal backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	DB     DBConfig     `json:"db" mapstructure:"db"`
}

// InfluxConfig holds the solution metrics export settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default. Load calls it; it is exported for
// callers that run without a config file.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./firecalclogs")
	viper.SetDefault("dataDir", "./data")

	viper.SetDefault("solver.step", 0.02)
	viper.SetDefault("solver.horizon", 60.0)
	viper.SetDefault("solver.tolerance", 10.0)
	viper.SetDefault("solver.arc", "AUTO")
	viper.SetDefault("solver.mode", "rk4")
	viper.SetDefault("solver.parallelism", 4)

	viper.SetDefault("theatre.epsg", 0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.path", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "firecalc")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "firecalc")
	viper.SetDefault("influx.bucket", "fire-solutions")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetSolverConfig returns the solver section.
func GetSolverConfig() SolverConfig {
	return SolverConfig{
		Step:        viper.GetFloat64("solver.step"),
		Horizon:     viper.GetFloat64("solver.horizon"),
		Tolerance:   viper.GetFloat64("solver.tolerance"),
		Arc:         viper.GetString("solver.arc"),
		Mode:        viper.GetString("solver.mode"),
		Parallelism: viper.GetInt("solver.parallelism"),
	}
}

// GetStorageConfig returns the journal storage settings. Postgres
// connection settings live under the top-level db key.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:   viper.GetString("storage.type"),
		SQLite: SQLiteConfig{Path: viper.GetString("storage.sqlite.path")},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the influx section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
