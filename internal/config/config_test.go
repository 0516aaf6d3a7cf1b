package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"solver": { "tolerance": 5, "arc": "HIGH" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 5.0, GetFloat("solver.tolerance"))
	assert.Equal(t, "HIGH", GetString("solver.arc"))
	assert.Equal(t, 0.02, GetFloat("solver.step"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./firecalclogs", viper.GetString("logsDir"))
	assert.Equal(t, "./data", viper.GetString("dataDir"))
	assert.Equal(t, 0, viper.GetInt("theatre.epsg"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "", viper.GetString("storage.sqlite.path"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "firecalc", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "fire-solutions", viper.GetString("influx.bucket"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)
	viper.Set("testFloat", 1.5)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
	assert.Equal(t, 1.5, GetFloat("testFloat"))
}

func TestGetSolverConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	assert.Equal(t, SolverConfig{
		Step:        0.02,
		Horizon:     60,
		Tolerance:   10,
		Arc:         "AUTO",
		Mode:        "rk4",
		Parallelism: 4,
	}, GetSolverConfig())
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"storage": { "type": "sqlite", "sqlite": { "path": "/tmp/journal.db" } },
		"db": { "database": "batteries" }
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/journal.db", sc.SQLite.Path)
	assert.Equal(t, "batteries", sc.DB.Database)
	assert.Equal(t, "postgres", sc.DB.Username)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "token": "abc"}}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "abc", ic.Token)
	assert.Equal(t, "8086", ic.Port)
}
