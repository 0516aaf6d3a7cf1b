package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{Host: "db", Port: "5433", Username: "u", Password: "p", Database: "fc"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=fc sslmode=disable", dsn)
}

func TestSetup_InMemory(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.OpenSqlite(""))
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Setup("A battery"))
	require.NoError(t, m.Setup("ignored"))

	var infos []model.Info
	require.NoError(t, m.DB.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "A battery", infos[0].BatteryName)
	assert.Equal(t, SchemaVersion, infos[0].SchemaVersion)
	assert.True(t, m.DB.Migrator().HasTable(&model.JournalEntry{}))
}

func TestDumpToDisk(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.OpenSqlite(""))
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Setup("dump"))

	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	require.NoError(t, m.DumpToDisk(path))

	disk := NewManager(zerolog.Nop())
	require.NoError(t, disk.OpenSqlite(path))
	t.Cleanup(func() { _ = disk.Close() })
	var count int64
	require.NoError(t, disk.DB.Model(&model.Info{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Error(t, m.DumpToDisk(""))
}

func TestSetup_NotOpen(t *testing.T) {
	assert.Error(t, NewManager(zerolog.Nop()).Setup("x"))
	assert.NoError(t, NewManager(zerolog.Nop()).Close())
}
