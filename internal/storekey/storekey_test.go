package storekey

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"bridgeconnector/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{32}$`)

func testManager(t *testing.T) *Manager {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(
		"CREATE TABLE wp_options (option_id INTEGER PRIMARY KEY, option_name TEXT UNIQUE, option_value TEXT, autoload TEXT)",
	).Error)

	file := filepath.Join(t.TempDir(), "bridge.key")
	return NewManager(db, "wp_", false, file, logger.New("error"))
}

func TestGenerate(t *testing.T) {
	a := Generate()
	b := Generate()

	assert.Regexp(t, hexKey, a)
	assert.Regexp(t, hexKey, b)
	assert.NotEqual(t, a, b)
}

func TestLoadGeneratesAndPersists(t *testing.T) {
	m := testManager(t)

	key, err := m.Load()
	require.NoError(t, err)
	assert.Regexp(t, hexKey, key)

	// a second load returns the same key
	again, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, key, again)

	data, err := os.ReadFile(m.file)
	require.NoError(t, err)
	assert.Contains(t, string(data), key)
}

func TestLoadRepairsMirrorFile(t *testing.T) {
	m := testManager(t)

	key, err := m.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(m.file, []byte("A2C_STORE_KEY=stale\n"), 0o600))

	_, err = m.Load()
	require.NoError(t, err)

	data, err := os.ReadFile(m.file)
	require.NoError(t, err)
	assert.Contains(t, string(data), key)
}

func TestRotate(t *testing.T) {
	m := testManager(t)

	before, err := m.Load()
	require.NoError(t, err)

	after, err := m.Rotate()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, after, loaded)
}

func TestInstalledMarker(t *testing.T) {
	m := testManager(t)

	assert.False(t, m.Installed())

	require.NoError(t, m.SetInstalled(true))
	assert.True(t, m.Installed())

	require.NoError(t, m.SetInstalled(false))
	assert.False(t, m.Installed())
}
