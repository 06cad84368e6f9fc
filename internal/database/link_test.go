package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteLink(t *testing.T) *Link {
	t.Helper()
	l := NewLink(func() (*sql.DB, error) {
		return sql.Open("sqlite3", ":memory:")
	})
	t.Cleanup(l.Release)
	return l
}

func TestConnectRetryBound(t *testing.T) {
	attempts := 0
	l := NewLink(func() (*sql.DB, error) {
		attempts++
		return nil, errors.New("refused")
	})
	l.wait = time.Millisecond

	start := time.Now()
	_, err := l.Query("SELECT 1", FetchAssoc, Options{})

	assert.ErrorIs(t, err, ErrConnect)
	assert.Equal(t, maxRetriesToConnect, attempts)
	assert.GreaterOrEqual(t, time.Since(start), time.Duration(maxRetriesToConnect-1)*time.Millisecond)
}

func TestConnectIsIdempotent(t *testing.T) {
	attempts := 0
	l := NewLink(func() (*sql.DB, error) {
		attempts++
		return sql.Open("sqlite3", ":memory:")
	})
	t.Cleanup(l.Release)

	_, err := l.Query("SELECT 1", FetchAssoc, Options{})
	require.NoError(t, err)
	_, err = l.Query("SELECT 2", FetchAssoc, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, attempts)
}

func TestQueryFetchModes(t *testing.T) {
	l := sqliteLink(t)

	require.NoError(t, l.LocalExec("CREATE TABLE items (id INTEGER PRIMARY KEY, sku TEXT)"))
	require.NoError(t, l.LocalExec("INSERT INTO items (sku) VALUES ('A'), ('B')"))

	res, err := l.Query("SELECT id, sku FROM items ORDER BY id", FetchAssoc, Options{})
	require.NoError(t, err)
	require.Empty(t, res.Err)
	rows := res.Rows.([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0]["sku"])

	res, err = l.Query("SELECT id, sku FROM items ORDER BY id", FetchIndexed, Options{})
	require.NoError(t, err)
	indexed := res.Rows.([][]any)
	require.Len(t, indexed, 2)
	assert.Equal(t, "B", indexed[1][1])
}

func TestQueryFieldMetadata(t *testing.T) {
	l := sqliteLink(t)

	require.NoError(t, l.LocalExec("CREATE TABLE m (id INTEGER, name TEXT)"))

	res, err := l.Query("SELECT id, name FROM m", FetchAssoc, Options{FetchFields: true})
	require.NoError(t, err)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "id", res.Fields[0].Name)
	assert.Equal(t, "name", res.Fields[1].Name)
}

func TestQueryTracksInsertIDAndAffectedRows(t *testing.T) {
	l := sqliteLink(t)

	require.NoError(t, l.LocalExec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"))

	res, err := l.Query("INSERT INTO t (v) VALUES ('x')", FetchAssoc, Options{})
	require.NoError(t, err)
	assert.Equal(t, true, res.Rows)
	assert.Equal(t, int64(1), l.LastInsertID())
	assert.Equal(t, int64(1), l.AffectedRows())

	res, err = l.Query("UPDATE t SET v = 'y'", FetchAssoc, Options{})
	require.NoError(t, err)
	assert.Equal(t, true, res.Rows)
	assert.Equal(t, int64(1), l.AffectedRows())
}

func TestQueryErrorDoesNotCloseConnection(t *testing.T) {
	l := sqliteLink(t)

	res, err := l.Query("SELECT * FROM missing_table", FetchAssoc, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Err)

	// the link stays usable after a SQL error
	res, err = l.Query("SELECT 1 AS one", FetchAssoc, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Err)
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		source  string
		network string
		addr    string
	}{
		{"", "tcp", "localhost:3306"},
		{"localhost", "tcp", "localhost:3306"},
		{"db.example.com:3307", "tcp", "db.example.com:3307"},
		{"localhost:/var/run/mysqld/mysqld.sock", "unix", "/var/run/mysqld/mysqld.sock"},
		{"/var/run/mysqld/mysqld.sock", "unix", "/var/run/mysqld/mysqld.sock"},
	}

	for _, tt := range tests {
		network, addr := SplitHostPort(tt.source)
		assert.Equal(t, tt.network, network, tt.source)
		assert.Equal(t, tt.addr, addr, tt.source)
	}
}
