package migration

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNWithPragmas(t *testing.T) {
	cfg := SQLiteConfig{DSN: "data/capture.db", BusyTimeout: 5 * time.Second, EnableForeignKeys: true}
	assert.Equal(t, "file:data/capture.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", DSNWithPragmas(cfg))

	cfg = SQLiteConfig{DSN: "file:capture.db?cache=shared", BusyTimeout: time.Second}
	assert.Equal(t, "file:capture.db?cache=shared&_pragma=busy_timeout(1000)", DSNWithPragmas(cfg))

	cfg = SQLiteConfig{DSN: ":memory:", BusyTimeout: time.Second}
	assert.Equal(t, ":memory:", DSNWithPragmas(cfg))
}

func TestConnectionManager_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SQLiteConfig) {}},
		{name: "empty dsn", mutate: func(c *SQLiteConfig) { c.DSN = " " }, wantErr: true},
		{name: "negative busy timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -time.Second }, wantErr: true},
		{name: "unknown journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "unknown synchronous mode", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool size", mutate: func(c *SQLiteConfig) { c.MaxOpenConns = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSQLiteConfig("capture.db")
			tt.mutate(&cfg)
			err := NewConnectionManager(cfg).ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConnectionManager_GetConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "capture.db")
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(path)).GetConnection()
	require.NoError(t, err)
	defer db.Close()

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}
