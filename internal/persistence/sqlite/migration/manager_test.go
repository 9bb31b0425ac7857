package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migration.db"))
	db, err := NewConnectionManager(cfg).GetConnection()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"schema/001_rooms.sql": {Data: []byte(`
CREATE TABLE rooms (id INTEGER PRIMARY KEY, location TEXT NOT NULL);
CREATE UNIQUE INDEX idx_rooms_location ON rooms(location);
`)},
		"schema/002_sections.sql": {Data: []byte(`
-- Description: sections
CREATE TABLE sections (id INTEGER PRIMARY KEY, room_id INTEGER REFERENCES rooms(id));
`)},
	}

	manager := NewMigrationManager(NewFileScanner(fsys, "schema"), NewSQLiteExecutor(db), nil)
	require.NoError(t, manager.RunMigrations(ctx))

	assert.True(t, tableExists(t, db, "rooms"))
	assert.True(t, tableExists(t, db, "sections"))

	status, err := manager.GetMigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Zero(t, status.PendingCount)
	require.Len(t, status.AppliedMigrations, 2)
	assert.NotEmpty(t, status.AppliedMigrations[0].Checksum)

	// Second run is a no-op.
	require.NoError(t, manager.RunMigrations(ctx))
}

func TestMigrationManager_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte(`
CREATE TABLE partial (id INTEGER);
CREATE TABLE partial (id INTEGER);
`)},
	}
	manager := NewMigrationManager(NewFileScanner(fsys, "."), NewSQLiteExecutor(db), nil)

	err := manager.RunMigrations(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMigrationFailed))
	assert.False(t, tableExists(t, db, "partial"))

	pending, err := manager.GetPendingMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMigrationManager_DetectsEditedMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	original := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")}}
	require.NoError(t, NewMigrationManager(NewFileScanner(original, "."), NewSQLiteExecutor(db), nil).RunMigrations(ctx))

	edited := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER, name TEXT);")}}
	_, err := NewMigrationManager(NewFileScanner(edited, "."), NewSQLiteExecutor(db), nil).GetPendingMigrations(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestMigrationManager_SequenceValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("gap in versions", func(t *testing.T) {
		db := openTestDB(t)
		fsys := fstest.MapFS{
			"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
			"003_c.sql": {Data: []byte("CREATE TABLE c (id INTEGER);")},
		}
		_, err := NewMigrationManager(NewFileScanner(fsys, "."), NewSQLiteExecutor(db), nil).GetPendingMigrations(ctx)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("applied version missing on disk", func(t *testing.T) {
		db := openTestDB(t)
		two := fstest.MapFS{
			"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
			"002_b.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		}
		require.NoError(t, NewMigrationManager(NewFileScanner(two, "."), NewSQLiteExecutor(db), nil).RunMigrations(ctx))

		one := fstest.MapFS{"001_a.sql": two["001_a.sql"]}
		_, err := NewMigrationManager(NewFileScanner(one, "."), NewSQLiteExecutor(db), nil).GetPendingMigrations(ctx)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})
}
