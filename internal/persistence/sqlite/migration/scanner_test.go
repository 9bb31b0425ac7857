package migration

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Run("sorts numerically and reads descriptions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"schema/010_add_index.sql":      {Data: []byte("CREATE INDEX idx_a ON a(id);")},
			"schema/002_second.sql":         {Data: []byte("-- Description: second table\nCREATE TABLE b (id INTEGER);")},
			"schema/001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
			"schema/README.md":              {Data: []byte("ignored")},
		}

		migrations, err := NewFileScanner(fsys, "schema").ScanMigrations()
		require.NoError(t, err)
		require.Len(t, migrations, 3)

		assert.Equal(t, "001", migrations[0].Version)
		assert.Equal(t, "initial schema", migrations[0].Description)
		assert.Equal(t, "002", migrations[1].Version)
		assert.Equal(t, "second table", migrations[1].Description)
		assert.Equal(t, "010", migrations[2].Version)
		assert.Len(t, migrations[0].Checksum, 64)
		assert.Equal(t, "schema/001_initial_schema.sql", migrations[0].FilePath)
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
			"1_b.sql":   {Data: []byte("CREATE TABLE b (id INTEGER);")},
		}
		_, err := NewFileScanner(fsys, "").ScanMigrations()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateVersion))
	})

	t.Run("rejects comment-only files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001_empty.sql": {Data: []byte("-- nothing here\n\n")},
		}
		_, err := NewFileScanner(fsys, ".").ScanMigrations()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMigrationFile))
	})

	t.Run("rejects badly named sql files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"initial.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
		}
		_, err := NewFileScanner(fsys, ".").ScanMigrations()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMigrationFile))
	})
}

func TestFileScanner_ValidateFileName(t *testing.T) {
	scanner := NewFileScanner(fstest.MapFS{}, ".")

	valid := []string{"001_initial_schema.sql", "2_add-rooms.sql", "0100_x.sql"}
	for _, name := range valid {
		assert.NoError(t, scanner.ValidateFileName(name), name)
	}

	invalid := []string{"initial.sql", "001-initial.sql", "001_.sql", "001_initial.txt", "001_bad name.sql"}
	for _, name := range invalid {
		assert.ErrorIs(t, scanner.ValidateFileName(name), ErrInvalidMigrationFile, name)
	}
}

func TestSplitStatements(t *testing.T) {
	sqlText := `-- header
CREATE TABLE a (
	id INTEGER -- trailing comment is kept
);

-- between
INSERT INTO a (id) VALUES (1);
`
	statements := splitStatements(sqlText)
	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], "CREATE TABLE a")
	assert.Equal(t, "INSERT INTO a (id) VALUES (1)", statements[1])
}
