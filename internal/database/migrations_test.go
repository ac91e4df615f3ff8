package database

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_workers.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_init.sql":    {Data: []byte("SELECT 1;")},
		"migrations/README.md":       {Data: []byte("notes")},
		"migrations/archive":         {Mode: fs.ModeDir},
	}

	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_workers.sql"}, files)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := migrationFiles(migrationFS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])

	content, err := fs.ReadFile(migrationFS, "migrations/"+files[0])
	require.NoError(t, err)
	for _, table := range []string{"menu_items", "dining_tables", "orders", "order_lines", "workers"} {
		assert.True(t, strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
}
