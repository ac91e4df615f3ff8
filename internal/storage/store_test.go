package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"contactless-ordering/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(Paths{
		Menu:      filepath.Join(dir, "menu.txt"),
		Tables:    filepath.Join(dir, "tables.txt"),
		Orders:    filepath.Join(dir, "orders.txt"),
		BackupDir: filepath.Join(dir, "backups"),
	})
}

func TestFileStoreMissingFiles(t *testing.T) {
	store := newTestStore(t)

	items, report, err := store.LoadMenu()
	require.NoError(t, err)
	assert.True(t, report.Missing)
	assert.Empty(t, items)

	orders, report, err := store.LoadOrders(menuLookup())
	require.NoError(t, err)
	assert.True(t, report.Missing)
	assert.Empty(t, orders)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	menu := models.DefaultMenu()
	tables := models.DefaultTables()
	tables[2].Occupied = true
	orders := []models.Order{{
		ID:      1000,
		TableID: 3,
		Lines:   []models.OrderLine{{Item: menu[0], Quantity: 2}, {Item: menu[1], Quantity: 1}},
	}}

	require.NoError(t, store.SaveMenu(menu))
	require.NoError(t, store.SaveTables(tables))
	require.NoError(t, store.SaveOrders(orders))

	gotMenu, report, err := store.LoadMenu()
	require.NoError(t, err)
	assert.Equal(t, menu, gotMenu)
	assert.Equal(t, 3, report.Loaded)

	gotTables, _, err := store.LoadTables()
	require.NoError(t, err)
	assert.Equal(t, tables, gotTables)

	gotOrders, _, err := store.LoadOrders(menuLookup(gotMenu...))
	require.NoError(t, err)
	assert.Equal(t, orders, gotOrders)

	raw, err := os.ReadFile(store.Paths().Orders)
	require.NoError(t, err)
	assert.Equal(t, "1000,3,1:2;2:1;,false\n", string(raw))
}

func TestFileStoreSkipsMalformedLines(t *testing.T) {
	store := newTestStore(t)
	content := "1,false\nnot-a-table\n\n2,true\n3,perhaps\n"
	require.NoError(t, os.WriteFile(store.Paths().Tables, []byte(content), 0o644))

	tables, report, err := store.LoadTables()
	require.NoError(t, err)
	assert.Equal(t, []models.Table{{ID: 1}, {ID: 2, Occupied: true}}, tables)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 2, report.Skipped)
}

func TestFileStoreSaveReplacesContent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveTables(models.DefaultTables()))
	require.NoError(t, store.SaveTables([]models.Table{{ID: 9, Occupied: true}}))

	raw, err := os.ReadFile(store.Paths().Tables)
	require.NoError(t, err)
	assert.Equal(t, "9,true\n", string(raw))

	entries, err := os.ReadDir(filepath.Dir(store.Paths().Tables))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tables.txt.", "temp file left behind")
	}
}

func TestFileStoreBackup(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) }

	require.NoError(t, store.SaveMenu(models.DefaultMenu()))
	require.NoError(t, store.SaveTables(models.DefaultTables()))

	written, err := store.Backup()
	require.NoError(t, err)

	backups := store.Paths().BackupDir
	assert.Equal(t, []string{
		filepath.Join(backups, "menu_backup_20240309_140507.txt"),
		filepath.Join(backups, "tables_backup_20240309_140507.txt"),
	}, written)

	src, err := os.ReadFile(store.Paths().Menu)
	require.NoError(t, err)
	dst, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, src, dst)

	_, err = os.Stat(filepath.Join(backups, "orders_backup_20240309_140507.txt"))
	assert.True(t, os.IsNotExist(err), "missing source must not produce a backup")
}

func TestFileStoreBackupReportsEveryFailure(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveMenu(models.DefaultMenu()))
	require.NoError(t, store.SaveTables(models.DefaultTables()))
	require.NoError(t, os.WriteFile(store.Paths().BackupDir, []byte("not a directory"), 0o644))

	written, err := store.Backup()
	require.Error(t, err)
	assert.Empty(t, written)
	assert.ErrorIs(t, err, models.ErrPersistence)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "backup menu")
	assert.Contains(t, errs[1].Error(), "backup tables")
}
