package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/registry"
	"contactless-ordering/internal/storage"
)

type fakeMirror struct {
	mu     sync.Mutex
	orders [][]models.Order
	err    error
}

func (f *fakeMirror) SaveMenu(context.Context, []models.MenuItem) error { return f.err }
func (f *fakeMirror) SaveTables(context.Context, []models.Table) error { return f.err }
func (f *fakeMirror) SaveOrders(_ context.Context, orders []models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, orders)
	return f.err
}

// gatedMirror holds the first orders save until release is closed
type gatedMirror struct {
	fakeMirror
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedMirror) SaveOrders(ctx context.Context, orders []models.Order) error {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.fakeMirror.SaveOrders(ctx, orders)
}

type failingStore struct{ Store }

func (failingStore) SaveOrders([]models.Order) error {
	return errors.New("disk full")
}

func newRegistries() Registries {
	return Registries{
		Menu:   registry.New(models.DefaultMenu()...),
		Tables: registry.New(models.DefaultTables()...),
		Orders: registry.New[models.Order](),
	}
}

func newFileStore(t *testing.T) *storage.FileStore {
	dir := t.TempDir()
	return storage.NewFileStore(storage.Paths{
		Menu:      filepath.Join(dir, "menu.txt"),
		Tables:    filepath.Join(dir, "tables.txt"),
		Orders:    filepath.Join(dir, "orders.txt"),
		BackupDir: dir,
	})
}

func TestSaveAllWritesEveryRegistry(t *testing.T) {
	store := newFileStore(t)
	regs := newRegistries()
	regs.Orders.Put(models.Order{ID: 1000, TableID: 3, Lines: []models.OrderLine{{Item: models.DefaultMenu()[0], Quantity: 2}}})
	mirror := &fakeMirror{}
	m := metrics.New()

	s := NewSnapshotter(store, regs, mirror, m, logger.Nop())
	require.NoError(t, s.SaveAll(context.Background()))

	raw, err := os.ReadFile(store.Paths().Orders)
	require.NoError(t, err)
	assert.Equal(t, "1000,3,1:2;,false\n", string(raw))

	tables, _, err := store.LoadTables()
	require.NoError(t, err)
	assert.Len(t, tables, 5)

	require.Len(t, mirror.orders, 1)
	assert.Equal(t, 1000, mirror.orders[0][0].ID)
}

func TestSaveFailureIsReported(t *testing.T) {
	regs := newRegistries()
	s := NewSnapshotter(failingStore{Store: newFileStore(t)}, regs, nil, metrics.New(), logger.Nop())

	err := s.SaveOrders(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	err = s.SaveAll(context.Background())
	require.Error(t, err)
}

func TestMirrorFailureWrapsPersistence(t *testing.T) {
	store := newFileStore(t)
	s := NewSnapshotter(store, newRegistries(), &fakeMirror{err: errors.New("connection refused")}, metrics.New(), logger.Nop())

	err := s.SaveMenu(context.Background())
	assert.ErrorIs(t, err, models.ErrPersistence)

	_, err = os.Stat(store.Paths().Menu)
	assert.NoError(t, err, "file snapshot is written even when the mirror fails")
}

func TestOverlappingOrderSavesMirrorNewestLast(t *testing.T) {
	regs := newRegistries()
	regs.Orders.Put(models.Order{ID: 1000, TableID: 1, Lines: []models.OrderLine{{Item: models.DefaultMenu()[0], Quantity: 1}}})
	mirror := &gatedMirror{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSnapshotter(newFileStore(t), regs, mirror, metrics.New(), logger.Nop())

	first := make(chan error, 1)
	go func() { first <- s.SaveOrders(context.Background()) }()
	<-mirror.entered

	_, err := regs.Orders.CompareAndSwap(1000,
		func(o models.Order) bool { return !o.Completed },
		func(o models.Order) models.Order { o.Completed = true; return o },
	)
	require.NoError(t, err)

	second := make(chan error, 1)
	go func() { second <- s.SaveOrders(context.Background()) }()
	assert.Never(t, func() bool { return len(second) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"second save must wait for the first to finish mirroring")

	close(mirror.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	require.Len(t, mirror.orders, 2)
	assert.False(t, mirror.orders[0][0].Completed)
	assert.True(t, mirror.orders[1][0].Completed)
}

func TestBackupCountsCycles(t *testing.T) {
	store := newFileStore(t)
	m := metrics.New()
	s := NewSnapshotter(store, newRegistries(), nil, m, logger.Nop())

	require.NoError(t, s.SaveAdmin(context.Background()))
	require.NoError(t, s.Backup(context.Background()))

	matches, err := filepath.Glob(filepath.Join(store.Paths().BackupDir, "*_backup_*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	expected := `
# HELP ordering_backups_total Count of backup cycles by outcome.
# TYPE ordering_backups_total counter
ordering_backups_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "ordering_backups_total"))
}

func TestWorkerRepeatsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	w := NewWorker("test-saver", 10*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 2 {
			return errors.New("transient")
		}
		return nil
	}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, "test-saver", w.Name())
}

func TestWorkerCancelledDuringSleepDoesNotAct(t *testing.T) {
	var calls atomic.Int32
	w := NewWorker("backup-worker", time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, int32(0), calls.Load())
}
