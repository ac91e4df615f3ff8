package app

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactless-ordering/internal/config"
	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/services/persistence"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = dir
	cfg.Storage.BackupDir = filepath.Join(dir, "backups")
	cfg.Log.AuditPoll = 10 * time.Millisecond
	cfg.Workers.ProcessingDelay = 20 * time.Millisecond
	cfg.Workers.NotifierPacing = time.Millisecond
	cfg.Workers.AdminSaveInterval = 50 * time.Millisecond
	cfg.Workers.OrderSaveInterval = 50 * time.Millisecond
	cfg.Workers.BackupInterval = 50 * time.Millisecond
	return cfg
}

type display struct {
	mu   sync.Mutex
	seen []string
}

func (d *display) show(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, message)
}

func (d *display) contains(message string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.seen {
		if m == message {
			return true
		}
	}
	return false
}

func startApp(t *testing.T, cfg *config.Config) (*App, context.CancelFunc, <-chan error) {
	t.Helper()
	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	return a, cancel, done
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestOrderLifecycle(t *testing.T) {
	cfg := testConfig(t)
	a, cancel, done := startApp(t, cfg)

	screen := &display{}
	a.Notifier().Subscribe(screen.show)

	assert.Eventually(t, a.Board().AllOnline, time.Second, 5*time.Millisecond)

	order, err := a.Service().Submit(models.SubmitOrderRequest{
		TableID: 3,
		Items:   []models.LineRequest{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, 1000, order.ID)

	assert.Eventually(t, func() bool {
		return screen.contains("Order #1000 processed. Awaiting manual completion.")
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, screen.contains("Order #1000 placed on Table 3"))
	assert.True(t, screen.contains("Processing Order #1000"))

	_, err = a.Service().MarkCompleted(1000)
	require.NoError(t, err)
	_, err = a.Service().MarkTablesCleaned(3)
	require.NoError(t, err)

	stop(t, cancel, done)

	dir := cfg.Storage.DataDir
	assert.Equal(t, "1000,3,1:2;2:1;,true\n", readFile(t, filepath.Join(dir, "orders.txt")))
	assert.Equal(t, "1,Burger,5.99\n2,Fries,2.49\n3,Soda,1.99\n", readFile(t, filepath.Join(dir, "menu.txt")))
	assert.Contains(t, readFile(t, filepath.Join(dir, "tables.txt")), "3,false\n")

	audit := strings.Split(strings.TrimSpace(readFile(t, filepath.Join(dir, "system.log"))), "\n")
	var messages []string
	for _, line := range audit {
		_, msg, ok := strings.Cut(line, " - ")
		require.True(t, ok, line)
		messages = append(messages, msg)
	}
	assert.Equal(t, []string{
		"System started.",
		"Order #1000 placed on Table 3",
		"Order #1000 marked completed",
		"Staff marked table 3 cleaned",
		"System stopped.",
	}, messages)

	for _, w := range a.Board().List() {
		assert.Equal(t, models.WorkerOffline, w.Status, w.Name)
	}
}

func TestStopKeepsQueuedOrders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.ProcessingDelay = time.Hour
	a, cancel, done := startApp(t, cfg)

	for table := 1; table <= 3; table++ {
		_, err := a.Service().Submit(models.SubmitOrderRequest{
			TableID: table,
			Items:   []models.LineRequest{{MenuItemID: 3, Quantity: table}},
		})
		require.NoError(t, err)
	}

	stop(t, cancel, done)

	orders := readFile(t, filepath.Join(cfg.Storage.DataDir, "orders.txt"))
	assert.Equal(t, "1000,1,3:1;,false\n1001,2,3:2;,false\n1002,3,3:3;,false\n", orders)
}

func TestRestartContinuesFromSnapshots(t *testing.T) {
	cfg := testConfig(t)
	dir := cfg.Storage.DataDir
	require.NoError(t, os.WriteFile(filepath.Join(dir, "menu.txt"), []byte("1,Burger,5.99\n7,Salad,4.25\nbroken line\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.txt"), []byte("1,true\n2,false\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.txt"), []byte("1041,1,1:1;9:2;,false\n"), 0o644))

	a, cancel, done := startApp(t, cfg)

	loaded, ok := a.Service().Order(1041)
	require.True(t, ok)
	require.Len(t, loaded.Lines, 1, "unknown menu reference is dropped")

	_, err := a.Service().Submit(models.SubmitOrderRequest{TableID: 1, Items: []models.LineRequest{{MenuItemID: 7, Quantity: 1}}})
	assert.ErrorIs(t, err, models.ErrTableOccupied)

	order, err := a.Service().Submit(models.SubmitOrderRequest{TableID: 2, Items: []models.LineRequest{{MenuItemID: 7, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 1042, order.ID)

	item, err := a.Service().AddMenuItem("Soup", 3)
	require.NoError(t, err)
	assert.Equal(t, 8, item.ID)

	stop(t, cancel, done)

	assert.Equal(t, "1,Burger,5.99\n7,Salad,4.25\n8,Soup,3\n", readFile(t, filepath.Join(dir, "menu.txt")))
}

func TestBackupsWritten(t *testing.T) {
	cfg := testConfig(t)
	_, cancel, done := startApp(t, cfg)

	assert.Eventually(t, func() bool {
		matches, _ := filepath.Glob(filepath.Join(cfg.Storage.BackupDir, "menu_backup_*.txt"))
		return len(matches) > 0
	}, 2*time.Second, 10*time.Millisecond)

	stop(t, cancel, done)
}

func TestOpsListenFailureKeepsOrderingRunning(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.Ops.Enabled = true
	cfg.Ops.Addr = busy.Addr().String()
	a, cancel, done := startApp(t, cfg)

	screen := &display{}
	a.Notifier().Subscribe(screen.show)

	_, err = a.Service().Submit(models.SubmitOrderRequest{
		TableID: 2,
		Items:   []models.LineRequest{{MenuItemID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return screen.contains("Order #1000 processed. Awaiting manual completion.")
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, done, "Run returned while the ops address was taken")
	assert.True(t, a.Board().AllOnline())

	stop(t, cancel, done)
}

// stalledMirror never answers until its context ends
type stalledMirror struct{}

func (stalledMirror) SaveMenu(ctx context.Context, _ []models.MenuItem) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledMirror) SaveTables(ctx context.Context, _ []models.Table) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledMirror) SaveOrders(ctx context.Context, _ []models.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestShutdownFlushGivesUpOnStalledMirror(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	a.snapshotter = persistence.NewSnapshotter(a.store, a.regs, stalledMirror{}, a.metrics, logger.Nop())
	a.flushTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, models.ErrPersistence)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown hung on the mirror")
	}

	assert.FileExists(t, filepath.Join(cfg.Storage.DataDir, "orders.txt"))
	assert.Contains(t, readFile(t, filepath.Join(cfg.Storage.DataDir, "system.log")), "System stopped.")
}
