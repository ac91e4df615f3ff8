package persistence

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/registry"
	"contactless-ordering/internal/storage"
)

// Store writes full snapshots to durable files.
type Store interface {
	SaveMenu(items []models.MenuItem) error
	SaveTables(tables []models.Table) error
	SaveOrders(orders []models.Order) error
	Backup() ([]string, error)
}

// Mirror receives a copy of every saved snapshot, e.g. a database.
type Mirror interface {
	SaveMenu(ctx context.Context, items []models.MenuItem) error
	SaveTables(ctx context.Context, tables []models.Table) error
	SaveOrders(ctx context.Context, orders []models.Order) error
}

// Registries groups the three shared registries.
type Registries struct {
	Menu   *registry.Registry[models.MenuItem]
	Tables *registry.Registry[models.Table]
	Orders *registry.Registry[models.Order]
}

// Snapshotter persists registries. The file write happens while the registry
// is held exclusively so no mutation interleaves with the snapshot. Saves of
// one kind are serialized through the mirror step so the mirror always ends
// on the newest snapshot.
type Snapshotter struct {
	store   Store
	regs    Registries
	mirror  Mirror
	metrics *metrics.Metrics
	logger  *logger.Logger

	kindMu map[string]*sync.Mutex
}

// NewSnapshotter creates a snapshotter. mirror may be nil.
func NewSnapshotter(store Store, regs Registries, mirror Mirror, m *metrics.Metrics, log *logger.Logger) *Snapshotter {
	return &Snapshotter{
		store:   store,
		regs:    regs,
		mirror:  mirror,
		metrics: m,
		logger:  log,
		kindMu: map[string]*sync.Mutex{
			storage.KindMenu:   {},
			storage.KindTables: {},
			storage.KindOrders: {},
		},
	}
}

// SaveMenu persists the menu registry.
func (s *Snapshotter) SaveMenu(ctx context.Context) error {
	defer s.serialize(storage.KindMenu)()

	var snapshot []models.MenuItem
	err := s.regs.Menu.Export(func(items []models.MenuItem) error {
		snapshot = items
		return s.store.SaveMenu(items)
	})
	return s.finish(ctx, storage.KindMenu, err, func(ctx context.Context, m Mirror) error {
		return m.SaveMenu(ctx, snapshot)
	})
}

// SaveTables persists the table registry.
func (s *Snapshotter) SaveTables(ctx context.Context) error {
	defer s.serialize(storage.KindTables)()

	var snapshot []models.Table
	err := s.regs.Tables.Export(func(tables []models.Table) error {
		snapshot = tables
		return s.store.SaveTables(tables)
	})
	return s.finish(ctx, storage.KindTables, err, func(ctx context.Context, m Mirror) error {
		return m.SaveTables(ctx, snapshot)
	})
}

// SaveOrders persists the order registry.
func (s *Snapshotter) SaveOrders(ctx context.Context) error {
	defer s.serialize(storage.KindOrders)()

	var snapshot []models.Order
	err := s.regs.Orders.Export(func(orders []models.Order) error {
		snapshot = orders
		return s.store.SaveOrders(orders)
	})
	return s.finish(ctx, storage.KindOrders, err, func(ctx context.Context, m Mirror) error {
		return m.SaveOrders(ctx, snapshot)
	})
}

// SaveAdmin persists the menu and tables, the registries staff and admins edit.
func (s *Snapshotter) SaveAdmin(ctx context.Context) error {
	return multierr.Combine(s.SaveMenu(ctx), s.SaveTables(ctx))
}

// SaveAll persists every registry and reports every failure.
func (s *Snapshotter) SaveAll(ctx context.Context) error {
	return multierr.Combine(s.SaveMenu(ctx), s.SaveTables(ctx), s.SaveOrders(ctx))
}

// Backup copies the live files to timestamped backups.
func (s *Snapshotter) Backup(ctx context.Context) error {
	written, err := s.store.Backup()
	if err != nil {
		s.metrics.RecordBackup(metrics.OutcomeFailure)
		s.logger.Error("backup_failed", "", "Backup cycle failed", err)
		return fmt.Errorf("backup: %w", err)
	}
	s.metrics.RecordBackup(metrics.OutcomeSuccess)
	s.logger.Debug("backup_written", "", "Backup cycle completed", zap.Strings("files", written))
	return nil
}

func (s *Snapshotter) serialize(kind string) func() {
	mu := s.kindMu[kind]
	mu.Lock()
	return mu.Unlock
}

func (s *Snapshotter) finish(ctx context.Context, kind string, saveErr error, mirror func(context.Context, Mirror) error) error {
	if saveErr != nil {
		s.metrics.RecordSave(kind, metrics.OutcomeFailure)
		s.logger.Error("snapshot_save_failed", "", "Failed to save snapshot", saveErr, zap.String("kind", kind))
		return fmt.Errorf("save %s: %w", kind, saveErr)
	}
	s.metrics.RecordSave(kind, metrics.OutcomeSuccess)

	if s.mirror == nil {
		return nil
	}
	if err := mirror(ctx, s.mirror); err != nil {
		s.metrics.RecordSave(kind+"_mirror", metrics.OutcomeFailure)
		s.logger.Error("snapshot_mirror_failed", "", "Failed to mirror snapshot", err, zap.String("kind", kind))
		return fmt.Errorf("%w: mirror %s: %v", models.ErrPersistence, kind, err)
	}
	s.metrics.RecordSave(kind+"_mirror", metrics.OutcomeSuccess)
	return nil
}
