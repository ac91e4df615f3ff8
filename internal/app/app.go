// Package app wires the registries, queues and workers of the ordering system
// and supervises them for the lifetime of the process.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contactless-ordering/internal/config"
	"contactless-ordering/internal/database"
	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/messaging"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/ops"
	"contactless-ordering/internal/queue"
	"contactless-ordering/internal/registry"
	"contactless-ordering/internal/services/kitchen"
	"contactless-ordering/internal/services/notification"
	"contactless-ordering/internal/services/order"
	"contactless-ordering/internal/services/persistence"
	"contactless-ordering/internal/storage"
)

const (
	statusTimeout = 2 * time.Second
	flushTimeout  = 10 * time.Second
)

type runner interface {
	Run(ctx context.Context) error
}

type worker struct {
	name string
	run  runner
}

// App owns every component of a running system
type App struct {
	cfg     *config.Config
	logger  *logger.Logger
	audit   *logger.AuditLog
	metrics *metrics.Metrics
	board   *models.WorkerBoard

	store       *storage.FileStore
	regs        persistence.Registries
	snapshotter *persistence.Snapshotter
	mirror      *database.Mirror

	work          *queue.Queue[models.Order]
	notifications *queue.Queue[string]

	service  *order.Service
	notifier *notification.Notifier
	workers  []worker
	closers  []func() error

	flushTimeout time.Duration
}

// New loads persisted state, connects optional integrations and builds every
// worker. Nothing runs until Run is called.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		cfg:           cfg,
		logger:        log,
		metrics:       metrics.New(),
		board:         models.NewWorkerBoard(),
		work:          queue.New[models.Order](),
		notifications: queue.New[string](),
		flushTimeout:  flushTimeout,
		store: storage.NewFileStore(storage.Paths{
			Menu:      cfg.Storage.Resolve(cfg.Storage.MenuFile),
			Tables:    cfg.Storage.Resolve(cfg.Storage.TablesFile),
			Orders:    cfg.Storage.Resolve(cfg.Storage.OrdersFile),
			BackupDir: cfg.Storage.Resolve(cfg.Storage.BackupDir),
		}),
	}
	a.audit = logger.NewAuditLog(cfg.Storage.Resolve(cfg.Log.AuditFile), cfg.Log.AuditPoll, log)

	if err := a.load(); err != nil {
		return nil, err
	}

	sinks, err := a.connect(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var mirror persistence.Mirror
	if a.mirror != nil {
		mirror = a.mirror
	}
	a.snapshotter = persistence.NewSnapshotter(a.store, a.regs, mirror, a.metrics, log)

	a.service = order.NewService(order.Config{
		Registries:    a.regs,
		Work:          a.work,
		Notifications: a.notifications,
		Audit:         a.audit,
		Metrics:       a.metrics,
		Logger:        log,
		FirstOrderID:  cfg.Orders.FirstID,
	})
	a.notifier = notification.NewNotifier(a.notifications, cfg.Workers.NotifierPacing, sinks, a.metrics, log)

	w := cfg.Workers
	a.workers = []worker{
		{models.OrderProcessorWorker, kitchen.NewWorker(models.OrderProcessorWorker, w.ProcessingDelay,
			a.work, a.regs.Orders, a.notifications, a.snapshotter, a.metrics, log)},
		{models.StaffNotifierWorker, a.notifier},
		{models.AdminSaverWorker, persistence.NewAdminSaver(models.AdminSaverWorker, w.AdminSaveInterval, a.snapshotter, log)},
		{models.OrderSaverWorker, persistence.NewOrderSaver(models.OrderSaverWorker, w.OrderSaveInterval, a.snapshotter, log)},
		{models.BackupWorker, persistence.NewBackupWorker(models.BackupWorker, w.BackupInterval, a.snapshotter, log)},
	}
	for _, wk := range a.workers {
		a.board.Set(wk.name, models.WorkerStarting)
	}
	a.board.Set(models.AuditLoggerWorker, models.WorkerStarting)

	return a, nil
}

// Service exposes the customer, staff and admin operations
func (a *App) Service() *order.Service { return a.service }

// Notifier exposes the staff notifier for display subscriptions
func (a *App) Notifier() *notification.Notifier { return a.notifier }

// Board exposes worker statuses
func (a *App) Board() *models.WorkerBoard { return a.board }

// Run starts every worker and blocks until ctx is cancelled. It then waits for
// the workers, flushes all registries, writes the final audit entry and drains
// the audit log.
func (a *App) Run(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	a.audit.Start()
	a.setStatus(models.AuditLoggerWorker, models.WorkerOnline)
	a.audit.Log("System started.")
	a.logger.Info("service_started", requestID, "Ordering system started",
		zap.Int("menu_items", a.regs.Menu.Len()),
		zap.Int("tables", a.regs.Tables.Len()),
		zap.Int("orders", a.regs.Orders.Len()))

	g, gctx := errgroup.WithContext(ctx)
	for _, wk := range a.workers {
		wk := wk
		g.Go(func() error {
			a.setStatus(wk.name, models.WorkerOnline)
			defer a.setStatus(wk.name, models.WorkerOffline)
			if err := wk.run.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", wk.name, err)
			}
			return nil
		})
	}
	if a.cfg.Ops.Enabled {
		handler := ops.NewHandler(a.cfg.Service.Name, a.board, a.metrics, a.logger).Routes()
		// ops failures are logged and never stop the workers
		g.Go(func() error {
			if err := ops.Serve(gctx, a.cfg.Ops.Addr, handler, a.logger); err != nil {
				a.logger.Error("ops_server_failed", requestID, "Ops server stopped, ordering continues", err,
					zap.String("addr", a.cfg.Ops.Addr))
			}
			return nil
		})
	}

	runErr := g.Wait()
	a.logger.Info("graceful_shutdown", requestID, "Workers stopped, flushing state",
		zap.Int("unprocessed_orders", a.work.Len()))

	flushErr := a.flush()
	if flushErr != nil {
		a.logger.Error("shutdown_flush_failed", requestID, "Final flush failed", flushErr)
	}

	a.audit.Log("System stopped.")
	a.audit.Stop()
	a.setStatus(models.AuditLoggerWorker, models.WorkerOffline)

	closeErr := a.close()
	a.logger.Info("graceful_shutdown", requestID, "Graceful shutdown completed")
	return multierr.Combine(runErr, flushErr, closeErr)
}

// flush saves every registry. The mirror gets at most flushTimeout.
func (a *App) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.flushTimeout)
	defer cancel()
	return a.snapshotter.SaveAll(ctx)
}

// load fills the registries from the snapshot files. Absent menu and table
// files are replaced by the defaults, which are written right away.
func (a *App) load() error {
	menu, report, err := a.store.LoadMenu()
	if err != nil {
		return fmt.Errorf("load menu: %w", err)
	}
	a.reportLoad(report)
	if report.Missing {
		menu = models.DefaultMenu()
		if err := a.store.SaveMenu(menu); err != nil {
			a.logger.Error("defaults_save_failed", "startup", "Failed to save default menu", err)
		}
	}

	tables, report, err := a.store.LoadTables()
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	a.reportLoad(report)
	if report.Missing {
		tables = models.DefaultTables()
		if err := a.store.SaveTables(tables); err != nil {
			a.logger.Error("defaults_save_failed", "startup", "Failed to save default tables", err)
		}
	}

	a.regs.Menu = registry.New(menu...)
	a.regs.Tables = registry.New(tables...)

	orders, report, err := a.store.LoadOrders(a.regs.Menu.Get)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	a.reportLoad(report)
	a.regs.Orders = registry.New(orders...)
	return nil
}

func (a *App) reportLoad(report storage.LoadReport) {
	if report.Skipped > 0 {
		a.metrics.RecordSkipped(report.Kind, report.Skipped)
		a.logger.Warn("malformed_records_skipped", "startup", "Skipped malformed records",
			zap.String("kind", report.Kind), zap.Int("skipped", report.Skipped))
	}
	a.logger.Info("snapshot_loaded", "startup", "Snapshot loaded",
		zap.String("kind", report.Kind), zap.Int("loaded", report.Loaded), zap.Bool("missing", report.Missing))
}

// connect opens the optional database mirror and notification sinks
func (a *App) connect(ctx context.Context) ([]notification.Sink, error) {
	if a.cfg.Database.Enabled {
		db, err := database.New(ctx, a.cfg.DatabaseURL(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		if err := db.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("database migrations: %w", err)
		}
		a.mirror = database.NewMirror(db)
	}

	var sinks []notification.Sink
	if a.cfg.RabbitMQ.Enabled {
		conn, err := messaging.New(ctx, a.cfg.RabbitMQURL(), a.cfg.RabbitMQ.Exchange, a.logger)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		publisher := messaging.NewPublisher(conn, a.logger)
		a.closers = append(a.closers, publisher.Close)
		sinks = append(sinks, publisher)
	}
	if a.cfg.NATS.Enabled {
		publisher, err := messaging.NewNATSPublisher(a.cfg.NATS.URL, a.cfg.NATS.Subject)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.closers = append(a.closers, publisher.Close)
		sinks = append(sinks, publisher)
	}
	return sinks, nil
}

func (a *App) close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

func (a *App) setStatus(name string, status models.WorkerStatus) {
	a.board.Set(name, status)
	if a.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	if err := a.mirror.RecordWorker(ctx, name, status); err != nil {
		a.logger.Warn("worker_status_failed", "", "Failed to record worker status", zap.Error(err))
	}
}
